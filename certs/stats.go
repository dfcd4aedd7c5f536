package certs

import "github.com/shopspring/decimal"

// Summary is the dashboard headline: counts plus completion figures.
type Summary struct {
	Courses            int             `json:"courses"`
	ActiveCourses      int             `json:"activeCourses"`
	Learners           int             `json:"learners"`
	ActiveLearners     int             `json:"activeLearners"`
	Organizations      int             `json:"organizations"`
	CertificatesIssued int             `json:"certificatesIssued"`
	CompletionRate     decimal.Decimal `json:"completionRate"`  // percent, 1dp
	AverageProgress    decimal.Decimal `json:"averageProgress"` // percent, 1dp
}

// Summarize computes the dashboard summary over already-scoped collections.
// CompletionRate weighs every enrollment equally across courses.
func Summarize(courses []Course, learners []Learner, orgs []Organization, progress []LearnerProgress, certificates []Certificate) Summary {
	s := Summary{
		Courses:       len(courses),
		Learners:      len(learners),
		Organizations: len(orgs),
	}

	var enrolled, completed int
	for _, c := range courses {
		if c.Status == CourseActive {
			s.ActiveCourses++
		}
		enrolled += c.TotalLearners
		completed += c.CompletedLearners
	}
	s.CompletionRate = percent(completed, enrolled)

	for _, l := range learners {
		if l.Status == LearnerActive {
			s.ActiveLearners++
		}
	}

	for _, c := range certificates {
		if c.Status == CertificateIssued {
			s.CertificatesIssued++
		}
	}

	s.AverageProgress = decimal.Zero
	if len(progress) > 0 {
		total := decimal.Zero
		for _, p := range progress {
			total = total.Add(decimal.NewFromInt(int64(p.Progress)))
		}
		s.AverageProgress = total.Div(decimal.NewFromInt(int64(len(progress)))).Round(1)
	}
	return s
}

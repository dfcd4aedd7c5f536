package remote

import (
	"time"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
)

// FixturePassword is the password every fixture user signs in with.
const FixturePassword = "password"

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixtureCourses() []certs.Course {
	return []certs.Course{
		{ID: "1", Name: "Advanced React Development", CourseID: "REACT-ADV-001", Status: certs.CourseActive,
			TotalLearners: 45, CompletedLearners: 32, CreatedAt: day("2024-01-15"), UpdatedAt: day("2024-02-20")},
		{ID: "2", Name: "JavaScript Fundamentals", CourseID: "JS-FUND-001", Status: certs.CourseActive,
			TotalLearners: 38, CompletedLearners: 28, CreatedAt: day("2024-01-20"), UpdatedAt: day("2024-02-18")},
		{ID: "3", Name: "Node.js Backend Development", CourseID: "NODE-BACK-001", Status: certs.CourseActive,
			TotalLearners: 29, CompletedLearners: 18, CreatedAt: day("2024-01-25"), UpdatedAt: day("2024-02-21")},
	}
}

func fixtureLearners() []certs.Learner {
	return []certs.Learner{
		{ID: "1", Name: "John Doe", Email: "john.doe@example.com", Organization: "Acme Corp", OrganizationID: "org-1",
			Status: certs.LearnerActive, TotalCourses: 3, CompletedCourses: 2, CreatedAt: day("2024-01-15"), UpdatedAt: day("2024-02-20")},
		{ID: "2", Name: "Jane Smith", Email: "jane.smith@techcorp.com", Organization: "TechCorp Inc", OrganizationID: "org-2",
			Status: certs.LearnerActive, TotalCourses: 2, CompletedCourses: 1, CreatedAt: day("2024-01-20"), UpdatedAt: day("2024-02-18")},
		{ID: "3", Name: "Mike Johnson", Email: "mike.johnson@startup.io", Organization: "StartupIO", OrganizationID: "org-3",
			Status: certs.LearnerActive, TotalCourses: 1, CompletedCourses: 0, CreatedAt: day("2024-01-25"), UpdatedAt: day("2024-02-21")},
	}
}

func fixtureOrganizations() []certs.Organization {
	return []certs.Organization{
		{ID: "org-1", Name: "Acme Corp", Website: "https://acme-corp.com", SOPEmail: "sop@acme-corp.com",
			Status: certs.OrganizationActive, TotalLearners: 24, TotalCourses: 3, CreatedAt: day("2024-01-15"), UpdatedAt: day("2024-02-20")},
		{ID: "org-2", Name: "TechCorp Inc", Website: "https://techcorp.com", SOPEmail: "sop@techcorp.com",
			Status: certs.OrganizationActive, TotalLearners: 18, TotalCourses: 2, CreatedAt: day("2024-01-20"), UpdatedAt: day("2024-02-18")},
		{ID: "org-3", Name: "StartupIO", Website: "https://startup.io", SOPEmail: "sop@startup.io",
			Status: certs.OrganizationActive, TotalLearners: 12, TotalCourses: 1, CreatedAt: day("2024-01-25"), UpdatedAt: day("2024-02-21")},
	}
}

func fixtureProgress() []certs.LearnerProgress {
	done := day("2024-02-10")
	return []certs.LearnerProgress{
		{ID: "p-1", LearnerID: "1", CourseID: "1", LearnerName: "John Doe", Email: "john.doe@example.com",
			Organization: "Acme Corp", OrganizationID: "org-1", Course: "Advanced React Development",
			EnrollmentDate: day("2024-01-16"), CompletionStatus: certs.Completed, CertificateStatus: certs.CertificateIssued,
			Progress: 100, LastActivity: day("2024-02-10"), CertificateID: "CERT-REACT-ADV-001-0001", CompletionDate: &done},
		{ID: "p-2", LearnerID: "1", CourseID: "2", LearnerName: "John Doe", Email: "john.doe@example.com",
			Organization: "Acme Corp", OrganizationID: "org-1", Course: "JavaScript Fundamentals",
			EnrollmentDate: day("2024-01-21"), CompletionStatus: certs.InProgress, CertificateStatus: certs.CertificateNotEligible,
			Progress: 60, LastActivity: day("2024-02-19")},
		{ID: "p-3", LearnerID: "2", CourseID: "2", LearnerName: "Jane Smith", Email: "jane.smith@techcorp.com",
			Organization: "TechCorp Inc", OrganizationID: "org-2", Course: "JavaScript Fundamentals",
			EnrollmentDate: day("2024-01-22"), CompletionStatus: certs.Completed, CertificateStatus: certs.CertificatePending,
			Progress: 100, LastActivity: day("2024-02-17"), CompletionDate: ptr(day("2024-02-17"))},
		{ID: "p-4", LearnerID: "3", CourseID: "3", LearnerName: "Mike Johnson", Email: "mike.johnson@startup.io",
			Organization: "StartupIO", OrganizationID: "org-3", Course: "Node.js Backend Development",
			EnrollmentDate: day("2024-01-26"), CompletionStatus: certs.NotStarted, CertificateStatus: certs.CertificateNotEligible,
			Progress: 0, LastActivity: day("2024-01-26")},
	}
}

func fixtureCertificates() []certs.Certificate {
	return []certs.Certificate{
		{ID: "c-1", LearnerID: "1", CourseID: "1", LearnerName: "John Doe", CourseName: "Advanced React Development",
			OrganizationName: "Acme Corp", OrganizationID: "org-1", IssuedDate: day("2024-02-10"),
			Status: certs.CertificateIssued, CertificateID: "CERT-REACT-ADV-001-0001", UpdatedAt: day("2024-02-10")},
	}
}

func fixtureUsers() []auth.User {
	return []auth.User{
		{ID: "1", Name: "Admin User", Email: "admin@example.com", Role: auth.RoleAdmin,
			CreatedAt: day("2024-01-01")},
		{ID: "2", Name: "SOP User", Email: "sop@acme-corp.com", Role: auth.RoleSOP,
			OrganizationID: "org-1", OrganizationWebsite: "Acme Corp", CreatedAt: day("2024-01-01")},
	}
}

func ptr[T any](v T) *T { return &v }

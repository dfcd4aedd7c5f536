package certs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/certdash/certs"
)

func TestCourse_CompletionRate(t *testing.T) {
	assert.Equal(t, "71.1", certs.Course{TotalLearners: 45, CompletedLearners: 32}.CompletionRate().String())
	assert.Equal(t, "100", certs.Course{TotalLearners: 2, CompletedLearners: 2}.CompletionRate().String())
	assert.True(t, certs.Course{}.CompletionRate().IsZero(), "no enrollments means zero, not a division error")
}

func TestSummarize(t *testing.T) {
	courses := []certs.Course{
		{ID: "1", Status: certs.CourseActive, TotalLearners: 45, CompletedLearners: 32},
		{ID: "2", Status: certs.CourseActive, TotalLearners: 38, CompletedLearners: 28},
		{ID: "3", Status: certs.CourseInDraft, TotalLearners: 29, CompletedLearners: 18},
	}
	learners := []certs.Learner{
		{ID: "1", Status: certs.LearnerActive},
		{ID: "2", Status: certs.LearnerSuspended},
	}
	orgs := []certs.Organization{{ID: "org-1"}}
	progress := []certs.LearnerProgress{{Progress: 100}, {Progress: 60}, {Progress: 100}, {Progress: 0}}
	issued := []certs.Certificate{
		{ID: "c-1", Status: certs.CertificateIssued},
		{ID: "c-2", Status: certs.CertificateRevoked},
	}

	s := certs.Summarize(courses, learners, orgs, progress, issued)

	assert.Equal(t, 3, s.Courses)
	assert.Equal(t, 2, s.ActiveCourses)
	assert.Equal(t, 2, s.Learners)
	assert.Equal(t, 1, s.ActiveLearners)
	assert.Equal(t, 1, s.Organizations)
	assert.Equal(t, 1, s.CertificatesIssued)
	assert.Equal(t, "69.6", s.CompletionRate.String())
	assert.Equal(t, "65", s.AverageProgress.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := certs.Summarize(nil, nil, nil, nil, nil)

	assert.True(t, s.CompletionRate.IsZero())
	assert.True(t, s.AverageProgress.IsZero())
}

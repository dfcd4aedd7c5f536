package certs

import (
	"net/mail"
	"strings"

	"github.com/warp/certdash/generic"
)

// Validation lives with the drafts; stores never validate, the API does
// before calling Create.

func (d CourseDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return required("name")
	}
	if strings.TrimSpace(d.CourseID) == "" {
		return required("courseId")
	}
	switch d.Status {
	case "", CourseActive, CourseInactive, CourseInDraft:
	default:
		return &generic.ValidationError{Field: "status", Message: "must be active, inactive or draft"}
	}
	if d.CompletedLearners > d.TotalLearners || d.CompletedLearners < 0 {
		return &generic.ValidationError{Field: "completedLearners", Message: "must be between 0 and totalLearners"}
	}
	return nil
}

func (d LearnerDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return required("name")
	}
	if err := validEmail("email", d.Email); err != nil {
		return err
	}
	switch d.Status {
	case "", LearnerActive, LearnerInactive, LearnerSuspended:
	default:
		return &generic.ValidationError{Field: "status", Message: "must be active, inactive or suspended"}
	}
	return nil
}

func (d OrganizationDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return required("name")
	}
	if strings.TrimSpace(d.Website) == "" {
		return required("website")
	}
	if err := validEmail("sopEmail", d.SOPEmail); err != nil {
		return err
	}
	switch d.Status {
	case "", OrganizationActive, OrganizationInactive, OrganizationPending:
	default:
		return &generic.ValidationError{Field: "status", Message: "must be active, inactive or pending"}
	}
	return nil
}

func (d ProgressDraft) Validate() error {
	if d.LearnerID == "" {
		return required("learnerId")
	}
	if d.CourseID == "" {
		return required("courseId")
	}
	return nil
}

func (r CertificateRequest) Validate() error {
	if r.LearnerID == "" {
		return required("learnerId")
	}
	if r.CourseID == "" {
		return required("courseId")
	}
	return nil
}

func required(field string) error {
	return &generic.ValidationError{Field: field, Message: "is required"}
}

func validEmail(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return required(field)
	}
	if _, err := mail.ParseAddress(v); err != nil {
		return &generic.ValidationError{Field: field, Message: "is not a valid email address"}
	}
	return nil
}

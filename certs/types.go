/*
Package certs holds the certificate-management domain: courses, learners,
organizations, learner progress and issued certificates, and the stores
that own each collection.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entities: Course, Learner, Organization, LearnerProgress, Certificate
  - Drafts: creation payloads without id and timestamps
  - Status enums for each entity

RELATIONSHIPS:
  Relationships are denormalized: a Learner copies its organization's name
  and id at creation time, a Certificate copies learner/course/organization
  names. There is no cascade; deleting an organization leaves its learners.

SEE ALSO:
  - stores.go: Store constructors
  - stats.go: Dashboard summary
*/
package certs

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS ENUMS
// =============================================================================

type CourseStatus string

const (
	CourseActive   CourseStatus = "active"
	CourseInactive CourseStatus = "inactive"
	CourseInDraft  CourseStatus = "draft"
)

type LearnerStatus string

const (
	LearnerActive    LearnerStatus = "active"
	LearnerInactive  LearnerStatus = "inactive"
	LearnerSuspended LearnerStatus = "suspended"
)

type OrganizationStatus string

const (
	OrganizationActive   OrganizationStatus = "active"
	OrganizationInactive OrganizationStatus = "inactive"
	OrganizationPending  OrganizationStatus = "pending"
)

type CompletionStatus string

const (
	Completed  CompletionStatus = "completed"
	InProgress CompletionStatus = "in-progress"
	NotStarted CompletionStatus = "not-started"
	Blocked    CompletionStatus = "blocked"
)

type CertificateStatus string

const (
	CertificateIssued      CertificateStatus = "issued"
	CertificatePending     CertificateStatus = "pending"
	CertificateNotEligible CertificateStatus = "not-eligible"
	CertificateRevoked     CertificateStatus = "revoked"
)

// =============================================================================
// COURSE
// =============================================================================

type Course struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	CourseID            string       `json:"courseId"`
	CertificateTemplate string       `json:"certificateTemplate,omitempty"` // filename or URL
	Status              CourseStatus `json:"status"`
	TotalLearners       int          `json:"totalLearners"`
	CompletedLearners   int          `json:"completedLearners"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

type CourseDraft struct {
	Name                string       `json:"name"`
	CourseID            string       `json:"courseId"`
	CertificateTemplate string       `json:"certificateTemplate,omitempty"`
	Status              CourseStatus `json:"status"`
	TotalLearners       int          `json:"totalLearners"`
	CompletedLearners   int          `json:"completedLearners"`
}

func (c Course) Key() string { return c.ID }

func (c Course) Touched(at time.Time) Course {
	c.UpdatedAt = at
	return c
}

// CompletionRate is the completed share of enrolled learners, as a
// percentage rounded to one decimal place. Zero when nobody is enrolled.
func (c Course) CompletionRate() decimal.Decimal {
	return percent(c.CompletedLearners, c.TotalLearners)
}

// =============================================================================
// LEARNER
// =============================================================================

type Learner struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Organization     string        `json:"organization"`
	OrganizationID   string        `json:"organizationId"`
	Status           LearnerStatus `json:"status"`
	TotalCourses     int           `json:"totalCourses"`
	CompletedCourses int           `json:"completedCourses"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type LearnerDraft struct {
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Organization     string        `json:"organization"`
	OrganizationID   string        `json:"organizationId"`
	Status           LearnerStatus `json:"status"`
	TotalCourses     int           `json:"totalCourses"`
	CompletedCourses int           `json:"completedCourses"`
}

func (l Learner) Key() string { return l.ID }

func (l Learner) Touched(at time.Time) Learner {
	l.UpdatedAt = at
	return l
}

// =============================================================================
// ORGANIZATION
// =============================================================================

type Organization struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Website       string             `json:"website"`
	SOPEmail      string             `json:"sopEmail"`
	Status        OrganizationStatus `json:"status"`
	TotalLearners int                `json:"totalLearners"`
	TotalCourses  int                `json:"totalCourses"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type OrganizationDraft struct {
	Name          string             `json:"name"`
	Website       string             `json:"website"`
	SOPEmail      string             `json:"sopEmail"`
	Status        OrganizationStatus `json:"status"`
	TotalLearners int                `json:"totalLearners"`
	TotalCourses  int                `json:"totalCourses"`
}

func (o Organization) Key() string { return o.ID }

func (o Organization) Touched(at time.Time) Organization {
	o.UpdatedAt = at
	return o
}

// =============================================================================
// LEARNER PROGRESS - join of Learner and Course
// =============================================================================

type LearnerProgress struct {
	ID                string            `json:"id"`
	LearnerID         string            `json:"learnerId"`
	CourseID          string            `json:"courseId"`
	LearnerName       string            `json:"learnerName"`
	Email             string            `json:"email"`
	Organization      string            `json:"organization"`
	OrganizationID    string            `json:"organizationId"`
	Course            string            `json:"course"`
	EnrollmentDate    time.Time         `json:"enrollmentDate"`
	CompletionStatus  CompletionStatus  `json:"completionStatus"`
	CertificateStatus CertificateStatus `json:"certificateStatus"`
	Progress          int               `json:"progress"` // 0-100
	LastActivity      time.Time         `json:"lastActivity"`
	CertificateID     string            `json:"certificateId,omitempty"`
	CompletionDate    *time.Time        `json:"completionDate,omitempty"`
}

// ProgressDraft enrolls a learner in a course.
type ProgressDraft struct {
	LearnerID      string `json:"learnerId"`
	CourseID       string `json:"courseId"`
	LearnerName    string `json:"learnerName"`
	Email          string `json:"email"`
	Organization   string `json:"organization"`
	OrganizationID string `json:"organizationId"`
	Course         string `json:"course"`
}

func (p LearnerProgress) Key() string { return p.ID }

// Touched records activity; progress has no separate UpdatedAt.
func (p LearnerProgress) Touched(at time.Time) LearnerProgress {
	p.LastActivity = at
	return p
}

// =============================================================================
// CERTIFICATE
// =============================================================================

type Certificate struct {
	ID               string            `json:"id"`
	LearnerID        string            `json:"learnerId"`
	CourseID         string            `json:"courseId"`
	LearnerName      string            `json:"learnerName"`
	CourseName       string            `json:"courseName"`
	OrganizationName string            `json:"organizationName"`
	OrganizationID   string            `json:"organizationId"`
	IssuedDate       time.Time         `json:"issuedDate"`
	Status           CertificateStatus `json:"status"`
	CertificateID    string            `json:"certificateId"`
	DownloadURL      string            `json:"downloadUrl,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// CertificateRequest asks the source to generate a certificate.
type CertificateRequest struct {
	LearnerID string `json:"learnerId"`
	CourseID  string `json:"courseId"`
}

func (c Certificate) Key() string { return c.ID }

func (c Certificate) Touched(at time.Time) Certificate {
	c.UpdatedAt = at
	return c
}

// =============================================================================
// HELPERS
// =============================================================================

func percent(part, whole int) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1)
}

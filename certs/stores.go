package certs

import (
	"context"
	"fmt"
	"io"

	"github.com/warp/certdash/generic"
)

// =============================================================================
// SOURCES - what each store needs from the remote data source
// =============================================================================

type (
	CourseSource       = generic.Source[Course, CourseDraft]
	OrganizationSource = generic.Source[Organization, OrganizationDraft]
	ProgressSource     = generic.Source[LearnerProgress, ProgressDraft]
)

// LearnerSource adds bulk import to the learner list/create calls.
type LearnerSource interface {
	generic.Source[Learner, LearnerDraft]
	Upload(ctx context.Context, drafts []LearnerDraft) ([]Learner, error)
}

// CertificateSource generates certificates (Create) and resolves download links.
type CertificateSource interface {
	generic.Source[Certificate, CertificateRequest]
	Download(ctx context.Context, certificateID string) (string, error)
}

// =============================================================================
// PLAIN STORES
// =============================================================================

type (
	CourseStore       = generic.EntityStore[Course, CourseDraft]
	OrganizationStore = generic.EntityStore[Organization, OrganizationDraft]
)

func NewCourseStore(src CourseSource, opts ...generic.Option) *CourseStore {
	return generic.NewEntityStore[Course, CourseDraft]("courses", generic.KeyCourses, src, opts...)
}

func NewOrganizationStore(src OrganizationSource, opts ...generic.Option) *OrganizationStore {
	return generic.NewEntityStore[Organization, OrganizationDraft]("organizations", generic.KeyOrganizations, src, opts...)
}

// =============================================================================
// LEARNERS
// =============================================================================

type LearnerStore struct {
	*generic.EntityStore[Learner, LearnerDraft]
	src LearnerSource
}

func NewLearnerStore(src LearnerSource, opts ...generic.Option) *LearnerStore {
	return &LearnerStore{
		EntityStore: generic.NewEntityStore[Learner, LearnerDraft]("learners", generic.KeyLearners, src, opts...),
		src:         src,
	}
}

// Upload imports learners from a CSV document and appends the created
// learners. A parse failure, a remote failure or an id collision leaves the
// collection unchanged and sets State.Error.
func (s *LearnerStore) Upload(ctx context.Context, csv io.Reader) ([]Learner, bool) {
	var created []Learner
	ok := s.Do(ctx, "upload", func(ctx context.Context) error {
		drafts, err := ParseLearnerCSV(csv)
		if err != nil {
			return err
		}
		learners, err := s.src.Upload(ctx, drafts)
		if err != nil {
			return err
		}
		if err := s.Append(learners...); err != nil {
			return err
		}
		created = learners
		return nil
	})
	return created, ok
}

// ForOrganization returns the learners whose organizationId is orgID.
func (s *LearnerStore) ForOrganization(orgID string) []Learner {
	var out []Learner
	for _, l := range s.Items() {
		if l.OrganizationID == orgID {
			out = append(out, l)
		}
	}
	return out
}

// =============================================================================
// LEARNER PROGRESS
// =============================================================================

type ProgressStore struct {
	*generic.EntityStore[LearnerProgress, ProgressDraft]
}

func NewProgressStore(src ProgressSource, opts ...generic.Option) *ProgressStore {
	return &ProgressStore{
		EntityStore: generic.NewEntityStore[LearnerProgress, ProgressDraft]("progress", generic.KeyProgress, src, opts...),
	}
}

// Enroll creates a progress row for learner in course.
func (s *ProgressStore) Enroll(ctx context.Context, learner Learner, course Course) (LearnerProgress, bool) {
	return s.Create(ctx, EnrollmentDraft(learner, course))
}

// EnrollmentDraft copies the learner and course names into a progress draft.
func EnrollmentDraft(learner Learner, course Course) ProgressDraft {
	return ProgressDraft{
		LearnerID:      learner.ID,
		CourseID:       course.ID,
		LearnerName:    learner.Name,
		Email:          learner.Email,
		Organization:   learner.Organization,
		OrganizationID: learner.OrganizationID,
		Course:         course.Name,
	}
}

// Filter returns the rows matching q, in collection order.
func (s *ProgressStore) Filter(q ProgressQuery) []LearnerProgress {
	var out []LearnerProgress
	for _, p := range s.Items() {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// CERTIFICATES
// =============================================================================

type CertificateStore struct {
	*generic.EntityStore[Certificate, CertificateRequest]
	src CertificateSource
}

func NewCertificateStore(src CertificateSource, opts ...generic.Option) *CertificateStore {
	return &CertificateStore{
		EntityStore: generic.NewEntityStore[Certificate, CertificateRequest]("certificates", generic.KeyCertificates, src, opts...),
		src:         src,
	}
}

// Generate requests a certificate for learner in course.
func (s *CertificateStore) Generate(ctx context.Context, learnerID, courseID string) (Certificate, bool) {
	return s.Create(ctx, CertificateRequest{LearnerID: learnerID, CourseID: courseID})
}

// Download resolves the download link of the certificate with id and
// records it on the entity.
func (s *CertificateStore) Download(ctx context.Context, id string) (string, bool) {
	var url string
	ok := s.Do(ctx, "download", func(ctx context.Context) error {
		cert, found := s.Get(id)
		if !found {
			return fmt.Errorf("certificate %q: %w", id, generic.ErrEntityNotFound)
		}
		if cert.Status == CertificateRevoked {
			return fmt.Errorf("certificate %s is revoked", cert.CertificateID)
		}
		u, err := s.src.Download(ctx, cert.CertificateID)
		if err != nil {
			return err
		}
		s.Update(id, func(c *Certificate) { c.DownloadURL = u })
		url = u
		return nil
	})
	return url, ok
}

// Revoke marks the certificate as revoked locally.
func (s *CertificateStore) Revoke(id string) (Certificate, bool) {
	return s.Update(id, func(c *Certificate) {
		c.Status = CertificateRevoked
		c.DownloadURL = ""
	})
}

// ForOrganization returns the certificates issued to learners of orgID.
func (s *CertificateStore) ForOrganization(orgID string) []Certificate {
	var out []Certificate
	for _, c := range s.Items() {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	return out
}

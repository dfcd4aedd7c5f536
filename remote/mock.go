/*
Package remote provides the data sources behind the stores.

IMPLEMENTATIONS:
  - Mock: in-process collections seeded with fixtures, with simulated latency
  - Client: HTTP+JSON client for a real backend (client.go)

MOCK BEHAVIOUR:
  - Every call sleeps for its configured latency, honouring ctx
  - Created entities get a monotonic time-based id and are kept, so a
    later List returns them
  - SetFailure makes every call on a collection fail until cleared
  - Credentials are checked against bcrypt hashes of FixturePassword
  - Session tokens are "<userID>.<uuid>" and resolve without server state,
    so a token persisted before a restart still resolves afterwards
*/
package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
)

// Latency is the simulated round-trip time of each mock call.
type Latency struct {
	List    time.Duration `yaml:"list"`
	Create  time.Duration `yaml:"create"`
	Upload  time.Duration `yaml:"upload"`
	Login   time.Duration `yaml:"login"`
	Resolve time.Duration `yaml:"resolve"`
}

// DefaultLatency mirrors a slow backend.
func DefaultLatency() Latency {
	return Latency{
		List:    1000 * time.Millisecond,
		Create:  1500 * time.Millisecond,
		Upload:  2000 * time.Millisecond,
		Login:   1500 * time.Millisecond,
		Resolve: 500 * time.Millisecond,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// IDS
// =============================================================================

// idGen hands out millisecond timestamps as ids, bumping on collision so
// ids stay unique within a burst.
type idGen struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *idGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}

// =============================================================================
// COLLECTION
// =============================================================================

// Collection is a mock Source for one entity type.
type Collection[T generic.Entity[T], D any] struct {
	name    string
	latency *Latency
	ids     *idGen
	now     func() time.Time
	build   func(id string, now time.Time, d D) (T, error)

	mu    sync.Mutex
	items []T
	fail  error
	calls int
}

// List returns every entity after the list latency.
func (c *Collection[T, D]) List(ctx context.Context) ([]T, error) {
	if err := c.enter(ctx, c.latency.List); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out, nil
}

// Create builds an entity from d after the create latency.
func (c *Collection[T, D]) Create(ctx context.Context, d D) (T, error) {
	var zero T
	if err := c.enter(ctx, c.latency.Create); err != nil {
		return zero, err
	}
	item, err := c.build(c.ids.next(), c.now(), d)
	if err != nil {
		return zero, err
	}
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	return item, nil
}

// SetFailure makes every following call fail with err. nil restores normal operation.
func (c *Collection[T, D]) SetFailure(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// Calls returns how many calls reached the collection.
func (c *Collection[T, D]) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Collection[T, D]) find(pred func(T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T, D]) enter(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.calls++
	fail := c.fail
	c.mu.Unlock()
	if err := sleep(ctx, d); err != nil {
		return err
	}
	if fail != nil {
		return fmt.Errorf("%s: %w", c.name, fail)
	}
	return nil
}

// =============================================================================
// MOCK
// =============================================================================

// Mock bundles every mock source over one shared fixture set.
type Mock struct {
	Courses       *Collection[certs.Course, certs.CourseDraft]
	Learners      *MockLearners
	Organizations *Collection[certs.Organization, certs.OrganizationDraft]
	Progress      *Collection[certs.LearnerProgress, certs.ProgressDraft]
	Certificates  *MockCertificates
	Auth          *MockAuthenticator
}

// MockOption configures NewMock.
type MockOption func(*mockConfig)

type mockConfig struct {
	latency     Latency
	now         func() time.Time
	downloadURL string
	empty       bool
}

// WithLatency replaces DefaultLatency.
func WithLatency(l Latency) MockOption {
	return func(c *mockConfig) { c.latency = l }
}

// WithMockClock overrides time.Now for ids and timestamps.
func WithMockClock(now func() time.Time) MockOption {
	return func(c *mockConfig) { c.now = now }
}

// WithDownloadBase sets the URL prefix of certificate download links.
func WithDownloadBase(u string) MockOption {
	return func(c *mockConfig) { c.downloadURL = strings.TrimRight(u, "/") }
}

// WithoutFixtures starts every collection empty. Users are still seeded.
func WithoutFixtures() MockOption {
	return func(c *mockConfig) { c.empty = true }
}

// NewMock creates mock sources seeded with fixtures.
func NewMock(opts ...MockOption) *Mock {
	cfg := mockConfig{
		latency:     DefaultLatency(),
		now:         time.Now,
		downloadURL: "https://certificates.example.com",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	lat := &cfg.latency
	ids := &idGen{now: cfg.now}

	m := &Mock{}
	m.Courses = &Collection[certs.Course, certs.CourseDraft]{
		name: "courses", latency: lat, ids: ids, now: cfg.now,
		build: func(id string, now time.Time, d certs.CourseDraft) (certs.Course, error) {
			if d.Status == "" {
				d.Status = certs.CourseInDraft
			}
			return certs.Course{
				ID: id, Name: d.Name, CourseID: d.CourseID, CertificateTemplate: d.CertificateTemplate,
				Status: d.Status, TotalLearners: d.TotalLearners, CompletedLearners: d.CompletedLearners,
				CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}
	m.Organizations = &Collection[certs.Organization, certs.OrganizationDraft]{
		name: "organizations", latency: lat, ids: ids, now: cfg.now,
		build: func(id string, now time.Time, d certs.OrganizationDraft) (certs.Organization, error) {
			if d.Status == "" {
				d.Status = certs.OrganizationPending
			}
			return certs.Organization{
				ID: "org-" + id, Name: d.Name, Website: d.Website, SOPEmail: d.SOPEmail, Status: d.Status,
				TotalLearners: d.TotalLearners, TotalCourses: d.TotalCourses, CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}
	m.Progress = &Collection[certs.LearnerProgress, certs.ProgressDraft]{
		name: "progress", latency: lat, ids: ids, now: cfg.now,
		build: func(id string, now time.Time, d certs.ProgressDraft) (certs.LearnerProgress, error) {
			return certs.LearnerProgress{
				ID: "p-" + id, LearnerID: d.LearnerID, CourseID: d.CourseID, LearnerName: d.LearnerName,
				Email: d.Email, Organization: d.Organization, OrganizationID: d.OrganizationID, Course: d.Course,
				EnrollmentDate: now, CompletionStatus: certs.NotStarted, CertificateStatus: certs.CertificateNotEligible,
				LastActivity: now,
			}, nil
		},
	}
	m.Learners = &MockLearners{Collection: &Collection[certs.Learner, certs.LearnerDraft]{
		name: "learners", latency: lat, ids: ids, now: cfg.now,
		build: func(id string, now time.Time, d certs.LearnerDraft) (certs.Learner, error) {
			if d.Status == "" {
				d.Status = certs.LearnerActive
			}
			return certs.Learner{
				ID: id, Name: d.Name, Email: d.Email, Organization: d.Organization, OrganizationID: d.OrganizationID,
				Status: d.Status, TotalCourses: d.TotalCourses, CompletedCourses: d.CompletedCourses,
				CreatedAt: now, UpdatedAt: now,
			}, nil
		},
	}}
	m.Certificates = &MockCertificates{downloadBase: cfg.downloadURL}
	m.Certificates.Collection = &Collection[certs.Certificate, certs.CertificateRequest]{
		name: "certificates", latency: lat, ids: ids, now: cfg.now,
		build: m.issue,
	}
	m.Auth = newMockAuthenticator(lat, cfg.now)

	if !cfg.empty {
		m.Courses.items = fixtureCourses()
		m.Learners.items = fixtureLearners()
		m.Organizations.items = fixtureOrganizations()
		m.Progress.items = fixtureProgress()
		m.Certificates.items = fixtureCertificates()
	}
	return m
}

// issue builds a certificate from the learner, course and (if any)
// progress row it names. A learner enrolled but not finished is refused.
func (m *Mock) issue(id string, now time.Time, r certs.CertificateRequest) (certs.Certificate, error) {
	learner, ok := m.Learners.find(func(l certs.Learner) bool { return l.ID == r.LearnerID })
	if !ok {
		return certs.Certificate{}, &generic.RemoteError{Status: 404, Message: "unknown learner " + r.LearnerID}
	}
	course, ok := m.Courses.find(func(c certs.Course) bool { return c.ID == r.CourseID })
	if !ok {
		return certs.Certificate{}, &generic.RemoteError{Status: 404, Message: "unknown course " + r.CourseID}
	}
	row, enrolled := m.Progress.find(func(p certs.LearnerProgress) bool {
		return p.LearnerID == r.LearnerID && p.CourseID == r.CourseID
	})
	if enrolled && row.CompletionStatus != certs.Completed {
		return certs.Certificate{}, &generic.RemoteError{Status: 409, Message: learner.Name + " has not completed " + course.Name}
	}
	return certs.Certificate{
		ID: "c-" + id, LearnerID: learner.ID, CourseID: course.ID,
		LearnerName: learner.Name, CourseName: course.Name,
		OrganizationName: learner.Organization, OrganizationID: learner.OrganizationID,
		IssuedDate: now, Status: certs.CertificateIssued,
		CertificateID: fmt.Sprintf("CERT-%s-%s", course.CourseID, id),
		UpdatedAt:     now,
	}, nil
}

// =============================================================================
// LEARNERS & CERTIFICATES
// =============================================================================

// MockLearners adds bulk upload to the learner collection.
type MockLearners struct {
	*Collection[certs.Learner, certs.LearnerDraft]
}

// Upload creates one learner per draft after the upload latency.
func (l *MockLearners) Upload(ctx context.Context, drafts []certs.LearnerDraft) ([]certs.Learner, error) {
	if err := l.enter(ctx, l.latency.Upload); err != nil {
		return nil, err
	}
	now := l.now()
	out := make([]certs.Learner, 0, len(drafts))
	for _, d := range drafts {
		learner, err := l.build(l.ids.next(), now, d)
		if err != nil {
			return nil, err
		}
		out = append(out, learner)
	}
	l.mu.Lock()
	l.items = append(l.items, out...)
	l.mu.Unlock()
	return out, nil
}

// MockCertificates adds download links to the certificate collection.
type MockCertificates struct {
	*Collection[certs.Certificate, certs.CertificateRequest]
	downloadBase string
}

// Download returns the link for certificateID (the human code).
func (c *MockCertificates) Download(ctx context.Context, certificateID string) (string, error) {
	if err := c.enter(ctx, c.latency.List); err != nil {
		return "", err
	}
	cert, ok := c.find(func(x certs.Certificate) bool { return x.CertificateID == certificateID })
	if !ok {
		return "", fmt.Errorf("certificate %s: %w", certificateID, generic.ErrEntityNotFound)
	}
	if cert.Status == certs.CertificateRevoked {
		return "", &generic.RemoteError{Status: 410, Message: "certificate " + certificateID + " is revoked"}
	}
	return c.downloadBase + "/" + certificateID + ".pdf", nil
}

// =============================================================================
// AUTHENTICATOR
// =============================================================================

type mockAccount struct {
	user auth.User
	hash []byte
}

// MockAuthenticator checks fixture credentials.
type MockAuthenticator struct {
	latency *Latency
	now     func() time.Time

	mu       sync.Mutex
	accounts []mockAccount
	resolves int
}

func newMockAuthenticator(lat *Latency, now func() time.Time) *MockAuthenticator {
	// Fixture accounts only; MinCost keeps construction fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("remote: hash fixture password: %v", err))
	}
	a := &MockAuthenticator{latency: lat, now: now}
	for _, u := range fixtureUsers() {
		a.accounts = append(a.accounts, mockAccount{user: u, hash: hash})
	}
	return a
}

// Login verifies email and password and opens a session.
func (a *MockAuthenticator) Login(ctx context.Context, email, password string) (auth.Session, error) {
	if err := sleep(ctx, a.latency.Login); err != nil {
		return auth.Session{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.accounts {
		acct := &a.accounts[i]
		if !strings.EqualFold(acct.user.Email, strings.TrimSpace(email)) {
			continue
		}
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
			break
		}
		acct.user.LastLogin = a.now()
		return auth.Session{Token: acct.user.ID + "." + uuid.NewString(), User: acct.user}, nil
	}
	return auth.Session{}, generic.ErrInvalidCredentials
}

// Resolve maps a session token back to its user.
func (a *MockAuthenticator) Resolve(ctx context.Context, token string) (auth.User, error) {
	a.mu.Lock()
	a.resolves++
	a.mu.Unlock()
	if err := sleep(ctx, a.latency.Resolve); err != nil {
		return auth.User{}, err
	}
	userID, nonce, ok := strings.Cut(token, ".")
	if !ok {
		return auth.User{}, generic.ErrSessionNotFound
	}
	if _, err := uuid.Parse(nonce); err != nil {
		return auth.User{}, generic.ErrSessionNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acct := range a.accounts {
		if acct.user.ID == userID {
			return acct.user, nil
		}
	}
	return auth.User{}, generic.ErrSessionNotFound
}

// Resolves returns how many Resolve calls were made.
func (a *MockAuthenticator) Resolves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolves
}

package remote_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/remote"
)

func fast(opts ...remote.MockOption) *remote.Mock {
	return remote.NewMock(append([]remote.MockOption{remote.WithLatency(remote.Latency{})}, opts...)...)
}

// Compile-time checks that the mock satisfies every store's source.
var (
	_ certs.CourseSource       = (*remote.Collection[certs.Course, certs.CourseDraft])(nil)
	_ certs.LearnerSource      = (*remote.MockLearners)(nil)
	_ certs.CertificateSource  = (*remote.MockCertificates)(nil)
	_ auth.Authenticator       = (*remote.MockAuthenticator)(nil)
	_ certs.OrganizationSource = (*remote.Collection[certs.Organization, certs.OrganizationDraft])(nil)
)

func TestMock_Fixtures(t *testing.T) {
	m := fast()
	ctx := context.Background()

	courses, err := m.Courses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 3)

	learners, _ := m.Learners.List(ctx)
	orgs, _ := m.Organizations.List(ctx)
	progress, _ := m.Progress.List(ctx)
	issued, _ := m.Certificates.List(ctx)
	assert.Len(t, learners, 3)
	assert.Len(t, orgs, 3)
	assert.Len(t, progress, 4)
	assert.Len(t, issued, 1)

	for _, l := range learners {
		assert.True(t, strings.HasPrefix(l.OrganizationID, "org-"), "learner %s points at an organization id", l.ID)
	}
}

func TestMock_WithoutFixtures(t *testing.T) {
	m := fast(remote.WithoutFixtures())

	courses, err := m.Courses.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestMock_CreateAssignsUniqueIDs(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	m := fast(remote.WithMockClock(func() time.Time { return now }))
	ctx := context.Background()

	a, err := m.Organizations.Create(ctx, certs.OrganizationDraft{Name: "A", Website: "a.io", SOPEmail: "sop@a.io"})
	require.NoError(t, err)
	b, err := m.Organizations.Create(ctx, certs.OrganizationDraft{Name: "B", Website: "b.io", SOPEmail: "sop@b.io"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID, "same clock reading still yields distinct ids")
	assert.True(t, strings.HasPrefix(a.ID, "org-"))
	assert.Equal(t, certs.OrganizationPending, a.Status)
	assert.Equal(t, now, a.CreatedAt)
}

func TestMock_SetFailureIsSticky(t *testing.T) {
	m := fast()
	ctx := context.Background()
	boom := errors.New("boom")

	m.Courses.SetFailure(boom)
	_, err1 := m.Courses.List(ctx)
	_, err2 := m.Courses.Create(ctx, certs.CourseDraft{Name: "x", CourseID: "X"})
	m.Courses.SetFailure(nil)
	_, err3 := m.Courses.List(ctx)

	assert.ErrorIs(t, err1, boom)
	assert.ErrorIs(t, err2, boom)
	assert.NoError(t, err3)
	assert.Equal(t, 3, m.Courses.Calls())
}

func TestMock_LatencyHonoursContext(t *testing.T) {
	m := remote.NewMock(remote.WithLatency(remote.Latency{List: time.Hour}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Courses.List(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMock_IssueUnknownLearner(t *testing.T) {
	m := fast()

	_, err := m.Certificates.Create(context.Background(), certs.CertificateRequest{LearnerID: "99", CourseID: "1"})

	var re *generic.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 404, re.Status)
}

func TestMock_IssueWithoutEnrollment(t *testing.T) {
	m := fast()

	cert, err := m.Certificates.Create(context.Background(), certs.CertificateRequest{LearnerID: "3", CourseID: "1"})

	require.NoError(t, err, "a learner with no progress row may still be issued a certificate")
	assert.Equal(t, "Mike Johnson", cert.LearnerName)
}

func TestMock_DownloadNotFound(t *testing.T) {
	m := fast()

	_, err := m.Certificates.Download(context.Background(), "CERT-NOPE")

	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

func TestMock_UploadAppendsToList(t *testing.T) {
	m := fast()
	ctx := context.Background()

	created, err := m.Learners.Upload(ctx, []certs.LearnerDraft{
		{Name: "A", Email: "a@x.io"},
		{Name: "B", Email: "b@x.io", Status: certs.LearnerInactive},
	})
	require.NoError(t, err)

	assert.Equal(t, certs.LearnerActive, created[0].Status)
	assert.Equal(t, certs.LearnerInactive, created[1].Status)
	all, _ := m.Learners.List(ctx)
	assert.Len(t, all, 5)
}

// =============================================================================
// AUTHENTICATOR
// =============================================================================

func TestMockAuthenticator_LoginAndResolve(t *testing.T) {
	m := fast()
	ctx := context.Background()

	sess, err := m.Auth.Login(ctx, "admin@example.com", remote.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, sess.User.Role)
	assert.True(t, strings.HasPrefix(sess.Token, sess.User.ID+"."))

	u, err := m.Auth.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)
	assert.Equal(t, 1, m.Auth.Resolves())
}

func TestMockAuthenticator_TokenSurvivesNewMock(t *testing.T) {
	ctx := context.Background()
	sess, err := fast().Auth.Login(ctx, "sop@acme-corp.com", remote.FixturePassword)
	require.NoError(t, err)

	u, err := fast().Auth.Resolve(ctx, sess.Token)

	require.NoError(t, err)
	assert.Equal(t, "org-1", u.OrganizationID)
}

func TestMockAuthenticator_Rejects(t *testing.T) {
	m := fast()
	ctx := context.Background()

	_, err := m.Auth.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	_, err = m.Auth.Login(ctx, "stranger@example.com", remote.FixturePassword)
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	for _, token := range []string{"", "garbage", "1.not-a-uuid", "42.5b0d2c1e-7d5d-4c8e-9a57-1d5f3c2b8a10"} {
		_, err = m.Auth.Resolve(ctx, token)
		assert.ErrorIs(t, err, generic.ErrSessionNotFound, token)
	}
}

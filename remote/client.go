package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
)

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client talks to a backend that answers every call with an envelope:
//
//	{"ok": true, "data": ...}
//	{"ok": false, "error": {"message": "..."}}
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client rooted at base (e.g. https://api.example.com/v1).
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do sends body (if non-nil) as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &generic.RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.OK || resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return &generic.RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s data: %w", method, path, err)
	}
	return nil
}

// =============================================================================
// RESOURCES
// =============================================================================

// Resource is a list/create endpoint pair for one entity type.
type Resource[T any, D any] struct {
	c    *Client
	path string
}

func (r Resource[T, D]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.c.do(ctx, http.MethodGet, r.path, nil, nil, &out)
	return out, err
}

func (r Resource[T, D]) Create(ctx context.Context, d D) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPost, r.path, nil, d, &out)
	return out, err
}

func (c *Client) Courses() Resource[certs.Course, certs.CourseDraft] {
	return Resource[certs.Course, certs.CourseDraft]{c: c, path: "/courses"}
}

func (c *Client) Organizations() Resource[certs.Organization, certs.OrganizationDraft] {
	return Resource[certs.Organization, certs.OrganizationDraft]{c: c, path: "/organizations"}
}

func (c *Client) Progress() Resource[certs.LearnerProgress, certs.ProgressDraft] {
	return Resource[certs.LearnerProgress, certs.ProgressDraft]{c: c, path: "/progress"}
}

// LearnerResource adds bulk upload.
type LearnerResource struct {
	Resource[certs.Learner, certs.LearnerDraft]
}

func (c *Client) Learners() LearnerResource {
	return LearnerResource{Resource[certs.Learner, certs.LearnerDraft]{c: c, path: "/learners"}}
}

func (r LearnerResource) Upload(ctx context.Context, drafts []certs.LearnerDraft) ([]certs.Learner, error) {
	var out []certs.Learner
	err := r.c.do(ctx, http.MethodPost, r.path+"/upload", nil, drafts, &out)
	return out, err
}

// CertificateResource adds download links.
type CertificateResource struct {
	Resource[certs.Certificate, certs.CertificateRequest]
}

func (c *Client) Certificates() CertificateResource {
	return CertificateResource{Resource[certs.Certificate, certs.CertificateRequest]{c: c, path: "/certificates"}}
}

func (r CertificateResource) Download(ctx context.Context, certificateID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := r.c.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(certificateID)+"/download", nil, nil, &out)
	return out.URL, err
}

// =============================================================================
// AUTH
// =============================================================================

// Auth returns an auth.Authenticator backed by the /auth endpoints.
func (c *Client) Auth() Authenticator { return Authenticator{c: c} }

type Authenticator struct{ c *Client }

func (a Authenticator) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var sess auth.Session
	err := a.c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &sess)
	if unauthorized(err) {
		return auth.Session{}, generic.ErrInvalidCredentials
	}
	return sess, err
}

func (a Authenticator) Resolve(ctx context.Context, token string) (auth.User, error) {
	var u auth.User
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	err := a.c.do(ctx, http.MethodGet, "/auth/session", h, nil, &u)
	if unauthorized(err) {
		return auth.User{}, generic.ErrSessionNotFound
	}
	return u, err
}

func unauthorized(err error) bool {
	var re *generic.RemoteError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}

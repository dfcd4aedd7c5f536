/*
handlers.go - HTTP API over the dashboard stores

PURPOSE:
  The presentation surface. Every handler reads store state or invokes a
  store action, the way a view would; no handler keeps state of its own.

ENDPOINTS:
  Dashboard:
    GET    /api/state                     Every store at once
    POST   /api/refresh                   FetchAll on every entity store
    GET    /api/stats                     Summary counts and rates

  Collections (courses, learners, organizations, progress, certificates):
    GET    /api/{collection}              State (items, selected, loading, error)
    POST   /api/{collection}              Create (waits for the remote call)
    POST   /api/{collection}/refresh      FetchAll
    GET    /api/{collection}/{id}         One entity
    PATCH  /api/{collection}/{id}         Shallow merge
    DELETE /api/{collection}/{id}         Remove
    POST   /api/{collection}/{id}/select  Focus
    DELETE /api/{collection}/selected     Clear focus

  Extras:
    POST   /api/learners/upload           CSV bulk import
    GET    /api/progress/table            Filtered, paginated by the UI cursor
    POST   /api/certificates/generate     Generate (alias of create)
    GET    /api/certificates/{id}/download
    POST   /api/certificates/{id}/revoke

  Auth:
    POST   /api/auth/login, POST /api/auth/logout
    GET    /api/auth/session, POST /api/auth/check

  UI: see ui.go

ROLE SCOPING:
  The process serves one dashboard session. While an SOP user is signed in
  learners, organizations, progress and certificates outside their
  organization are hidden from every read. Admins and anonymous callers
  see everything. Writes are not gated.

ERROR HANDLING:
  - 400: malformed body, validation failure
  - 401: login rejected
  - 404: unknown or hidden id
  - 409: certificate cannot be downloaded
  - 502: the remote call behind a store action failed (message from State.Error)

SEE ALSO:
  - entities.go: Generic collection routes
  - ui.go: UI store routes
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/factory"
	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/ui"
)

// maxUpload bounds CSV imports.
const maxUpload = 5 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler serves the API over one App.
type Handler struct {
	App    *factory.App
	Logger *zap.Logger

	courses       entityRoutes[certs.Course, certs.CourseDraft]
	learners      entityRoutes[certs.Learner, certs.LearnerDraft]
	organizations entityRoutes[certs.Organization, certs.OrganizationDraft]
	progress      entityRoutes[certs.LearnerProgress, certs.ProgressDraft]
	certificates  entityRoutes[certs.Certificate, certs.CertificateRequest]
}

// NewHandler creates a handler over app.
func NewHandler(app *factory.App) *Handler {
	h := &Handler{App: app, Logger: app.Logger}
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	h.courses = entityRoutes[certs.Course, certs.CourseDraft]{
		h: h, store: app.Courses, label: "course",
	}
	h.learners = entityRoutes[certs.Learner, certs.LearnerDraft]{
		h: h, store: app.Learners, label: "learner",
		orgOf: func(l certs.Learner) string { return l.OrganizationID },
	}
	h.organizations = entityRoutes[certs.Organization, certs.OrganizationDraft]{
		h: h, store: app.Organizations, label: "organization",
		orgOf: func(o certs.Organization) string { return o.ID },
	}
	h.progress = entityRoutes[certs.LearnerProgress, certs.ProgressDraft]{
		h: h, store: app.Progress, label: "enrollment",
		orgOf:   func(p certs.LearnerProgress) string { return p.OrganizationID },
		prepare: h.prepareEnrollment,
	}
	h.certificates = entityRoutes[certs.Certificate, certs.CertificateRequest]{
		h: h, store: app.Certificates, label: "certificate",
		orgOf: func(c certs.Certificate) string { return c.OrganizationID },
	}
	return h
}

// visibleOrg returns the organization filter for the current session.
func (h *Handler) visibleOrg() func(orgID string) bool {
	user, ok := h.App.Auth.CurrentUser()
	if !ok {
		return func(string) bool { return true }
	}
	return user.CanView
}

// notify queues a UI notification the way a view would after an action.
func (h *Handler) notify(kind ui.NotificationType, title, message string) {
	h.App.UI.Notify(ui.NotificationDraft{Type: kind, Title: title, Message: message})
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetState returns every store, scoped to the current user.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DashboardDTO{
		Auth:          sessionDTO(h.App.Auth.State()),
		Courses:       h.courses.view(h.App.Courses.State()),
		Learners:      h.learners.view(h.App.Learners.State()),
		Organizations: h.organizations.view(h.App.Organizations.State()),
		Progress:      h.progress.view(h.App.Progress.State()),
		Certificates:  h.certificates.view(h.App.Certificates.State()),
		UI:            h.App.UI.State(),
	})
}

// Refresh fetches every collection concurrently.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Refresh interrupted", err)
		return
	}
	h.GetState(w, r)
}

// GetStats summarizes the collections the current user can see.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	summary := certs.Summarize(
		h.courses.view(h.App.Courses.State()).Items,
		h.learners.view(h.App.Learners.State()).Items,
		h.organizations.view(h.App.Organizations.State()).Items,
		h.progress.view(h.App.Progress.State()).Items,
		h.certificates.view(h.App.Certificates.State()).Items,
	)
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// LEARNERS
// =============================================================================

// UploadLearners imports a CSV document, sent either as the raw body or
// as the "file" field of a multipart form.
func (h *Handler) UploadLearners(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file field", err)
			return
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	if _, err := certs.ParseLearnerCSV(bytes.NewReader(data)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	created, ok := h.App.Learners.Upload(r.Context(), bytes.NewReader(data))
	if !ok {
		msg := h.App.Learners.State().Error
		h.notify(ui.NotifyError, "Upload failed", msg)
		writeError(w, http.StatusBadGateway, msg, nil)
		return
	}
	h.notify(ui.NotifySuccess, "Learners uploaded", fmt.Sprintf("%d learners imported", len(created)))
	writeJSON(w, http.StatusCreated, UploadDTO{Created: created, Count: len(created)})
}

// =============================================================================
// PROGRESS
// =============================================================================

// prepareEnrollment fills learner and course names from the stores.
func (h *Handler) prepareEnrollment(r *http.Request, d certs.ProgressDraft) (certs.ProgressDraft, int, error) {
	learner, ok := h.App.Learners.Get(d.LearnerID)
	if !ok {
		return d, http.StatusNotFound, fmt.Errorf("learner %q: %w", d.LearnerID, generic.ErrEntityNotFound)
	}
	course, ok := h.App.Courses.Get(d.CourseID)
	if !ok {
		return d, http.StatusNotFound, fmt.Errorf("course %q: %w", d.CourseID, generic.ErrEntityNotFound)
	}
	return certs.EnrollmentDraft(learner, course), 0, nil
}

// ProgressTable returns the page of progress rows selected by the UI
// filters and pagination cursor.
func (h *Handler) ProgressTable(w http.ResponseWriter, r *http.Request) {
	st := h.App.UI.State()
	q := st.Filters.Query()
	if s := r.URL.Query().Get("search"); s != "" {
		q.Search = s
	}

	var rows []certs.LearnerProgress
	for _, p := range h.progress.view(h.App.Progress.State()).Items {
		if q.Matches(p) {
			rows = append(rows, p)
		}
	}

	pg := st.Pagination
	pg.TotalItems = len(rows)
	start, end := pageBounds(pg.Page, pg.ItemsPerPage, len(rows))
	page := make([]certs.LearnerProgress, 0, end-start)
	page = append(page, rows[start:end]...)

	writeJSON(w, http.StatusOK, ProgressPageDTO{Items: page, Pagination: pg, Filters: st.Filters})
}

// pageBounds returns the slice bounds of a 1-based page over n rows.
// Pages past the end, and cursors whose offset would overflow, are empty.
func pageBounds(page, perPage, n int) (start, end int) {
	if page < 1 || perPage < 1 {
		return 0, 0
	}
	pages := n / perPage
	if n%perPage != 0 {
		pages++
	}
	if page-1 >= pages {
		return n, n
	}
	start = (page - 1) * perPage
	end = n
	if n-start > perPage {
		end = start + perPage
	}
	return start, end
}

// =============================================================================
// CERTIFICATES
// =============================================================================

// DownloadCertificate resolves the download link of a certificate.
func (h *Handler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certificates.lookup(w, r)
	if !ok {
		return
	}
	if cert.Status == certs.CertificateRevoked {
		writeError(w, http.StatusConflict, "Certificate is revoked", nil)
		return
	}
	url, ok := h.App.Certificates.Download(r.Context(), cert.ID)
	if !ok {
		writeError(w, http.StatusBadGateway, h.App.Certificates.State().Error, nil)
		return
	}
	writeJSON(w, http.StatusOK, DownloadDTO{URL: url})
}

// RevokeCertificate marks a certificate revoked.
func (h *Handler) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certificates.lookup(w, r)
	if !ok {
		return
	}
	revoked, ok := h.App.Certificates.Revoke(cert.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "certificate not found", nil)
		return
	}
	h.notify(ui.NotifyWarning, "Certificate revoked", revoked.CertificateID)
	writeJSON(w, http.StatusOK, revoked)
}

// =============================================================================
// AUTH
// =============================================================================

func sessionDTO(st auth.State) SessionDTO {
	dto := SessionDTO{State: st}
	if st.User != nil {
		dto.LandingPath = st.User.LandingPath()
	}
	return dto
}

// Login signs a user in.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required", generic.ErrInvalidInput)
		return
	}
	if !h.App.Auth.Login(r.Context(), req.Email, req.Password) {
		st := h.App.Auth.State()
		writeError(w, http.StatusUnauthorized, st.Error, nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionDTO(h.App.Auth.State()))
}

// Logout ends the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.App.Auth.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// GetSession returns the auth state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionDTO(h.App.Auth.State()))
}

// CheckSession re-resolves the stored session token.
func (h *Handler) CheckSession(w http.ResponseWriter, r *http.Request) {
	h.App.Auth.CheckAuth(r.Context())
	writeJSON(w, http.StatusOK, sessionDTO(h.App.Auth.State()))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps store and validation errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

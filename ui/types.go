/*
Package ui holds cross-cutting interface state: sidebar and theme, the
notification queue, modal flags, and the filter/pagination cursor that
drives the learner progress table.

KEY CONCEPTS IN THIS FILE (types.go):
  - Theme: light, dark, or system (resolved once at SetTheme time)
  - Notification: queued message; success entries expire on their own
  - Modal: closed set of named dialogs with independent open flags
  - Filters, Pagination: flat cursor mutated field-by-field via patches

SEE ALSO:
  - store.go: Store and its actions
  - dismiss.go: auto-dismiss timers
  - appearance.go: where the resolved theme is applied
*/
package ui

import (
	"fmt"
	"time"

	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
)

// =============================================================================
// THEME
// =============================================================================

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", &generic.ValidationError{Field: "theme", Message: "must be light, dark or system"}
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotifySuccess, NotifyError, NotifyWarning, NotifyInfo:
		return t, nil
	}
	return "", &generic.ValidationError{Field: "type", Message: "must be success, error, warning or info"}
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

// NotificationDraft is a notification before the store assigns id and timestamp.
type NotificationDraft struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// =============================================================================
// MODALS
// =============================================================================

type Modal string

const (
	ModalAddCourse          Modal = "addCourse"
	ModalAddOrganization    Modal = "addOrganization"
	ModalUploadLearners     Modal = "uploadLearners"
	ModalCertificatePreview Modal = "certificatePreview"
	ModalLearnersSidePanel  Modal = "learnersSidePanel"
)

func ParseModal(s string) (Modal, error) {
	switch m := Modal(s); m {
	case ModalAddCourse, ModalAddOrganization, ModalUploadLearners, ModalCertificatePreview, ModalLearnersSidePanel:
		return m, nil
	}
	return "", &generic.ValidationError{Field: "modal", Message: fmt.Sprintf("unknown modal %q", s)}
}

// Modals holds one independent flag per Modal.
type Modals struct {
	AddCourse          bool `json:"addCourse"`
	AddOrganization    bool `json:"addOrganization"`
	UploadLearners     bool `json:"uploadLearners"`
	CertificatePreview bool `json:"certificatePreview"`
	LearnersSidePanel  bool `json:"learnersSidePanel"`
}

func (m *Modals) set(modal Modal, open bool) {
	switch modal {
	case ModalAddCourse:
		m.AddCourse = open
	case ModalAddOrganization:
		m.AddOrganization = open
	case ModalUploadLearners:
		m.UploadLearners = open
	case ModalCertificatePreview:
		m.CertificatePreview = open
	case ModalLearnersSidePanel:
		m.LearnersSidePanel = open
	}
}

// IsOpen reports the flag for modal.
func (m Modals) IsOpen(modal Modal) bool {
	switch modal {
	case ModalAddCourse:
		return m.AddCourse
	case ModalAddOrganization:
		return m.AddOrganization
	case ModalUploadLearners:
		return m.UploadLearners
	case ModalCertificatePreview:
		return m.CertificatePreview
	case ModalLearnersSidePanel:
		return m.LearnersSidePanel
	}
	return false
}

// =============================================================================
// FILTERS & PAGINATION
// =============================================================================

// DateRange bounds LastActivity. Dates are YYYY-MM-DD; empty means open.
type DateRange struct {
	From string `json:"startDate"`
	To   string `json:"endDate"`
}

const dateLayout = "2006-01-02"

type Filters struct {
	Search            string                    `json:"search"`
	Organization      string                    `json:"organization"`
	Course            string                    `json:"course"`
	CompletionStatus  []certs.CompletionStatus  `json:"completionStatus"`
	CertificateStatus []certs.CertificateStatus `json:"certificateStatus"`
	DateRange         DateRange                 `json:"dateRange"`
}

// DefaultFilters matches everything.
func DefaultFilters() Filters {
	return Filters{
		Organization:      certs.AnyValue,
		Course:            certs.AnyValue,
		CompletionStatus:  []certs.CompletionStatus{},
		CertificateStatus: []certs.CertificateStatus{},
	}
}

// Query converts the filters into a progress query. The To date is
// inclusive of the whole day. Unparseable dates are treated as open.
func (f Filters) Query() certs.ProgressQuery {
	q := certs.ProgressQuery{
		Search:            f.Search,
		Organization:      f.Organization,
		Course:            f.Course,
		CompletionStatus:  f.CompletionStatus,
		CertificateStatus: f.CertificateStatus,
	}
	if t, err := time.Parse(dateLayout, f.DateRange.From); err == nil {
		q.From = t
	}
	if t, err := time.Parse(dateLayout, f.DateRange.To); err == nil {
		q.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return q
}

func (f Filters) clone() Filters {
	f.CompletionStatus = append([]certs.CompletionStatus{}, f.CompletionStatus...)
	f.CertificateStatus = append([]certs.CertificateStatus{}, f.CertificateStatus...)
	return f
}

type Pagination struct {
	Page         int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
}

func DefaultPagination() Pagination {
	return Pagination{Page: 1, ItemsPerPage: 10}
}

// FilterPatch sets only its non-nil fields.
type FilterPatch struct {
	Search            *string                   `json:"search,omitempty"`
	Organization      *string                   `json:"organization,omitempty"`
	Course            *string                   `json:"course,omitempty"`
	CompletionStatus  []certs.CompletionStatus  `json:"completionStatus,omitempty"`
	CertificateStatus []certs.CertificateStatus `json:"certificateStatus,omitempty"`
	DateRange         *DateRange                `json:"dateRange,omitempty"`
}

func (p FilterPatch) Validate() error {
	for _, d := range p.dates() {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return &generic.ValidationError{Field: "dateRange", Message: "dates must be YYYY-MM-DD"}
		}
	}
	return nil
}

func (p FilterPatch) dates() []string {
	if p.DateRange == nil {
		return nil
	}
	return []string{p.DateRange.From, p.DateRange.To}
}

func (p FilterPatch) apply(f *Filters) {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Organization != nil {
		f.Organization = *p.Organization
	}
	if p.Course != nil {
		f.Course = *p.Course
	}
	if p.CompletionStatus != nil {
		f.CompletionStatus = append([]certs.CompletionStatus{}, p.CompletionStatus...)
	}
	if p.CertificateStatus != nil {
		f.CertificateStatus = append([]certs.CertificateStatus{}, p.CertificateStatus...)
	}
	if p.DateRange != nil {
		f.DateRange = *p.DateRange
	}
}

type PaginationPatch struct {
	Page         *int `json:"currentPage,omitempty"`
	ItemsPerPage *int `json:"itemsPerPage,omitempty"`
	TotalItems   *int `json:"totalItems,omitempty"`
}

func (p PaginationPatch) Validate() error {
	if p.Page != nil && *p.Page < 1 {
		return &generic.ValidationError{Field: "currentPage", Message: "must be at least 1"}
	}
	if p.ItemsPerPage != nil && *p.ItemsPerPage < 1 {
		return &generic.ValidationError{Field: "itemsPerPage", Message: "must be at least 1"}
	}
	if p.TotalItems != nil && *p.TotalItems < 0 {
		return &generic.ValidationError{Field: "totalItems", Message: "must not be negative"}
	}
	return nil
}

func (p PaginationPatch) apply(pg *Pagination) {
	if p.Page != nil {
		pg.Page = *p.Page
	}
	if p.ItemsPerPage != nil {
		pg.ItemsPerPage = *p.ItemsPerPage
	}
	if p.TotalItems != nil {
		pg.TotalItems = *p.TotalItems
	}
}

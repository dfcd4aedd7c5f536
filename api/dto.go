/*
dto.go - Request and response bodies of the dashboard API

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

  Entities, drafts and store states are serialized as-is; DTOs only exist
  where the API shape differs from a store type.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/ui"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListDTO is a store state as seen by the current user.
type ListDTO[T any] struct {
	Items      []T    `json:"items"`
	Selected   *T     `json:"selected"`
	TotalCount int    `json:"totalCount"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
}

// DashboardDTO boots a view: every store at once.
type DashboardDTO struct {
	Auth          SessionDTO                     `json:"auth"`
	Courses       ListDTO[certs.Course]          `json:"courses"`
	Learners      ListDTO[certs.Learner]         `json:"learners"`
	Organizations ListDTO[certs.Organization]    `json:"organizations"`
	Progress      ListDTO[certs.LearnerProgress] `json:"progress"`
	Certificates  ListDTO[certs.Certificate]     `json:"certificates"`
	UI            ui.State                       `json:"ui"`
}

// ProgressPageDTO is one page of the filtered progress table.
type ProgressPageDTO struct {
	Items      []certs.LearnerProgress `json:"items"`
	Pagination ui.Pagination           `json:"pagination"`
	Filters    ui.Filters              `json:"filters"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionDTO is the auth state plus where the user should land.
type SessionDTO struct {
	auth.State
	LandingPath string `json:"landingPath,omitempty"`
}

type DownloadDTO struct {
	URL string `json:"url"`
}

type UploadDTO struct {
	Created []certs.Learner `json:"created"`
	Count   int             `json:"count"`
}

type SidebarRequest struct {
	Open bool `json:"open"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ModalRequest struct {
	Open bool `json:"open"`
}

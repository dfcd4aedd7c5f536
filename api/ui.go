package api

import (
	"encoding/json"
	"net/http"

	"github.com/warp/certdash/ui"
)

// =============================================================================
// UI STORE ROUTES
//
//   GET    /api/ui                              State
//   PUT    /api/ui/sidebar                      {"open": bool}
//   PUT    /api/ui/theme                        {"theme": "light|dark|system"}
//   PUT    /api/ui/modals/{name}                {"open": bool}
//   GET    /api/ui/notifications                Queue, newest first
//   POST   /api/ui/notifications                Queue a notification
//   DELETE /api/ui/notifications                Clear
//   DELETE /api/ui/notifications/{id}           Dismiss
//   POST   /api/ui/notifications/{id}/read      Mark read
//   PATCH  /api/ui/filters                      FilterPatch
//   POST   /api/ui/filters/reset                Defaults
//   PATCH  /api/ui/pagination                   PaginationPatch
// =============================================================================

func (h *Handler) GetUI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.App.UI.State())
}

func (h *Handler) SetSidebar(w http.ResponseWriter, r *http.Request) {
	var req SidebarRequest
	if !decode(w, r, &req) {
		return
	}
	h.App.UI.SetSidebarOpen(req.Open)
	writeJSON(w, http.StatusOK, h.App.UI.State())
}

func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decode(w, r, &req) {
		return
	}
	theme, err := ui.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, statusFor(err), err.Error(), err)
		return
	}
	h.App.UI.SetTheme(theme)
	writeJSON(w, http.StatusOK, h.App.UI.State())
}

func (h *Handler) SetModal(w http.ResponseWriter, r *http.Request) {
	modal, err := ui.ParseModal(urlParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), err)
		return
	}
	var req ModalRequest
	if !decode(w, r, &req) {
		return
	}
	h.App.UI.SetModalOpen(modal, req.Open)
	writeJSON(w, http.StatusOK, h.App.UI.State().Modals)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.App.UI.State().Notifications)
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var d ui.NotificationDraft
	if !decode(w, r, &d) {
		return
	}
	if _, err := ui.ParseNotificationType(string(d.Type)); err != nil {
		writeError(w, statusFor(err), err.Error(), err)
		return
	}
	writeJSON(w, http.StatusCreated, h.App.UI.Notify(d))
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.App.UI.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.App.UI.RemoveNotification(urlParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if !h.App.UI.MarkNotificationRead(urlParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// FILTERS & PAGINATION
// =============================================================================

func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var p ui.FilterPatch
	if !decode(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, statusFor(err), err.Error(), err)
		return
	}
	h.App.UI.SetFilters(p)
	writeJSON(w, http.StatusOK, h.App.UI.State().Filters)
}

func (h *Handler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.App.UI.ResetFilters()
	writeJSON(w, http.StatusOK, h.App.UI.State())
}

func (h *Handler) SetPagination(w http.ResponseWriter, r *http.Request) {
	var p ui.PaginationPatch
	if !decode(w, r, &p) {
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, statusFor(err), err.Error(), err)
		return
	}
	h.App.UI.SetPagination(p)
	writeJSON(w, http.StatusOK, h.App.UI.State().Pagination)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/certdash/generic"
	"github.com/warp/certdash/ui"
)

// =============================================================================
// GENERIC ENTITY ROUTES
// =============================================================================

// entityStore is the slice of a store's API the generic routes use.
// *generic.EntityStore and the certs stores that embed it satisfy it.
type entityStore[T any, D any] interface {
	Name() string
	State() generic.State[T]
	Get(id string) (T, bool)
	Update(id string, patch func(*T)) (T, bool)
	Remove(id string) bool
	SetSelected(id string) error
	ClearSelected()
	Create(ctx context.Context, draft D) (T, bool)
	FetchAll(ctx context.Context)
}

type draft interface {
	Validate() error
}

// entityRoutes serves one collection.
type entityRoutes[T generic.Entity[T], D draft] struct {
	h     *Handler
	store entityStore[T, D]
	label string // singular, for notifications

	// orgOf returns the organization an entity belongs to, for role
	// scoping. nil means the collection is visible to every role.
	orgOf func(T) string

	// prepare completes a decoded draft before Create.
	prepare func(r *http.Request, d D) (D, int, error)
}

func (e entityRoutes[T, D]) mount(r chi.Router) {
	r.Get("/", e.list)
	r.Post("/", e.create)
	r.Post("/refresh", e.refresh)
	r.Delete("/selected", e.clearSelected)
	r.Get("/{id}", e.get)
	r.Patch("/{id}", e.patch)
	r.Delete("/{id}", e.remove)
	r.Post("/{id}/select", e.selectOne)
}

// view filters a state down to what the current user may see.
func (e entityRoutes[T, D]) view(st generic.State[T]) ListDTO[T] {
	out := ListDTO[T]{Items: []T{}, Loading: st.Loading, Error: st.Error}
	visible := e.h.visibleOrg()
	for _, item := range st.Items {
		if e.visible(visible, item) {
			out.Items = append(out.Items, item)
		}
	}
	out.TotalCount = len(out.Items)
	if st.Selected != nil && e.visible(visible, *st.Selected) {
		out.Selected = st.Selected
	}
	return out
}

func (e entityRoutes[T, D]) visible(canView func(string) bool, item T) bool {
	return e.orgOf == nil || canView(e.orgOf(item))
}

// lookup returns the entity with the URL id if the current user may see it.
func (e entityRoutes[T, D]) lookup(w http.ResponseWriter, r *http.Request) (T, bool) {
	id := chi.URLParam(r, "id")
	item, ok := e.store.Get(id)
	if !ok || !e.visible(e.h.visibleOrg(), item) {
		writeError(w, http.StatusNotFound, e.label+" not found", nil)
		return item, false
	}
	return item, true
}

func (e entityRoutes[T, D]) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, e.view(e.store.State()))
}

func (e entityRoutes[T, D]) get(w http.ResponseWriter, r *http.Request) {
	if item, ok := e.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, item)
	}
}

func (e entityRoutes[T, D]) refresh(w http.ResponseWriter, r *http.Request) {
	e.store.FetchAll(r.Context())
	st := e.store.State()
	if st.Error != "" {
		writeError(w, http.StatusBadGateway, st.Error, nil)
		return
	}
	writeJSON(w, http.StatusOK, e.view(st))
}

func (e entityRoutes[T, D]) create(w http.ResponseWriter, r *http.Request) {
	var d D
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	if e.prepare != nil {
		prepared, status, err := e.prepare(r, d)
		if err != nil {
			writeError(w, status, err.Error(), err)
			return
		}
		d = prepared
	}

	item, ok := e.store.Create(r.Context(), d)
	if !ok {
		msg := e.store.State().Error
		e.h.notify(ui.NotifyError, "Failed to create "+e.label, msg)
		writeError(w, http.StatusBadGateway, msg, nil)
		return
	}
	e.h.notify(ui.NotifySuccess, capitalize(e.label)+" created", "")
	writeJSON(w, http.StatusCreated, item)
}

// patch shallow-merges the JSON body into the entity.
func (e entityRoutes[T, D]) patch(w http.ResponseWriter, r *http.Request) {
	current, ok := e.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if raw, ok := fields["id"]; ok {
		var id string
		if json.Unmarshal(raw, &id) != nil || id != current.Key() {
			writeError(w, http.StatusBadRequest, "id cannot be changed", generic.ErrImmutableID)
			return
		}
	}
	// Decode once up front so a type mismatch is reported, not half-applied.
	probe := current
	if err := json.Unmarshal(body, &probe); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, ok := e.store.Update(current.Key(), func(item *T) {
		if err := json.Unmarshal(body, item); err != nil {
			e.h.Logger.Error("patch applied partially",
				zap.String("store", e.store.Name()), zap.String("id", current.Key()), zap.Error(err))
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, e.label+" not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (e entityRoutes[T, D]) remove(w http.ResponseWriter, r *http.Request) {
	item, ok := e.lookup(w, r)
	if !ok {
		return
	}
	if !e.store.Remove(item.Key()) {
		writeError(w, http.StatusNotFound, e.label+" not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e entityRoutes[T, D]) selectOne(w http.ResponseWriter, r *http.Request) {
	item, ok := e.lookup(w, r)
	if !ok {
		return
	}
	if err := e.store.SetSelected(item.Key()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, generic.ErrEntityNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, e.label+" not found", err)
		return
	}
	writeJSON(w, http.StatusOK, e.view(e.store.State()))
}

func (e entityRoutes[T, D]) clearSelected(w http.ResponseWriter, r *http.Request) {
	e.store.ClearSelected()
	w.WriteHeader(http.StatusNoContent)
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/state, /api/refresh, /api/stats   Dashboard
  /api/{collection}/*                    Entity stores
  /api/auth/*                            Session
  /api/ui/*                              UI store
  /metrics                               Prometheus

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Gatherer    prometheus.Gatherer // nil disables /metrics
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/refresh", h.Refresh)
		r.Get("/stats", h.GetStats)

		r.Route("/courses", h.courses.mount)
		r.Route("/organizations", h.organizations.mount)

		r.Route("/learners", func(r chi.Router) {
			r.Post("/upload", h.UploadLearners)
			h.learners.mount(r)
		})

		r.Route("/progress", func(r chi.Router) {
			r.Get("/table", h.ProgressTable)
			h.progress.mount(r)
		})

		r.Route("/certificates", func(r chi.Router) {
			r.Post("/generate", h.certificates.create)
			r.Get("/{id}/download", h.DownloadCertificate)
			r.Post("/{id}/revoke", h.RevokeCertificate)
			h.certificates.mount(r)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/check", h.CheckSession)
			r.Get("/session", h.GetSession)
		})

		r.Route("/ui", func(r chi.Router) {
			r.Get("/", h.GetUI)
			r.Put("/sidebar", h.SetSidebar)
			r.Put("/theme", h.SetTheme)
			r.Put("/modals/{name}", h.SetModal)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/", h.CreateNotification)
				r.Delete("/", h.ClearNotifications)
				r.Delete("/{id}", h.DismissNotification)
				r.Post("/{id}/read", h.MarkNotificationRead)
			})

			r.Patch("/filters", h.SetFilters)
			r.Post("/filters/reset", h.ResetFilters)
			r.Patch("/pagination", h.SetPagination)
		})
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

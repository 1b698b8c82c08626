package rest

import (
	"net/http"

	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with middleware (outermost first) and
// routes.
func NewRouter(d Deps) http.Handler {
	h := &handlers{
		users:   d.Users,
		tokens:  d.Tokens,
		gate:    d.Gate,
		metrics: d.Metrics,
		logger:  d.Logger,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		requestID,
		middleware.RealIP,
		h.observe,
	)

	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/confirm", h.confirm)
	r.Get("/healthz", h.healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(h.tokenRequired)
		r.Get("/logout", h.logout)
		r.With(h.requireModules(rbac.ModuleAdmin)).Post("/register", h.register)
	})

	return r
}

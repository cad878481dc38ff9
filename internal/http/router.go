// Package http wires the chi router, middleware chain, and route handlers
// exposing the work package service's HTTP surface, grounded on the
// chi.NewRouter + svc.routerInit pattern reva's internal/http/services use.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/bioarchive/workpkgsvc/internal/http/middleware"
	"github.com/bioarchive/workpkgsvc/pkg/manager"
)

// Server exposes the work package service's HTTP surface.
type Server struct {
	router *chi.Mux
	svc    *service
}

// Options configures the router's ambient middleware.
type Options struct {
	Logger             zerolog.Logger
	CORSAllowedOrigins []string
	Tracer             trace.Tracer
}

// New builds the chi router and binds every route to m.
func New(m *manager.Manager, opts Options) *Server {
	svc := &service{manager: m}

	r := chi.NewRouter()
	r.Use(middleware.Trace())
	r.Use(middleware.Log(opts.Logger))
	r.Use(middleware.Secure())
	r.Use(tracingMiddleware(opts.Tracer))

	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler)
	}

	r.Get("/health", svc.handleHealth)
	r.Post("/work-packages", svc.handleCreateWorkPackage)
	r.Get("/work-packages/{wp_id}", svc.handleGetWorkPackageDetails)
	r.Post("/work-packages/{wp_id}/files/{file_id}/work-order-tokens", svc.handleCreateWorkOrderToken)
	r.Get("/users/{user_id}/datasets", svc.handleListUserDatasets)

	return &Server{router: r, svc: svc}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

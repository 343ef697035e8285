package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/swapmatch/internal/core/trade"
)

const (
	serviceName    = "swapmatch"
	serviceVersion = "1.0.0"
)

// DependencyHealth reports the circuit state per remote dependency.
type DependencyHealth interface {
	Health() map[string]string
}

// Server exposes the trade offer API over HTTP.
type Server struct {
	service *trade.Service
	deps    DependencyHealth
	server  *http.Server
}

// NewServer creates an API server listening on the given port.
func NewServer(port int, service *trade.Service, deps DependencyHealth) *Server {
	s := &Server{
		service: service,
		deps:    deps,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", s.handleCreateOffer)
			r.Get("/", s.handleListOffers)
			r.Get("/received/{userID}", s.handleReceivedOffers)
			r.Get("/sent/{userID}", s.handleSentOffers)
			r.Get("/by-item/{itemID}", s.handleOffersByItem)
			r.Get("/{offerID}", s.handleGetOffer)
			r.Patch("/{offerID}", s.handleUpdateOffer)
			r.Delete("/{offerID}", s.handleDeleteOffer)
		})
		r.Get("/statistics/{userID}", s.handleStatistics)
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

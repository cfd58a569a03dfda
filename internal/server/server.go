// Package server exposes the recommendation pipeline over HTTP. The
// surrounding product owns authentication; requests arrive here already
// authenticated, with the caller identity in the X-User-ID header.
package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dosewise/dosewise/internal/repository"
	"github.com/dosewise/dosewise/internal/services"
)

// Server bundles the HTTP layer's dependencies.
type Server struct {
	echo            *echo.Echo
	recommendations *services.RecommendationService
	patients        *repository.PatientRepository
	entries         *repository.EntryRepository
	recStore        *repository.RecommendationRepository
}

// New constructs the server and registers routes.
func New(
	recommendations *services.RecommendationService,
	patients *repository.PatientRepository,
	entries *repository.EntryRepository,
	recStore *repository.RecommendationRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:            e,
		recommendations: recommendations,
		patients:        patients,
		entries:         entries,
		recStore:        recStore,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/patients", s.handleListPatients)
	e.GET("/api/patients/:id/entries", s.handleListEntries)
	e.POST("/api/patients/:id/entries", s.handleCreateEntry)
	e.GET("/api/patients/:id/recommendations", s.handleListRecommendations)
	e.POST("/api/patients/:id/recommendations", s.handleGenerateRecommendation)

	return s
}

// Start blocks serving HTTP on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

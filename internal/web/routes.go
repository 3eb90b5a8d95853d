package web

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes(deps Deps) {
	// Health check
	s.router.Get("/api/v1/health", deps.Health.Get)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Live stream connections
		r.Post("/stream/connect", deps.Stream.Connect)
		r.Get("/stream/{connID}/events", deps.Stream.Events)
		r.Post("/stream/{connID}/start", deps.Stream.Start)
		r.Post("/stream/{connID}/stop", deps.Stream.Stop)
		r.Post("/stream/{connID}/frames", deps.Stream.Frames)

		// Identity catalogue
		r.Post("/identities", deps.Identities.Enroll)
		r.Get("/identities", deps.Identities.List)
		r.Delete("/identities/{id}", deps.Identities.Deactivate)
	})
}

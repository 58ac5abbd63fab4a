package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/hotelops/faceattend/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1/face", func(r chi.Router) {
		r.Post("/enroll", s.face.Enroll)
		r.Post("/recognize", s.face.Recognize)
		r.Get("/users/{userID}/faces", s.face.ListFaces)
		r.Delete("/faces/{faceID}", s.face.DeactivateFace)
	})
}

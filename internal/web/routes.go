package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	sessionsHandler := handlers.NewSessionsHandler(s.services.Attendance)
	captureHandler := handlers.NewCaptureHandler(s.services.Attendance)
	studentsHandler := handlers.NewStudentsHandler(s.services.Attendance, s.services.Enrollment)
	facesHandler := handlers.NewFacesHandler(s.services.Faces, s.config.Matching.Tolerance, s.config.Extractor.Dim)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Sessions
		r.Post("/sessions", sessionsHandler.Open)
		r.Get("/sessions/{id}", sessionsHandler.Get)
		r.Post("/sessions/{id}/close", sessionsHandler.Close)
		r.Get("/sessions/{id}/status", sessionsHandler.Status)
		r.Post("/sessions/{id}/manual", sessionsHandler.Manual)

		// Capture
		r.Post("/capture", captureHandler.Capture)

		// Classes
		r.Get("/classes/{id}/sessions", sessionsHandler.History)
		r.Get("/classes/{id}/students/find", studentsHandler.Find)

		// Students
		r.Get("/students/{id}/summary", studentsHandler.Summary)
		r.Post("/students/{id}/enroll", studentsHandler.Enroll)

		// Face helpers
		r.Post("/faces/detect", facesHandler.Detect)
		r.Post("/faces/encode", facesHandler.Encode)
		r.Post("/faces/compare", facesHandler.Compare)
	})
}

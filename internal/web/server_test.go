package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

type noFaceDetector struct{}

func (noFaceDetector) DetectFaces(ctx context.Context, image []byte) (*extractor.FaceResponse, error) {
	return &extractor.FaceResponse{}, nil
}

func (noFaceDetector) Extract(ctx context.Context, image []byte) ([]float32, bool, error) {
	return nil, false, nil
}

func (noFaceDetector) Model() string { return "none" }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	roster := mock.NewMockEnrollmentStore()
	roster.AddStudent(database.Student{ID: 1, Number: "A001", Name: "Alice", ClassID: 5, Active: true}, nil)

	cfg := &config.Config{
		Extractor: config.ExtractorConfig{Dim: 128, TimeoutSeconds: 5},
		Matching:  config.MatchingConfig{Tolerance: 0.6, MinConfidence: 0.4},
		Web:       config.WebConfig{Host: "127.0.0.1", Port: 0},
	}
	att := attendance.NewService(mock.NewMockSessionStore(), mock.NewMockAttendanceStore(), roster, noFaceDetector{}, cfg.Matching)
	enr := enrollment.NewService(roster, noFaceDetector{}, "none", cfg.Matching.Tolerance)

	return NewServer(cfg, Services{Attendance: att, Enrollment: enr, Faces: noFaceDetector{}})
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	// Open a session first so the session routes resolve.
	open := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString(`{"class_id": 5}`))
	open.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, open)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/api/v1/health", "", http.StatusOK},
		{"GET", "/api/v1/sessions/1", "", http.StatusOK},
		{"GET", "/api/v1/sessions/1/status", "", http.StatusOK},
		{"POST", "/api/v1/sessions/1/manual", `{"student_id": 1}`, http.StatusCreated},
		{"GET", "/api/v1/classes/5/sessions", "", http.StatusOK},
		{"GET", "/api/v1/classes/5/students/find?q=alice", "", http.StatusOK},
		{"GET", "/api/v1/students/1/summary", "", http.StatusOK},
		{"POST", "/api/v1/capture", `{"session_id": 1, "image_data": "aGVsbG8="}`, http.StatusOK},
		{"POST", "/api/v1/faces/detect", `{"image_data": "aGVsbG8="}`, http.StatusOK},
		{"POST", "/api/v1/faces/encode", `{"image_data": "aGVsbG8="}`, http.StatusOK},
		{"POST", "/api/v1/students/1/enroll", `{"image_data": "aGVsbG8="}`, http.StatusUnprocessableEntity},
		{"POST", "/api/v1/sessions/1/close", "", http.StatusOK},
		{"GET", "/api/v1/unknown", "", http.StatusNotFound},
		{"DELETE", "/api/v1/sessions/1", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()
			srv.Router().ServeHTTP(recorder, req)

			if recorder.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestRoutes_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on API responses")
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8080" {
		t.Error("expected localhost origin to be allowed")
	}
}

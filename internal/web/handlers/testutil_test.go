package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// sigAt returns a signature whose first component is x
func sigAt(x float32) []float32 {
	s := make([]float32, database.SignatureDim)
	s[0] = x
	return s
}

// fakeDetector maps frame bytes to detected faces. Unknown frames have no face.
type fakeDetector struct {
	mu      sync.Mutex
	byFrame map[string]extractor.FaceDetection
	err     error
}

func (f *fakeDetector) DetectFaces(ctx context.Context, image []byte) (*extractor.FaceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := &extractor.FaceResponse{Model: "test-model", Width: 200, Height: 100}
	if face, ok := f.byFrame[string(image)]; ok {
		resp.Faces = append(resp.Faces, face)
		resp.FacesCount = 1
	}
	return resp, nil
}

func (f *fakeDetector) Extract(ctx context.Context, image []byte) ([]float32, bool, error) {
	resp, err := f.DetectFaces(ctx, image)
	if err != nil {
		return nil, false, err
	}
	if len(resp.Faces) == 0 {
		return nil, false, nil
	}
	return resp.Faces[0].Embedding, true, nil
}

func (f *fakeDetector) Model() string {
	return "test-model"
}

// testEnv bundles the handlers with the in-memory stores behind them.
type testEnv struct {
	sessions   *mock.MockSessionStore
	facts      *mock.MockAttendanceStore
	roster     *mock.MockEnrollmentStore
	detector   *fakeDetector
	attendance *attendance.Service
	enrollment *enrollment.Service
}

// newTestEnv creates class 5 with Alice (1, enrolled at 0), Bob (2, enrolled
// at 1) and Carol (3, not enrolled), and class 6 with Dave (4).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	roster := mock.NewMockEnrollmentStore()
	roster.AddStudent(database.Student{ID: 1, Number: "A001", Name: "Alice Nováková", ClassID: 5, Active: true}, sigAt(0))
	roster.AddStudent(database.Student{ID: 2, Number: "B002", Name: "Bob Svoboda", ClassID: 5, Active: true}, sigAt(1))
	roster.AddStudent(database.Student{ID: 3, Number: "C003", Name: "Carol Dvořák", ClassID: 5, Active: true}, nil)
	roster.AddStudent(database.Student{ID: 4, Number: "D004", Name: "Dave Černý", ClassID: 6, Active: true}, sigAt(0))

	detector := &fakeDetector{byFrame: map[string]extractor.FaceDetection{
		"alice":  {Embedding: sigAt(0.35), BBox: []float64{20, 10, 100, 90}, DetScore: 0.98},
		"carol":  {Embedding: sigAt(2.5), BBox: []float64{0, 0, 50, 50}, DetScore: 0.91},
		"carol2": {Embedding: sigAt(2.6), BBox: []float64{0, 0, 50, 50}, DetScore: 0.90},
	}}

	env := &testEnv{
		sessions: mock.NewMockSessionStore(),
		facts:    mock.NewMockAttendanceStore(),
		roster:   roster,
		detector: detector,
	}
	env.attendance = attendance.NewService(env.sessions, env.facts, env.roster, detector,
		config.MatchingConfig{Tolerance: 0.6, MinConfidence: 0.4})
	env.enrollment = enrollment.NewService(env.roster, detector, "test-model", 0.6)
	return env
}

// openSession opens a session for a class through the service
func (e *testEnv) openSession(t *testing.T, classID int64) *database.Session {
	t.Helper()
	s, err := e.attendance.OpenSession(context.Background(), attendance.OpenRequest{ClassID: classID, Name: "Lecture"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	return s
}

// jsonRequest builds a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// imageData encodes frame bytes the way a browser sends them
func imageData(frame string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(frame))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestSessionsHandler_Open_Success(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)

	req := jsonRequest(t, "POST", "/api/v1/sessions", map[string]any{"class_id": 5, "name": "Math", "created_by": 7})
	recorder := httptest.NewRecorder()
	handler.Open(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var session database.Session
	parseJSONResponse(t, recorder, &session)
	if session.ClassID != 5 || session.Name != "Math" || !session.Active || session.CreatedBy != 7 {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestSessionsHandler_Open_ClosesPrevious(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)
	first := env.openSession(t, 5)

	recorder := httptest.NewRecorder()
	handler.Open(recorder, jsonRequest(t, "POST", "/api/v1/sessions", map[string]any{"class_id": 5}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var session database.Session
	parseJSONResponse(t, recorder, &session)
	if session.Name != "Session" {
		t.Errorf("expected default name 'Session', got %q", session.Name)
	}
	if env.sessions.ActiveCount(5) != 1 {
		t.Errorf("expected exactly one active session, got %d", env.sessions.ActiveCount(5))
	}

	prev, _ := env.attendance.GetSession(t.Context(), first.ID)
	if prev.Active {
		t.Error("expected previous session to be closed")
	}
}

func TestSessionsHandler_Open_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"invalid json", `{invalid`, "invalid request body"},
		{"missing class", map[string]any{"name": "Math"}, "class_id is required"},
		{"negative class", map[string]any{"class_id": -1}, "class_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionsHandler(newTestEnv(t).attendance)
			recorder := httptest.NewRecorder()
			handler.Open(recorder, jsonRequest(t, "POST", "/api/v1/sessions", tt.body))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tt.wantErr)
		})
	}
}

func TestSessionsHandler_Open_StoreError(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.OpenError = errors.New("connection refused")
	handler := NewSessionsHandler(env.attendance)

	recorder := httptest.NewRecorder()
	handler.Open(recorder, jsonRequest(t, "POST", "/api/v1/sessions", map[string]any{"class_id": 5}))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "open session failed")
}

func TestSessionsHandler_Close(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)
	s := env.openSession(t, 5)

	// Closing twice returns the closed session both times.
	for range 2 {
		req := requestWithChiParams(httptest.NewRequest("POST", "/api/v1/sessions/1/close", nil), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Close(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var session database.Session
		parseJSONResponse(t, recorder, &session)
		if session.ID != s.ID || session.Active || session.EndTime == nil {
			t.Errorf("expected closed session, got %+v", session)
		}
	}
}

func TestSessionsHandler_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)

	endpoints := []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"close", handler.Close},
		{"get", handler.Get},
		{"status", handler.Status},
	}

	for _, ep := range endpoints {
		t.Run(ep.name+" unknown", func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"id": "99"})
			recorder := httptest.NewRecorder()
			ep.fn(recorder, req)
			assertStatusCode(t, recorder, http.StatusNotFound)
		})
		t.Run(ep.name+" bad id", func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"id": "abc"})
			recorder := httptest.NewRecorder()
			ep.fn(recorder, req)
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, "invalid session id")
		})
	}
}

func TestSessionsHandler_Status(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)
	s := env.openSession(t, 5)
	if _, err := env.attendance.Capture(t.Context(), s.ID, []byte("alice")); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/sessions/1/status", nil), map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()
	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var status attendance.SessionStatus
	parseJSONResponse(t, recorder, &status)
	if status.TotalStudents != 3 || status.PresentCount != 1 || status.AbsentCount != 2 {
		t.Errorf("unexpected counts %+v", status)
	}
	if len(status.Students) != 3 || !status.Students[0].Present || status.Students[0].StudentID != 1 {
		t.Errorf("expected Alice to be present, got %+v", status.Students)
	}
}

func TestSessionsHandler_Manual(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)
	env.openSession(t, 5)

	manual := func(body any) *httptest.ResponseRecorder {
		req := requestWithChiParams(jsonRequest(t, "POST", "/api/v1/sessions/1/manual", body), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Manual(recorder, req)
		return recorder
	}

	recorder := manual(map[string]any{"student_id": 3, "notes": "forgot badge"})
	assertStatusCode(t, recorder, http.StatusCreated)

	var first manualEntryResponse
	parseJSONResponse(t, recorder, &first)
	if !first.Created || first.AlreadyExists || !first.Fact.Manual || first.Fact.Notes != "forgot badge" {
		t.Errorf("unexpected first entry %+v", first)
	}

	recorder = manual(map[string]any{"student_id": 3})
	assertStatusCode(t, recorder, http.StatusOK)

	var second manualEntryResponse
	parseJSONResponse(t, recorder, &second)
	if second.Created || !second.AlreadyExists || second.Fact.ID != first.Fact.ID {
		t.Errorf("expected the original fact back, got %+v", second)
	}
}

func TestSessionsHandler_Manual_Errors(t *testing.T) {
	tests := []struct {
		name       string
		sessionID  string
		body       any
		wantStatus int
	}{
		{"student of another class", "1", map[string]any{"student_id": 4}, http.StatusUnprocessableEntity},
		{"unknown student", "1", map[string]any{"student_id": 99}, http.StatusNotFound},
		{"unknown session", "42", map[string]any{"student_id": 1}, http.StatusNotFound},
		{"missing student", "1", map[string]any{}, http.StatusBadRequest},
		{"invalid json", "1", `nope`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handler := NewSessionsHandler(env.attendance)
			env.openSession(t, 5)

			req := requestWithChiParams(jsonRequest(t, "POST", "/", tt.body), map[string]string{"id": tt.sessionID})
			recorder := httptest.NewRecorder()
			handler.Manual(recorder, req)

			assertStatusCode(t, recorder, tt.wantStatus)
			if env.facts.Count() != 0 {
				t.Errorf("expected no fact, got %d", env.facts.Count())
			}
		})
	}
}

func TestSessionsHandler_History(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSessionsHandler(env.attendance)
	for range 3 {
		env.openSession(t, 5)
	}

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/classes/5/sessions?limit=2", nil), map[string]string{"id": "5"})
	recorder := httptest.NewRecorder()
	handler.History(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var history []attendance.SessionSummary
	parseJSONResponse(t, recorder, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(history))
	}
	if history[0].ID != 3 || history[1].ID != 2 {
		t.Errorf("expected newest first, got %d, %d", history[0].ID, history[1].ID)
	}
}

func TestSessionsHandler_History_Empty(t *testing.T) {
	handler := NewSessionsHandler(newTestEnv(t).attendance)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/classes/8/sessions", nil), map[string]string{"id": "8"})
	recorder := httptest.NewRecorder()
	handler.History(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if got := recorder.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// SessionsHandler handles capture session endpoints
type SessionsHandler struct {
	service *attendance.Service
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(service *attendance.Service) *SessionsHandler {
	return &SessionsHandler{service: service}
}

type openSessionRequest struct {
	ClassID   int64  `json:"class_id"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"created_by"`
	Notes     string `json:"notes"`
}

type manualEntryRequest struct {
	StudentID int64  `json:"student_id"`
	Notes     string `json:"notes"`
}

type manualEntryResponse struct {
	attendance.RecordOutcome
	AlreadyExists bool `json:"already_exists"`
}

// Open opens a new session, closing the class's active one if any
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ClassID <= 0 {
		respondError(w, http.StatusBadRequest, "class_id is required")
		return
	}

	session, err := h.service.OpenSession(r.Context(), attendance.OpenRequest{
		ClassID: req.ClassID,
		Name:    req.Name,
		Actor:   req.CreatedBy,
		Notes:   req.Notes,
	})
	if err != nil {
		respondServiceError(w, "open session", err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// Close ends a session. Closing twice is not an error.
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.service.CloseSession(r.Context(), id)
	if err != nil {
		respondServiceError(w, "close session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Get returns a single session
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		respondServiceError(w, "get session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Status returns the roster of a session with present and absent students
func (h *SessionsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	status, err := h.service.SessionStatus(r.Context(), id)
	if err != nil {
		respondServiceError(w, "session status", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Manual records a student as present without a face match
func (h *SessionsHandler) Manual(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req manualEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID <= 0 {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	outcome, err := h.service.ManualRecord(r.Context(), req.StudentID, id, req.Notes)
	if err != nil {
		respondServiceError(w, "manual entry", err)
		return
	}

	status := http.StatusCreated
	if outcome.AlreadyExists() {
		status = http.StatusOK
	}
	respondJSON(w, status, manualEntryResponse{RecordOutcome: outcome, AlreadyExists: outcome.AlreadyExists()})
}

// History lists the newest sessions of a class
func (h *SessionsHandler) History(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	limit := constants.DefaultHistoryLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	history, err := h.service.History(r.Context(), classID, limit)
	if err != nil {
		respondServiceError(w, "list sessions", err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// StudentsHandler handles student lookup, summaries and enrollment
type StudentsHandler struct {
	attendance *attendance.Service
	enrollment *enrollment.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(att *attendance.Service, enr *enrollment.Service) *StudentsHandler {
	return &StudentsHandler{attendance: att, enrollment: enr}
}

type enrollRequest struct {
	ImageData string `json:"image_data"`
}

// Summary returns a student's attendance over a look-back period.
// Query: class_id (defaults to the student's class), days (defaults to 30).
func (h *StudentsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	studentID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	query := r.URL.Query()
	var classID int64
	if v := query.Get("class_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "invalid class_id")
			return
		}
		classID = id
	}
	days := 0
	if v := query.Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = d
	}

	summary, err := h.attendance.StudentSummary(r.Context(), studentID, classID, days)
	if err != nil {
		respondServiceError(w, "student summary", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Find resolves a student of a class by number, ID or name (query q)
func (h *StudentsHandler) Find(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	ref := r.URL.Query().Get("q")
	if ref == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	student, err := h.attendance.FindStudent(r.Context(), classID, ref)
	if err != nil {
		respondServiceError(w, "find student", err)
		return
	}
	respondJSON(w, http.StatusOK, student)
}

// Enroll stores the face signature of a student from a photo
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	studentID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ImageData == "" {
		respondError(w, http.StatusBadRequest, "image_data is required")
		return
	}
	photo, err := extractor.DecodeImageData(req.ImageData)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.enrollment.Enroll(r.Context(), studentID, photo)
	if err != nil {
		respondServiceError(w, "enroll", err)
		return
	}
	log.Printf("Enrolled student %d (%s)", result.Student.ID, sanitizeForLog(result.Student.Name))
	respondJSON(w, http.StatusOK, result)
}

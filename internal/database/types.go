package database

import (
	"time"
)

// Session represents one capture window for a class.
// At most one Session per class is active at any instant.
type Session struct {
	ID        int64      `json:"id"`
	ClassID   int64      `json:"class_id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Active    bool       `json:"active"`
	CreatedBy int64      `json:"created_by"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewSession holds the caller-supplied attributes of a session being opened
type NewSession struct {
	ClassID   int64
	Name      string
	CreatedBy int64
	Notes     string
}

// AttendanceFact is the immutable record of a student's presence in a session.
// The pair (StudentID, SessionID) is unique.
type AttendanceFact struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	SessionID  int64     `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Manual     bool      `json:"manual"`
	Notes      string    `json:"notes,omitempty"`
}

// EnrollmentRecord is a student's enrolled face signature
type EnrollmentRecord struct {
	StudentID  int64
	Signature  []float32
	Model      string
	EnrolledAt time.Time
}

// Student is a roster entry as seen by the attendance core
type Student struct {
	ID           int64  `json:"id"`
	Number       string `json:"number"` // institutional student number (NIM)
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ClassID      int64  `json:"class_id"`
	Active       bool   `json:"active"`
	HasSignature bool   `json:"has_signature"`
}

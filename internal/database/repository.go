package database

import (
	"context"
	"time"
)

// EnrollmentReader provides read-only access to class rosters and enrolled signatures
type EnrollmentReader interface {
	// SignaturesForClass returns the signatures of all active students of a class
	// that have one enrolled, ordered by student ID
	SignaturesForClass(ctx context.Context, classID int64) ([]EnrollmentRecord, error)
	// Roster returns all active students of a class ordered by student ID
	Roster(ctx context.Context, classID int64) ([]Student, error)
	// GetStudent retrieves a student by ID, returns nil if not found
	GetStudent(ctx context.Context, studentID int64) (*Student, error)
}

// EnrollmentWriter provides write access to enrolled signatures
type EnrollmentWriter interface {
	EnrollmentReader

	// SaveSignature stores (or replaces) the signature of a student
	SaveSignature(ctx context.Context, studentID int64, signature []float32, model string) error
}

// SessionStore persists capture sessions
type SessionStore interface {
	// OpenSession atomically closes any active session of the class and inserts a new
	// active one. Returns the new session and the sessions that were force-closed.
	OpenSession(ctx context.Context, s NewSession) (*Session, []Session, error)
	// CloseSession sets end_time and clears active on an active session.
	// Closing an already closed session returns it unchanged with closed=false.
	// Returns nil if the session does not exist.
	CloseSession(ctx context.Context, sessionID int64) (session *Session, closed bool, err error)
	// GetSession retrieves a session by ID, returns nil if not found
	GetSession(ctx context.Context, sessionID int64) (*Session, error)
	// ListSessionsByClass returns the sessions of a class, newest first.
	// A zero since returns sessions of any age; limit <= 0 means no limit.
	ListSessionsByClass(ctx context.Context, classID int64, since time.Time, limit int) ([]Session, error)
}

// AttendanceStore persists attendance facts
type AttendanceStore interface {
	// InsertFactIfAbsent inserts the fact unless one already exists for
	// (StudentID, SessionID). It returns the stored fact and whether it was created
	// by this call. The check and the insert are a single atomic operation.
	InsertFactIfAbsent(ctx context.Context, fact AttendanceFact) (*AttendanceFact, bool, error)
	// FactsBySession returns all facts of a session ordered by timestamp
	FactsBySession(ctx context.Context, sessionID int64) ([]AttendanceFact, error)
	// FactsByStudent returns all facts of a student ordered by timestamp
	FactsByStudent(ctx context.Context, studentID int64) ([]AttendanceFact, error)
	// FactsBySessions returns the facts of the given sessions ordered by timestamp
	FactsBySessions(ctx context.Context, sessionIDs []int64) ([]AttendanceFact, error)
}

package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// RecordRequest describes one attempt to credit a student for a session
type RecordRequest struct {
	StudentID  int64
	SessionID  int64
	Confidence float64
	Manual     bool
	Notes      string
}

// RecordOutcome tells whether this call created the fact. When Created is
// false, Fact is the one recorded earlier and the request's values were dropped.
type RecordOutcome struct {
	Created bool                    `json:"created"`
	Fact    database.AttendanceFact `json:"fact"`
}

// AlreadyExists reports whether an earlier fact was found instead of creating one
func (o RecordOutcome) AlreadyExists() bool {
	return !o.Created
}

// Record credits a student for a session. The first call for a (student, session)
// pair wins; every later call, automatic or manual, gets the original fact back.
// Safe for concurrent use: the store decides atomically.
func (s *Service) Record(ctx context.Context, req RecordRequest) (RecordOutcome, error) {
	fact, created, err := s.facts.InsertFactIfAbsent(ctx, database.AttendanceFact{
		StudentID:  req.StudentID,
		SessionID:  req.SessionID,
		Timestamp:  s.now(),
		Confidence: req.Confidence,
		Manual:     req.Manual,
		Notes:      req.Notes,
	})
	if err != nil {
		return RecordOutcome{}, storeError("record attendance", err)
	}

	if created {
		log.Printf("Attendance recorded: student %d in session %d (confidence %.2f, manual %v)",
			fact.StudentID, fact.SessionID, fact.Confidence, fact.Manual)
	} else {
		log.Printf("Attendance already recorded: student %d in session %d", fact.StudentID, fact.SessionID)
	}
	return RecordOutcome{Created: created, Fact: *fact}, nil
}

// ManualRecord credits a student without a face match. The entry carries
// confidence 0 and goes through the same first-writer-wins path as captures.
func (s *Service) ManualRecord(ctx context.Context, studentID, sessionID int64, notes string) (RecordOutcome, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return RecordOutcome{}, err
	}

	student, err := s.enrollments.GetStudent(ctx, studentID)
	if err != nil {
		return RecordOutcome{}, storeError("get student", err)
	}
	if student == nil {
		return RecordOutcome{}, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}
	if student.ClassID != session.ClassID {
		return RecordOutcome{}, fmt.Errorf("student %d, class %d: %w", studentID, session.ClassID, ErrStudentNotInClass)
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = constants.ManualEntryNote
	}
	return s.Record(ctx, RecordRequest{
		StudentID:  studentID,
		SessionID:  sessionID,
		Confidence: constants.ManualConfidence,
		Manual:     true,
		Notes:      notes,
	})
}

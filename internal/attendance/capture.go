package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// OutcomeKind names the result of processing one captured frame
type OutcomeKind string

const (
	OutcomeSessionNotFound OutcomeKind = "session_not_found"
	OutcomeSessionClosed   OutcomeKind = "session_closed"
	OutcomeNoFaceDetected  OutcomeKind = "no_face_detected"
	OutcomeNoEnrolled      OutcomeKind = "no_enrolled_students"
	OutcomeNotRecognized   OutcomeKind = "not_recognized"
	OutcomeBelowConfidence OutcomeKind = "below_confidence_threshold"
	OutcomeDuplicate       OutcomeKind = "duplicate"
	OutcomeRecorded        OutcomeKind = "recorded"
)

// Outcome is the structured result of a capture. It carries enough detail to
// render a message without querying the stores again.
type Outcome struct {
	Kind       OutcomeKind              `json:"kind"`
	CaptureID  string                   `json:"capture_id"`
	SessionID  int64                    `json:"session_id"`
	ClassID    int64                    `json:"class_id,omitempty"`
	StudentID  int64                    `json:"student_id,omitempty"`
	Distance   *float64                 `json:"distance,omitempty"`
	Confidence *float64                 `json:"confidence,omitempty"`
	Fact       *database.AttendanceFact `json:"fact,omitempty"`
	At         time.Time                `json:"at"`
}

// Detected reports whether a face was found in the frame
func (o Outcome) Detected() bool {
	switch o.Kind {
	case OutcomeSessionNotFound, OutcomeSessionClosed, OutcomeNoFaceDetected:
		return false
	}
	return true
}

// Matched reports whether the frame was attributed to a student
func (o Outcome) Matched() bool {
	return o.Kind == OutcomeRecorded || o.Kind == OutcomeDuplicate
}

// Message renders the outcome as a short operator-facing sentence
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSessionNotFound:
		return fmt.Sprintf("Session %d does not exist", o.SessionID)
	case OutcomeSessionClosed:
		return fmt.Sprintf("Session %d is closed", o.SessionID)
	case OutcomeNoFaceDetected:
		return "No face detected"
	case OutcomeNoEnrolled:
		return fmt.Sprintf("No enrolled students in class %d", o.ClassID)
	case OutcomeNotRecognized:
		return "Face not recognized"
	case OutcomeBelowConfidence:
		return fmt.Sprintf("Student %d matched with low confidence (%.2f)", o.StudentID, deref(o.Confidence))
	case OutcomeDuplicate:
		return fmt.Sprintf("Student %d is already marked present", o.StudentID)
	case OutcomeRecorded:
		return fmt.Sprintf("Attendance recorded for student %d (confidence %.2f)", o.StudentID, deref(o.Confidence))
	}
	return string(o.Kind)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Capture processes one frame for a session: extract a signature, match it
// against the class's enrolled students and record attendance on success.
// No lock is held while the extractor or the stores are called.
func (s *Service) Capture(ctx context.Context, sessionID int64, frame []byte) (Outcome, error) {
	out := Outcome{
		CaptureID: uuid.NewString(),
		SessionID: sessionID,
		At:        s.now(),
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return out, storeError("get session", err)
	}
	if session == nil {
		out.Kind = OutcomeSessionNotFound
		return out, nil
	}
	out.ClassID = session.ClassID
	if !session.Active {
		out.Kind = OutcomeSessionClosed
		return out, nil
	}

	signature, found, err := s.extractor.Extract(ctx, frame)
	if err != nil {
		if errors.Is(err, extractor.ErrInvalidImage) {
			return out, fmt.Errorf("extract signature: %w", err)
		}
		return out, fmt.Errorf("extract signature: %w: %w", ErrExtractorUnavailable, err)
	}
	if !found {
		out.Kind = OutcomeNoFaceDetected
		return out, nil
	}

	records, err := s.enrollments.SignaturesForClass(ctx, session.ClassID)
	if err != nil {
		return out, storeError("load signatures", err)
	}

	result := s.matcher.Match(signature, facematch.CandidatesFromRecords(records))
	if result.Status == facematch.MatchNoCandidates {
		out.Kind = OutcomeNoEnrolled
		return out, nil
	}

	out.StudentID = result.StudentID
	out.Distance = &result.Distance
	out.Confidence = &result.Confidence

	if !result.Accepted() {
		out.Kind = OutcomeNotRecognized
		return out, nil
	}
	if result.Confidence < s.minConfidence {
		out.Kind = OutcomeBelowConfidence
		return out, nil
	}

	rec, err := s.Record(ctx, RecordRequest{
		StudentID:  result.StudentID,
		SessionID:  sessionID,
		Confidence: result.Confidence,
	})
	if err != nil {
		return out, err
	}

	out.Fact = &rec.Fact
	if rec.Created {
		out.Kind = OutcomeRecorded
	} else {
		out.Kind = OutcomeDuplicate
		log.Printf("Warning: duplicate capture %s for student %d in session %d", out.CaptureID, result.StudentID, sessionID)
	}
	return out, nil
}

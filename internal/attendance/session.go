package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// OpenRequest holds the attributes of a session being opened
type OpenRequest struct {
	ClassID int64
	Name    string
	Actor   int64
	Notes   string
}

// StudentStatus is one roster line of a session status report
type StudentStatus struct {
	StudentID  int64      `json:"student_id"`
	Number     string     `json:"number"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Present    bool       `json:"present"`
	Status     string     `json:"status"`
	TimeIn     *time.Time `json:"time_in,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Manual     bool       `json:"manual"`
}

// Roster line statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// SessionStatus is the live attendance picture of one session
type SessionStatus struct {
	Session       database.Session `json:"session"`
	TotalStudents int              `json:"total_students"`
	PresentCount  int              `json:"present_count"`
	AbsentCount   int              `json:"absent_count"`
	Students      []StudentStatus  `json:"students"`
}

// OpenSession opens a new capture session for a class. An active session of the
// same class is closed first; that is reported as a warning, not an error.
func (s *Service) OpenSession(ctx context.Context, req OpenRequest) (*database.Session, error) {
	if req.ClassID <= 0 {
		return nil, fmt.Errorf("invalid class ID %d", req.ClassID)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = constants.DefaultSessionName
	}

	session, closed, err := s.sessions.OpenSession(ctx, database.NewSession{
		ClassID:   req.ClassID,
		Name:      name,
		CreatedBy: req.Actor,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, storeError("open session", err)
	}

	for _, c := range closed {
		log.Printf("Warning: session %d (%s) of class %d was still active and has been closed", c.ID, c.Name, c.ClassID)
	}
	log.Printf("Session %d opened for class %d", session.ID, session.ClassID)
	return session, nil
}

// CloseSession ends a session. Closing a closed session returns it unchanged.
func (s *Service) CloseSession(ctx context.Context, sessionID int64) (*database.Session, error) {
	session, changed, err := s.sessions.CloseSession(ctx, sessionID)
	if err != nil {
		return nil, storeError("close session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
	}
	if changed {
		log.Printf("Session %d of class %d closed", session.ID, session.ClassID)
	}
	return session, nil
}

// GetSession returns a session by ID
func (s *Service) GetSession(ctx context.Context, sessionID int64) (*database.Session, error) {
	return s.loadSession(ctx, sessionID)
}

// SessionStatus computes present and absent counts over the class's active roster.
// The report is built from the stores on every call.
func (s *Service) SessionStatus(ctx context.Context, sessionID int64) (*SessionStatus, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	roster, err := s.enrollments.Roster(ctx, session.ClassID)
	if err != nil {
		return nil, storeError("load roster", err)
	}
	facts, err := s.facts.FactsBySession(ctx, sessionID)
	if err != nil {
		return nil, storeError("load attendance", err)
	}

	byStudent := make(map[int64]database.AttendanceFact, len(facts))
	for _, f := range facts {
		byStudent[f.StudentID] = f
	}

	status := &SessionStatus{
		Session:       *session,
		TotalStudents: len(roster),
		Students:      make([]StudentStatus, 0, len(roster)),
	}
	for _, st := range roster {
		line := StudentStatus{
			StudentID: st.ID,
			Number:    st.Number,
			Name:      st.Name,
			Email:     st.Email,
			Status:    StatusAbsent,
		}
		if f, ok := byStudent[st.ID]; ok {
			ts := f.Timestamp
			conf := f.Confidence
			line.Present = true
			line.Status = StatusPresent
			line.TimeIn = &ts
			line.Confidence = &conf
			line.Manual = f.Manual
			status.PresentCount++
		}
		status.Students = append(status.Students, line)
	}
	status.AbsentCount = status.TotalStudents - status.PresentCount
	return status, nil
}

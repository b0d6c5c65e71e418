package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// SessionSummary is one entry of a class's session history
type SessionSummary struct {
	database.Session
	PresentCount int `json:"present_count"`
}

// StudentSummary aggregates a student's attendance over a look-back period
type StudentSummary struct {
	StudentID      int64   `json:"student_id"`
	ClassID        int64   `json:"class_id"`
	PeriodDays     int     `json:"period_days"`
	TotalSessions  int     `json:"total_sessions"`
	PresentCount   int     `json:"present_count"`
	AbsentCount    int     `json:"absent_count"`
	AttendanceRate float64 `json:"attendance_rate"` // percent
	AvgConfidence  float64 `json:"avg_confidence"`  // over automatic entries only
}

// History returns the newest sessions of a class with their present counts.
// limit <= 0 uses the default page size.
func (s *Service) History(ctx context.Context, classID int64, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	limit = min(limit, constants.MaxHistoryLimit)

	sessions, err := s.sessions.ListSessionsByClass(ctx, classID, time.Time{}, limit)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	if len(sessions) == 0 {
		return []SessionSummary{}, nil
	}

	ids := make([]int64, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	facts, err := s.facts.FactsBySessions(ctx, ids)
	if err != nil {
		return nil, storeError("load attendance", err)
	}
	present := make(map[int64]int, len(sessions))
	for _, f := range facts {
		present[f.SessionID]++
	}

	out := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		out[i] = SessionSummary{Session: sess, PresentCount: present[sess.ID]}
	}
	return out, nil
}

// StudentSummary reports how many of the class's sessions started in the last
// periodDays the student attended. periodDays <= 0 uses the default period.
func (s *Service) StudentSummary(ctx context.Context, studentID, classID int64, periodDays int) (*StudentSummary, error) {
	if periodDays <= 0 {
		periodDays = constants.DefaultSummaryPeriodDays
	}

	student, err := s.enrollments.GetStudent(ctx, studentID)
	if err != nil {
		return nil, storeError("get student", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}
	if classID <= 0 {
		classID = student.ClassID
	}

	since := s.now().AddDate(0, 0, -periodDays)
	sessions, err := s.sessions.ListSessionsByClass(ctx, classID, since, 0)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	facts, err := s.facts.FactsByStudent(ctx, studentID)
	if err != nil {
		return nil, storeError("load attendance", err)
	}

	inPeriod := make(map[int64]bool, len(sessions))
	for _, sess := range sessions {
		inPeriod[sess.ID] = true
	}

	summary := &StudentSummary{
		StudentID:     studentID,
		ClassID:       classID,
		PeriodDays:    periodDays,
		TotalSessions: len(sessions),
	}
	var confSum float64
	var confCount int
	for _, f := range facts {
		if !inPeriod[f.SessionID] {
			continue
		}
		summary.PresentCount++
		if !f.Manual && f.Confidence != 0 {
			confSum += f.Confidence
			confCount++
		}
	}
	summary.AbsentCount = summary.TotalSessions - summary.PresentCount
	if summary.TotalSessions > 0 {
		summary.AttendanceRate = float64(summary.PresentCount) / float64(summary.TotalSessions) * 100
	}
	if confCount > 0 {
		summary.AvgConfidence = confSum / float64(confCount)
	}
	return summary, nil
}

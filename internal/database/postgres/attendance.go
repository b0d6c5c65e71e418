package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

const factColumns = `id, student_id, session_id, timestamp, confidence, is_manual, COALESCE(notes, '')`

// FactRepository provides PostgreSQL-backed storage of attendance facts
type FactRepository struct {
	pool *Pool
}

// NewFactRepository creates a new PostgreSQL attendance fact repository
func NewFactRepository(pool *Pool) *FactRepository {
	return &FactRepository{pool: pool}
}

func scanFact(row rowScanner) (*database.AttendanceFact, error) {
	var f database.AttendanceFact
	if err := row.Scan(
		&f.ID,
		&f.StudentID,
		&f.SessionID,
		&f.Timestamp,
		&f.Confidence,
		&f.Manual,
		&f.Notes,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// InsertFactIfAbsent inserts the fact unless (student_id, session_id) already has
// one. The ON CONFLICT clause makes the decision inside the database, so of any
// number of concurrent inserts exactly one returns created=true.
func (r *FactRepository) InsertFactIfAbsent(ctx context.Context, fact database.AttendanceFact) (*database.AttendanceFact, bool, error) {
	inserted, err := scanFact(r.pool.QueryRow(ctx, `
		INSERT INTO attendance_records (student_id, session_id, confidence, is_manual, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT ON CONSTRAINT unique_attendance_per_session DO NOTHING
		RETURNING `+factColumns,
		fact.StudentID, fact.SessionID, fact.Confidence, fact.Manual, fact.Notes,
	))
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert attendance fact: %w", err)
	}

	// Conflict: the winning row is committed, read it back.
	existing, err := scanFact(r.pool.QueryRow(ctx,
		"SELECT "+factColumns+" FROM attendance_records WHERE student_id = $1 AND session_id = $2",
		fact.StudentID, fact.SessionID))
	if err != nil {
		return nil, false, fmt.Errorf("read existing attendance fact: %w", err)
	}
	return existing, false, nil
}

// FactsBySession returns all facts of a session ordered by timestamp
func (r *FactRepository) FactsBySession(ctx context.Context, sessionID int64) ([]database.AttendanceFact, error) {
	return r.queryFacts(ctx,
		"SELECT "+factColumns+" FROM attendance_records WHERE session_id = $1 ORDER BY timestamp, id", sessionID)
}

// FactsByStudent returns all facts of a student ordered by timestamp
func (r *FactRepository) FactsByStudent(ctx context.Context, studentID int64) ([]database.AttendanceFact, error) {
	return r.queryFacts(ctx,
		"SELECT "+factColumns+" FROM attendance_records WHERE student_id = $1 ORDER BY timestamp, id", studentID)
}

// FactsBySessions returns the facts of the given sessions ordered by timestamp
func (r *FactRepository) FactsBySessions(ctx context.Context, sessionIDs []int64) ([]database.AttendanceFact, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	return r.queryFacts(ctx,
		"SELECT "+factColumns+" FROM attendance_records WHERE session_id = ANY($1) ORDER BY timestamp, id",
		pq.Array(sessionIDs))
}

func (r *FactRepository) queryFacts(ctx context.Context, query string, args ...any) ([]database.AttendanceFact, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance facts: %w", err)
	}
	defer rows.Close()

	var facts []database.AttendanceFact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance fact: %w", err)
		}
		facts = append(facts, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance facts: %w", err)
	}
	return facts, nil
}

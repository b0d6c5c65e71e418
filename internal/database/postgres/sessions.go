package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// ErrActiveSessionExists is returned when the one-active-session-per-class
// index rejects an insert that slipped past the class lock.
var ErrActiveSessionExists = errors.New("class already has an active session")

const sessionColumns = `id, class_id, name, start_time, end_time, is_active, created_by, COALESCE(notes, ''), created_at, updated_at`

// SessionRepository provides PostgreSQL-backed storage of capture sessions
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*database.Session, error) {
	var s database.Session
	var endTime sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.ClassID,
		&s.Name,
		&s.StartTime,
		&endTime,
		&s.Active,
		&s.CreatedBy,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	return &s, nil
}

// OpenSession closes the active session of the class (if any) and inserts a new
// active one inside a single transaction. The transaction holds an advisory lock
// keyed by class ID, so concurrent opens for one class run one after another.
func (r *SessionRepository) OpenSession(ctx context.Context, ns database.NewSession) (*database.Session, []database.Session, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", ns.ClassID); err != nil {
		return nil, nil, fmt.Errorf("lock class %d: %w", ns.ClassID, err)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE attendance_sessions
		SET is_active = FALSE, end_time = NOW(), updated_at = NOW()
		WHERE class_id = $1 AND is_active
		RETURNING `+sessionColumns, ns.ClassID)
	if err != nil {
		return nil, nil, fmt.Errorf("close active sessions: %w", err)
	}
	var closed []database.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan closed session: %w", err)
		}
		closed = append(closed, *s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("iterate closed sessions: %w", err)
	}
	rows.Close()

	created, err := scanSession(tx.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (class_id, name, created_by, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING `+sessionColumns,
		ns.ClassID, ns.Name, ns.CreatedBy, ns.Notes,
	))
	if isUniqueViolation(err) {
		return nil, nil, fmt.Errorf("insert session for class %d: %w", ns.ClassID, ErrActiveSessionExists)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit session open: %w", err)
	}
	return created, closed, nil
}

// CloseSession ends an active session. An already closed session is returned
// unchanged with closed=false. Returns nil if the session does not exist.
func (r *SessionRepository) CloseSession(ctx context.Context, sessionID int64) (*database.Session, bool, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `
		UPDATE attendance_sessions
		SET is_active = FALSE, end_time = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+sessionColumns, sessionID))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("close session: %w", err)
	}

	// Either unknown or closed already.
	s, err = r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return s, false, nil
}

// GetSession retrieves a session by ID, returns nil if not found
func (r *SessionRepository) GetSession(ctx context.Context, sessionID int64) (*database.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM attendance_sessions WHERE id = $1", sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessionsByClass returns the sessions of a class, newest first
func (r *SessionRepository) ListSessionsByClass(ctx context.Context, classID int64, since time.Time, limit int) ([]database.Session, error) {
	query := "SELECT " + sessionColumns + " FROM attendance_sessions WHERE class_id = $1"
	args := []any{classID}
	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	query += " ORDER BY start_time DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ActiveSession returns the active session of a class, nil if there is none
func (r *SessionRepository) ActiveSession(ctx context.Context, classID int64) (*database.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM attendance_sessions WHERE class_id = $1 AND is_active", classID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

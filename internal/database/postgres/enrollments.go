package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository reads the student roster and reads/writes enrolled
// face signatures stored as pgvector columns.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

const studentColumns = `s.id, s.student_number, s.name, COALESCE(s.email, ''), s.class_id, s.is_active, e.student_id IS NOT NULL`

func scanStudent(row rowScanner) (*database.Student, error) {
	var st database.Student
	if err := row.Scan(
		&st.ID,
		&st.Number,
		&st.Name,
		&st.Email,
		&st.ClassID,
		&st.Active,
		&st.HasSignature,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// SignaturesForClass returns the signatures of all active students of a class
// that have one enrolled, ordered by student ID
func (r *EnrollmentRepository) SignaturesForClass(ctx context.Context, classID int64) ([]database.EnrollmentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.student_id, e.signature, e.model, e.enrolled_at
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE s.class_id = $1 AND s.is_active
		ORDER BY e.student_id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query class signatures: %w", err)
	}
	defer rows.Close()

	var records []database.EnrollmentRecord
	for rows.Next() {
		var rec database.EnrollmentRecord
		var vec pgvector.Vector
		if err := rows.Scan(&rec.StudentID, &vec, &rec.Model, &rec.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		rec.Signature = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return records, nil
}

// Roster returns all active students of a class ordered by student ID
func (r *EnrollmentRepository) Roster(ctx context.Context, classID int64) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		LEFT JOIN enrollments e ON e.student_id = s.id
		WHERE s.class_id = $1 AND s.is_active
		ORDER BY s.id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return students, nil
}

// GetStudent retrieves a student by ID, returns nil if not found
func (r *EnrollmentRepository) GetStudent(ctx context.Context, studentID int64) (*database.Student, error) {
	st, err := scanStudent(r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		LEFT JOIN enrollments e ON e.student_id = s.id
		WHERE s.id = $1
	`, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

// SaveSignature stores (or replaces) the signature of a student
func (r *EnrollmentRepository) SaveSignature(ctx context.Context, studentID int64, signature []float32, model string) error {
	if len(signature) != database.SignatureDim {
		return fmt.Errorf("signature has %d dimensions, expected %d", len(signature), database.SignatureDim)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (student_id, signature, model, enrolled_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			signature = EXCLUDED.signature,
			model = EXCLUDED.model,
			enrolled_at = EXCLUDED.enrolled_at
	`, studentID, pgvector.NewVector(signature), model)
	if err != nil {
		return fmt.Errorf("save signature: %w", err)
	}
	return nil
}

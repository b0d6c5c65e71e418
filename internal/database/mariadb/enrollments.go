package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// legacyModel labels signatures read from the roster database, which does not record one.
const legacyModel = "dlib_resnet_v1"

const studentColumns = `id, student_id, name, COALESCE(email, ''), class_id, is_active, face_encoding_json IS NOT NULL AND face_encoding_json <> ''`

func scanStudent(row interface{ Scan(...any) error }) (*database.Student, error) {
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

// decodeSignature parses a signature stored as a JSON list of numbers.
func decodeSignature(raw string) ([]float32, error) {
	var values []float64
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(values) != database.SignatureDim {
		return nil, fmt.Errorf("signature has %d dimensions, expected %d", len(values), database.SignatureDim)
	}
	sig := make([]float32, len(values))
	for i, v := range values {
		sig[i] = float32(v)
	}
	return sig, nil
}

// encodeSignature renders a signature as a JSON list of numbers.
func encodeSignature(sig []float32) (string, error) {
	data, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("marshal signature: %w", err)
	}
	return string(data), nil
}

// SignaturesForClass returns the signatures of all active students of a class
// ordered by student ID. Rows whose JSON cannot be decoded are skipped with a
// warning, so the student simply cannot be auto-matched.
func (p *Pool) SignaturesForClass(ctx context.Context, classID int64) ([]database.EnrollmentRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, face_encoding_json, COALESCE(registration_date, created_at)
		FROM students
		WHERE class_id = ? AND is_active AND face_encoding_json IS NOT NULL AND face_encoding_json <> ''
		ORDER BY id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query class signatures: %w", err)
	}
	defer rows.Close()

	var records []database.EnrollmentRecord
	for rows.Next() {
		var id int64
		var raw string
		var enrolledAt time.Time
		if err := rows.Scan(&id, &raw, &enrolledAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sig, err := decodeSignature(raw)
		if err != nil {
			log.Printf("Warning: skipping signature of student %d: %v", id, err)
			continue
		}
		records = append(records, database.EnrollmentRecord{
			StudentID:  id,
			Signature:  sig,
			Model:      legacyModel,
			EnrolledAt: enrolledAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Roster returns all active students of a class ordered by student ID
func (p *Pool) Roster(ctx context.Context, classID int64) ([]database.Student, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE class_id = ? AND is_active ORDER BY id", classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		students = append(students, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return students, nil
}

// GetStudent retrieves a student by ID, returns nil if not found
func (p *Pool) GetStudent(ctx context.Context, studentID int64) (*database.Student, error) {
	st, err := scanStudent(p.db.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ?", studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

// SaveSignature writes the signature into the student's face_encoding_json column.
// The model name is not stored by this schema.
func (p *Pool) SaveSignature(ctx context.Context, studentID int64, signature []float32, _ string) error {
	if len(signature) != database.SignatureDim {
		return fmt.Errorf("signature has %d dimensions, expected %d", len(signature), database.SignatureDim)
	}
	data, err := encodeSignature(signature)
	if err != nil {
		return err
	}

	// Verify the student exists first (MySQL RowsAffected returns 0 when data is unchanged)
	var exists bool
	err = p.db.QueryRowContext(ctx, "SELECT 1 FROM students WHERE id = ?", studentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("student %d not found", studentID)
	}
	if err != nil {
		return fmt.Errorf("check student: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		"UPDATE students SET face_encoding_json = ?, registration_date = NOW(), updated_at = NOW() WHERE id = ?",
		data, studentID)
	if err != nil {
		return fmt.Errorf("update signature: %w", err)
	}
	return nil
}

var _ database.EnrollmentWriter = (*Pool)(nil)

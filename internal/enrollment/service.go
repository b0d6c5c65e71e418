// Package enrollment stores a student's reference face signature and warns
// when the new signature sits close to a classmate's.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrStudentNotFound is returned when the student to enroll does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrNoFace is returned when the enrollment photo contains no face.
	ErrNoFace = errors.New("no face detected in enrollment photo")
)

// Extractor turns a photo into a face signature
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]float32, bool, error)
}

// Lookalike is a classmate whose signature is within tolerance of the new one.
// Such pairs can be confused by the matcher during capture.
type Lookalike struct {
	StudentID  int64   `json:"student_id"`
	Number     string  `json:"number"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Result describes a completed enrollment
type Result struct {
	Student    database.Student `json:"student"`
	Model      string           `json:"model"`
	Lookalikes []Lookalike      `json:"lookalikes"`
}

// Service enrolls face signatures
type Service struct {
	store          database.EnrollmentWriter
	extractor      Extractor
	model          string
	tolerance      float64
	lookalikeLimit int
}

// NewService creates an enrollment service. tolerance is the matcher's
// distance cutoff, used to decide which classmates count as lookalikes.
func NewService(store database.EnrollmentWriter, extractor Extractor, model string, tolerance float64) *Service {
	if tolerance <= 0 {
		tolerance = facematch.DefaultTolerance
	}
	return &Service{
		store:          store,
		extractor:      extractor,
		model:          model,
		tolerance:      tolerance,
		lookalikeLimit: constants.DefaultLookalikeLimit,
	}
}

// Enroll extracts the face from the photo and stores it as the student's
// signature, replacing any previous one.
func (s *Service) Enroll(ctx context.Context, studentID int64, photo []byte) (*Result, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}

	sig, found, err := s.extractor.Extract(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("extract signature: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrNoFace)
	}

	if err := s.store.SaveSignature(ctx, studentID, sig, s.model); err != nil {
		return nil, fmt.Errorf("save signature: %w", err)
	}
	student.HasSignature = true

	lookalikes, err := s.findLookalikes(ctx, student, sig)
	if err != nil {
		// The signature is stored; the check is advisory.
		log.Printf("Warning: lookalike check for student %d failed: %v", studentID, err)
		lookalikes = []Lookalike{}
	}
	for _, l := range lookalikes {
		log.Printf("Warning: student %d (%s) looks like student %d (%s), distance %.3f",
			student.ID, student.Name, l.StudentID, l.Name, l.Distance)
	}

	return &Result{
		Student:    *student,
		Model:      s.model,
		Lookalikes: lookalikes,
	}, nil
}

// findLookalikes indexes the class's signatures and returns the classmates
// nearest to sig that fall within tolerance.
func (s *Service) findLookalikes(ctx context.Context, student *database.Student, sig []float32) ([]Lookalike, error) {
	records, err := s.store.SignaturesForClass(ctx, student.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load class signatures: %w", err)
	}

	idx := database.NewSignatureIndex()
	idx.BuildFromRecords(records)
	if idx.Count() == 0 {
		return []Lookalike{}, nil
	}

	neighbors, err := idx.Nearest(sig, s.lookalikeLimit, student.ID)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	roster, err := s.store.Roster(ctx, student.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	byID := make(map[int64]database.Student, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}

	out := []Lookalike{}
	for _, n := range neighbors {
		if n.Distance > s.tolerance {
			continue
		}
		st := byID[n.StudentID]
		out = append(out, Lookalike{
			StudentID:  n.StudentID,
			Number:     st.Number,
			Name:       st.Name,
			Distance:   n.Distance,
			Confidence: facematch.Confidence(n.Distance),
		})
	}
	return out, nil
}

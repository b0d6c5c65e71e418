package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// ErrAmbiguousStudent is returned when a name matches more than one classmate.
var ErrAmbiguousStudent = errors.New("student reference is ambiguous")

// FindStudent resolves an operator-typed reference against a class roster.
// The reference may be a student number, a database ID or a name; names are
// compared without case and diacritics ("jiri novak" finds "Jiří Novák").
func (s *Service) FindStudent(ctx context.Context, classID int64, ref string) (*database.Student, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty reference: %w", ErrStudentNotFound)
	}

	roster, err := s.enrollments.Roster(ctx, classID)
	if err != nil {
		return nil, storeError("load roster", err)
	}

	for i := range roster {
		if roster[i].Number == ref {
			return &roster[i], nil
		}
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range roster {
			if roster[i].ID == id {
				return &roster[i], nil
			}
		}
	}

	want := facematch.NormalizePersonName(ref)
	var found *database.Student
	for i := range roster {
		if facematch.NormalizePersonName(roster[i].Name) != want {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%q in class %d: %w", ref, classID, ErrAmbiguousStudent)
		}
		found = &roster[i]
	}
	if found == nil {
		return nil, fmt.Errorf("%q in class %d: %w", ref, classID, ErrStudentNotFound)
	}
	return found, nil
}

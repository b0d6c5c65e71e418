package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestFindStudent(t *testing.T) {
	f := newFixture(t, defaultMatching())

	tests := []struct {
		name    string
		classID int64
		ref     string
		wantID  int64
		wantErr error
	}{
		{"by number", 5, "B002", 2, nil},
		{"by id", 5, "3", 3, nil},
		{"by exact name", 5, "Alice Nováková", 1, nil},
		{"by name without diacritics", 5, "alice novakova", 1, nil},
		{"by name with dash", 5, "carol-dvorak", 3, nil},
		{"student of another class", 5, "D004", 0, ErrStudentNotFound},
		{"unknown name", 5, "Zed", 0, ErrStudentNotFound},
		{"empty", 5, "  ", 0, ErrStudentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := f.svc.FindStudent(context.Background(), tt.classID, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindStudent() error = %v", err)
			}
			if st.ID != tt.wantID {
				t.Errorf("expected student %d, got %d", tt.wantID, st.ID)
			}
		})
	}
}

func TestFindStudent_Ambiguous(t *testing.T) {
	f := newFixture(t, defaultMatching())
	f.roster.AddStudent(database.Student{ID: 10, Number: "X010", Name: "Alice Novakova", ClassID: 5, Active: true}, nil)

	_, err := f.svc.FindStudent(context.Background(), 5, "alice novakova")
	if !errors.Is(err, ErrAmbiguousStudent) {
		t.Errorf("expected ErrAmbiguousStudent, got %v", err)
	}
}

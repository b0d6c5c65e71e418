package facematch

import (
	"math"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// sigAt returns a 128-dim signature whose first component is x, so the
// distance between sigAt(a) and sigAt(b) is |a-b|.
func sigAt(x float32) []float32 {
	s := make([]float32, database.SignatureDim)
	s[0] = x
	return s
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestMatcher_AcceptsWithinTolerance(t *testing.T) {
	m := NewMatcher(0.6)
	res := m.Match(sigAt(0), []Candidate{
		{StudentID: 7, Signature: sigAt(0.35)},
		{StudentID: 8, Signature: sigAt(0.9)},
	})

	if res.Status != MatchAccepted {
		t.Fatalf("expected accepted, got %s", res.Status)
	}
	if res.StudentID != 7 {
		t.Errorf("expected student 7, got %d", res.StudentID)
	}
	if !approx(res.Distance, 0.35) {
		t.Errorf("expected distance 0.35, got %f", res.Distance)
	}
	if !approx(res.Confidence, 0.65) {
		t.Errorf("expected confidence 0.65, got %f", res.Confidence)
	}
}

func TestMatcher_RejectsBeyondTolerance(t *testing.T) {
	m := NewMatcher(0.6)
	res := m.Match(sigAt(0), []Candidate{{StudentID: 7, Signature: sigAt(0.70)}})

	if res.Status != MatchRejected {
		t.Fatalf("expected rejected, got %s", res.Status)
	}
	if res.Accepted() {
		t.Error("rejected result reports accepted")
	}
	// The closest candidate and its confidence are still reported.
	if res.StudentID != 7 {
		t.Errorf("expected closest student 7, got %d", res.StudentID)
	}
	if !approx(res.Confidence, 0.30) {
		t.Errorf("expected confidence 0.30, got %f", res.Confidence)
	}
}

func TestMatcher_ToleranceBoundary(t *testing.T) {
	// Exactly representable values keep the boundary exact.
	m := &Matcher{Tolerance: 0.5}
	res := m.Match(sigAt(0), []Candidate{{StudentID: 1, Signature: sigAt(0.5)}})
	if res.Status != MatchAccepted {
		t.Errorf("distance equal to tolerance should be accepted, got %s", res.Status)
	}
}

func TestMatcher_NoCandidates(t *testing.T) {
	m := NewMatcher(0.6)

	tests := []struct {
		name       string
		unknown    []float32
		candidates []Candidate
	}{
		{"nil candidates", sigAt(0), nil},
		{"empty candidates", sigAt(0), []Candidate{}},
		{"dimension mismatch only", sigAt(0), []Candidate{{StudentID: 1, Signature: []float32{0, 0, 0}}}},
		{"empty unknown", nil, []Candidate{{StudentID: 1, Signature: sigAt(0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(tt.unknown, tt.candidates)
			if res.Status != MatchNoCandidates {
				t.Errorf("expected no_candidates, got %s", res.Status)
			}
			if res.StudentID != 0 {
				t.Errorf("expected no student, got %d", res.StudentID)
			}
		})
	}
}

func TestMatcher_SkipsMismatchedDimension(t *testing.T) {
	m := NewMatcher(0.6)
	res := m.Match(sigAt(0), []Candidate{
		{StudentID: 1, Signature: []float32{0}},
		{StudentID: 2, Signature: sigAt(0.2)},
	})
	if res.Status != MatchAccepted || res.StudentID != 2 {
		t.Errorf("expected student 2 accepted, got %+v", res)
	}
}

func TestMatcher_TieBreaksOnLowestStudentID(t *testing.T) {
	m := NewMatcher(0.6)
	orders := [][]Candidate{
		{{StudentID: 9, Signature: sigAt(0.25)}, {StudentID: 3, Signature: sigAt(-0.25)}, {StudentID: 5, Signature: sigAt(0.25)}},
		{{StudentID: 5, Signature: sigAt(0.25)}, {StudentID: 9, Signature: sigAt(0.25)}, {StudentID: 3, Signature: sigAt(-0.25)}},
		{{StudentID: 3, Signature: sigAt(-0.25)}, {StudentID: 5, Signature: sigAt(0.25)}, {StudentID: 9, Signature: sigAt(0.25)}},
	}

	for i, candidates := range orders {
		res := m.Match(sigAt(0), candidates)
		if res.StudentID != 3 {
			t.Errorf("order %d: expected student 3, got %d", i, res.StudentID)
		}
		if !approx(res.Distance, 0.25) {
			t.Errorf("order %d: expected distance 0.25, got %f", i, res.Distance)
		}
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	m := NewMatcher(0.6)
	candidates := []Candidate{
		{StudentID: 4, Signature: sigAt(0.4)},
		{StudentID: 2, Signature: sigAt(0.1)},
		{StudentID: 6, Signature: sigAt(-0.1)},
	}

	first := m.Match(sigAt(0), candidates)
	for range 50 {
		if got := m.Match(sigAt(0), candidates); got != first {
			t.Fatalf("non-deterministic result: %+v != %+v", got, first)
		}
	}
	if first.StudentID != 2 {
		t.Errorf("expected student 2 on tie, got %d", first.StudentID)
	}
}

func TestMatcher_ConfidenceNotClamped(t *testing.T) {
	m := NewMatcher(0.6)
	res := m.Match(sigAt(0), []Candidate{{StudentID: 1, Signature: sigAt(1.5)}})
	if res.Status != MatchRejected {
		t.Fatalf("expected rejected, got %s", res.Status)
	}
	if !approx(res.Confidence, -0.5) {
		t.Errorf("expected raw confidence -0.5, got %f", res.Confidence)
	}
}

func TestMatcher_NeverAcceptsBeyondTolerance(t *testing.T) {
	for _, tol := range []float64{0.1, 0.3, 0.6, 0.9} {
		m := &Matcher{Tolerance: tol}
		for _, x := range []float32{0.05, 0.2, 0.45, 0.61, 0.8, 1.2} {
			res := m.Match(sigAt(0), []Candidate{{StudentID: 1, Signature: sigAt(x)}})
			if res.Accepted() && res.Distance > tol {
				t.Errorf("tolerance %.2f accepted distance %f", tol, res.Distance)
			}
			if !res.Accepted() && res.Distance <= tol {
				t.Errorf("tolerance %.2f rejected distance %f", tol, res.Distance)
			}
		}
	}
}

func TestNewMatcher_DefaultTolerance(t *testing.T) {
	if m := NewMatcher(0); m.Tolerance != DefaultTolerance {
		t.Errorf("expected default tolerance %v, got %v", DefaultTolerance, m.Tolerance)
	}
	if m := NewMatcher(0.45); m.Tolerance != 0.45 {
		t.Errorf("expected tolerance 0.45, got %v", m.Tolerance)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []float32
		tolerance float64
		wantMatch bool
		wantDist  float64
	}{
		{"identical", sigAt(0.3), sigAt(0.3), 0.6, true, 0},
		{"close", sigAt(0), sigAt(0.5), 0.6, true, 0.5},
		{"far", sigAt(0), sigAt(0.75), 0.6, false, 0.75},
		{"dimension mismatch", sigAt(0), []float32{0}, 0.6, false, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b, tt.tolerance)
			if got.Match != tt.wantMatch {
				t.Errorf("Match = %v, want %v", got.Match, tt.wantMatch)
			}
			if math.IsInf(tt.wantDist, 1) {
				if !math.IsInf(got.Distance, 1) {
					t.Errorf("expected infinite distance, got %f", got.Distance)
				}
				return
			}
			if !approx(got.Distance, tt.wantDist) {
				t.Errorf("Distance = %f, want %f", got.Distance, tt.wantDist)
			}
			if !approx(got.Confidence, 1-tt.wantDist) {
				t.Errorf("Confidence = %f, want %f", got.Confidence, 1-tt.wantDist)
			}
		})
	}
}

func TestCandidatesFromRecords(t *testing.T) {
	got := CandidatesFromRecords([]database.EnrollmentRecord{
		{StudentID: 1, Signature: sigAt(0)},
		{StudentID: 2},
		{StudentID: 3, Signature: sigAt(1)},
	})
	if len(got) != 2 || got[0].StudentID != 1 || got[1].StudentID != 3 {
		t.Errorf("unexpected candidates %+v", got)
	}
}

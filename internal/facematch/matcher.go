package facematch

import (
	"math"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// DefaultTolerance is the distance cutoff used when none is configured.
const DefaultTolerance = 0.6

// Matcher picks the closest enrolled candidate by Euclidean distance and
// accepts it when the distance does not exceed Tolerance.
type Matcher struct {
	Tolerance float64
}

// NewMatcher creates a matcher; a non-positive tolerance falls back to DefaultTolerance
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{Tolerance: tolerance}
}

// Confidence converts a distance into the reported confidence score.
// The value is not clamped: distances above 1 give negative confidence.
func Confidence(distance float64) float64 {
	return 1 - distance
}

// Match compares unknown against every candidate and returns the closest one.
// Candidates whose dimension differs from unknown are ignored. Equal distances
// resolve to the lowest StudentID, so the result never depends on input order.
func (m *Matcher) Match(unknown []float32, candidates []Candidate) MatchResult {
	found := false
	var bestID int64
	bestDist := math.Inf(1)

	for _, c := range candidates {
		if len(unknown) == 0 || len(c.Signature) != len(unknown) {
			continue
		}
		d := database.EuclideanDistance(unknown, c.Signature)
		if !found || d < bestDist || (d == bestDist && c.StudentID < bestID) {
			found = true
			bestID = c.StudentID
			bestDist = d
		}
	}

	if !found {
		return MatchResult{Status: MatchNoCandidates}
	}

	status := MatchRejected
	if bestDist <= m.Tolerance {
		status = MatchAccepted
	}
	return MatchResult{
		Status:     status,
		StudentID:  bestID,
		Distance:   bestDist,
		Confidence: Confidence(bestDist),
	}
}

// Compare measures two signatures against each other using the given tolerance.
// Signatures of different dimension never match and report an infinite distance.
func Compare(a, b []float32, tolerance float64) Comparison {
	d := database.EuclideanDistance(a, b)
	return Comparison{
		Distance:   d,
		Confidence: Confidence(d),
		Match:      d <= tolerance,
	}
}

// CandidatesFromRecords converts enrollment records into matcher candidates,
// dropping records without a signature.
func CandidatesFromRecords(records []database.EnrollmentRecord) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		if len(r.Signature) == 0 {
			continue
		}
		out = append(out, Candidate{StudentID: r.StudentID, Signature: r.Signature})
	}
	return out
}

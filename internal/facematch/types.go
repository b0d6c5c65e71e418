// Package facematch decides which enrolled student, if any, an unknown face
// signature belongs to. It is shared between the capture pipeline, the CLI and
// the web handlers.
package facematch

// MatchStatus is the verdict of a single Match call
type MatchStatus string

const (
	MatchAccepted     MatchStatus = "accepted"      // Best candidate within tolerance
	MatchRejected     MatchStatus = "rejected"      // Best candidate exists but is too far
	MatchNoCandidates MatchStatus = "no_candidates" // Nobody comparable is enrolled
)

// Candidate is an enrolled signature of one student
type Candidate struct {
	StudentID int64
	Signature []float32
}

// MatchResult describes the closest candidate and whether it was accepted.
// StudentID, Distance and Confidence are zero for MatchNoCandidates.
type MatchResult struct {
	Status     MatchStatus `json:"status"`
	StudentID  int64       `json:"student_id,omitempty"`
	Distance   float64     `json:"distance"`
	Confidence float64     `json:"confidence"`
}

// Accepted reports whether the best candidate passed the tolerance test
func (r MatchResult) Accepted() bool {
	return r.Status == MatchAccepted
}

// Comparison is the outcome of comparing two signatures directly
type Comparison struct {
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
	Match      bool    `json:"match"`
}

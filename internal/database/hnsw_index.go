package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// SignatureIndex wraps an HNSW graph over enrolled signatures of one roster.
// It answers "which classmates look like this face" when a new signature is enrolled.
// Matching for attendance never goes through the index: the matcher scans the full
// candidate set so that its result is exact and deterministic.
type SignatureIndex struct {
	graph       *hnsw.Graph[int64]
	byStudentID map[int64][]float32
	mu          sync.RWMutex
}

// Neighbor is a search hit with its exact Euclidean distance
type Neighbor struct {
	StudentID int64
	Distance  float64
}

// NewSignatureIndex creates a new empty index.
func NewSignatureIndex() *SignatureIndex {
	return &SignatureIndex{
		byStudentID: make(map[int64][]float32),
	}
}

func newSignatureGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// BuildFromRecords builds the index from a slice of enrollment records.
// Records without a signature are skipped.
func (h *SignatureIndex) BuildFromRecords(records []EnrollmentRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.byStudentID = make(map[int64][]float32, len(records))
	if len(records) == 0 {
		h.graph = nil
		return
	}

	g := newSignatureGraph()
	for i := range records {
		rec := &records[i]
		if len(rec.Signature) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(rec.StudentID, rec.Signature))
		h.byStudentID[rec.StudentID] = rec.Signature
	}
	h.graph = g
}

// Add adds or replaces a single signature.
func (h *SignatureIndex) Add(studentID int64, signature []float32) {
	if len(signature) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		h.graph = newSignatureGraph()
	}
	h.graph.Add(hnsw.MakeNode(studentID, signature))
	h.byStudentID[studentID] = signature
}

// Nearest returns up to k indexed students closest to the query, excluding the
// given student ID (pass 0 to exclude nobody). Results are ordered by exact
// distance, ties broken by lower student ID.
func (h *SignatureIndex) Nearest(query []float32, k int, exclude int64) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}
	if k <= 0 {
		return nil, nil
	}

	// One extra slot so that excluding the student itself still leaves k results.
	nodes := h.graph.Search(query, k+1)

	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if n.Key == exclude {
			continue
		}
		sig, ok := h.byStudentID[n.Key]
		if !ok {
			continue
		}
		out = append(out, Neighbor{StudentID: n.Key, Distance: EuclideanDistance(query, sig)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].StudentID < out[j].StudentID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Count returns the number of indexed signatures.
func (h *SignatureIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byStudentID)
}

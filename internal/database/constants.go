package database

// SignatureDim is the fixed dimension of enrolled face signatures (dlib ResNet encoder)
const SignatureDim = 128

// HNSW index parameters for 128-dim face signatures
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 64
)

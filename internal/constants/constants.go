// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Session constants
const (
	// DefaultSessionName is used when a session is opened without a name
	DefaultSessionName = "Session"

	// DefaultHistoryLimit is the default number of sessions returned by class history
	DefaultHistoryLimit = 10

	// MaxHistoryLimit caps the history page size
	MaxHistoryLimit = 500
)

// Attendance constants
const (
	// ManualEntryNote is stored when a manual entry carries no notes
	ManualEntryNote = "Manual entry"

	// ManualConfidence is the confidence stored for manual entries
	ManualConfidence = 0.0

	// DefaultSummaryPeriodDays is the look-back window for student summaries
	DefaultSummaryPeriodDays = 30
)

// Enrollment constants
const (
	// DefaultLookalikeLimit is the number of nearest classmates reported on enrollment
	DefaultLookalikeLimit = 3

	// DefaultEnrollConcurrency is the default number of parallel enrollment workers
	DefaultEnrollConcurrency = 4
)

// File upload constants
const (
	// MaxUploadSize is the maximum frame size accepted by the API in bytes (10MB)
	MaxUploadSize = 10 << 20
)

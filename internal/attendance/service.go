// Package attendance runs capture sessions and records who attended them.
//
// A Service ties together the session store, the attendance store, the
// enrollment roster and a signature extractor. Expected results of a capture
// (no face, unknown face, duplicate...) are reported as Outcome values; only
// infrastructure failures are returned as errors.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrSessionNotFound is returned when a session ID does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStudentNotFound is returned when a student ID does not resolve.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStudentNotInClass is returned when a student does not belong to the session's class.
	ErrStudentNotInClass = errors.New("student is not in the session's class")
	// ErrStoreUnavailable wraps failures of the session, attendance or enrollment store.
	// Recording is idempotent, so callers may retry.
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	// ErrExtractorUnavailable wraps failures of the signature extractor.
	ErrExtractorUnavailable = errors.New("signature extractor unavailable")
)

// SignatureExtractor turns an image into a face signature.
// found is false when the image contains no face.
type SignatureExtractor interface {
	Extract(ctx context.Context, image []byte) (signature []float32, found bool, err error)
}

// Service is the attendance engine
type Service struct {
	sessions      database.SessionStore
	facts         database.AttendanceStore
	enrollments   database.EnrollmentReader
	extractor     SignatureExtractor
	matcher       *facematch.Matcher
	minConfidence float64
	now           func() time.Time
}

// NewService creates an attendance service. The matching thresholds are
// fixed at construction time.
func NewService(
	sessions database.SessionStore,
	facts database.AttendanceStore,
	enrollments database.EnrollmentReader,
	extractor SignatureExtractor,
	matching config.MatchingConfig,
) *Service {
	return &Service{
		sessions:      sessions,
		facts:         facts,
		enrollments:   enrollments,
		extractor:     extractor,
		matcher:       facematch.NewMatcher(matching.Tolerance),
		minConfidence: matching.MinConfidence,
		now:           time.Now,
	}
}

// Matcher returns the matcher used for captures
func (s *Service) Matcher() *facematch.Matcher {
	return s.matcher
}

// MinConfidence returns the confidence floor applied before recording
func (s *Service) MinConfidence() float64 {
	return s.minConfidence
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// loadSession fetches a session and maps a missing one to ErrSessionNotFound.
func (s *Service) loadSession(ctx context.Context, sessionID int64) (*database.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError("get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
	}
	return session, nil
}

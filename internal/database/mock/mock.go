// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockEnrollmentStore is a mock implementation of database.EnrollmentWriter
type MockEnrollmentStore struct {
	mu         sync.RWMutex
	students   map[int64]*database.Student
	signatures map[int64]database.EnrollmentRecord

	// Error injection
	SignaturesError error
	RosterError     error
	GetStudentError error
	SaveError       error
}

// NewMockEnrollmentStore creates a new mock enrollment store
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{
		students:   make(map[int64]*database.Student),
		signatures: make(map[int64]database.EnrollmentRecord),
	}
}

// AddStudent adds a student to the mock roster. A non-empty signature is enrolled too.
func (m *MockEnrollmentStore) AddStudent(st database.Student, signature []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[st.ID] = &st
	if len(signature) > 0 {
		m.signatures[st.ID] = database.EnrollmentRecord{
			StudentID:  st.ID,
			Signature:  signature,
			Model:      "mock",
			EnrolledAt: time.Now(),
		}
	}
}

// SignaturesForClass returns signatures of active students of the class ordered by student ID
func (m *MockEnrollmentStore) SignaturesForClass(ctx context.Context, classID int64) ([]database.EnrollmentRecord, error) {
	if m.SignaturesError != nil {
		return nil, m.SignaturesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.EnrollmentRecord
	for id, rec := range m.signatures {
		st := m.students[id]
		if st == nil || st.ClassID != classID || !st.Active {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// Roster returns the active students of the class ordered by ID
func (m *MockEnrollmentStore) Roster(ctx context.Context, classID int64) ([]database.Student, error) {
	if m.RosterError != nil {
		return nil, m.RosterError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.Student
	for _, st := range m.students {
		if st.ClassID != classID || !st.Active {
			continue
		}
		s := *st
		_, s.HasSignature = m.signatures[st.ID]
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStudent retrieves a student by ID
func (m *MockEnrollmentStore) GetStudent(ctx context.Context, studentID int64) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.students[studentID]
	if !ok {
		return nil, nil
	}
	s := *st
	_, s.HasSignature = m.signatures[studentID]
	return &s, nil
}

// SaveSignature stores or replaces a student's signature
func (m *MockEnrollmentStore) SaveSignature(ctx context.Context, studentID int64, signature []float32, model string) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[studentID]; !ok {
		return fmt.Errorf("student %d not found", studentID)
	}
	m.signatures[studentID] = database.EnrollmentRecord{
		StudentID:  studentID,
		Signature:  signature,
		Model:      model,
		EnrolledAt: time.Now(),
	}
	return nil
}

// MockSessionStore is a mock implementation of database.SessionStore.
// A single mutex makes OpenSession atomic per class like the advisory lock does.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*database.Session
	nextID   int64

	// Error injection
	OpenError  error
	CloseError error
	GetError   error
	ListError  error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[int64]*database.Session),
		nextID:   1,
	}
}

// OpenSession closes the active session of the class and inserts a new one
func (m *MockSessionStore) OpenSession(ctx context.Context, ns database.NewSession) (*database.Session, []database.Session, error) {
	if m.OpenError != nil {
		return nil, nil, m.OpenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var closed []database.Session
	for _, s := range m.sessions {
		if s.ClassID == ns.ClassID && s.Active {
			end := now
			s.Active = false
			s.EndTime = &end
			s.UpdatedAt = now
			closed = append(closed, *s)
		}
	}

	s := &database.Session{
		ID:        m.nextID,
		ClassID:   ns.ClassID,
		Name:      ns.Name,
		StartTime: now,
		Active:    true,
		CreatedBy: ns.CreatedBy,
		Notes:     ns.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.sessions[s.ID] = s

	out := *s
	return &out, closed, nil
}

// CloseSession ends an active session; closing a closed session is a no-op
func (m *MockSessionStore) CloseSession(ctx context.Context, sessionID int64) (*database.Session, bool, error) {
	if m.CloseError != nil {
		return nil, false, m.CloseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	changed := false
	if s.Active {
		now := time.Now()
		s.Active = false
		s.EndTime = &now
		s.UpdatedAt = now
		changed = true
	}
	out := *s
	return &out, changed, nil
}

// GetSession retrieves a session by ID
func (m *MockSessionStore) GetSession(ctx context.Context, sessionID int64) (*database.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

// ListSessionsByClass returns the sessions of a class, newest first
func (m *MockSessionStore) ListSessionsByClass(ctx context.Context, classID int64, since time.Time, limit int) ([]database.Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.Session
	for _, s := range m.sessions {
		if s.ClassID != classID || s.StartTime.Before(since) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ActiveCount returns how many sessions of the class are active
func (m *MockSessionStore) ActiveCount(classID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.sessions {
		if s.ClassID == classID && s.Active {
			n++
		}
	}
	return n
}

type factKey struct {
	studentID int64
	sessionID int64
}

// MockAttendanceStore is a mock implementation of database.AttendanceStore
type MockAttendanceStore struct {
	mu     sync.Mutex
	facts  map[factKey]*database.AttendanceFact
	nextID int64

	// Error injection
	InsertError  error
	QueryError   error
	InsertCalled int
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{
		facts:  make(map[factKey]*database.AttendanceFact),
		nextID: 1,
	}
}

// InsertFactIfAbsent inserts the fact unless the pair already has one
func (m *MockAttendanceStore) InsertFactIfAbsent(ctx context.Context, fact database.AttendanceFact) (*database.AttendanceFact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalled++
	if m.InsertError != nil {
		return nil, false, m.InsertError
	}

	key := factKey{studentID: fact.StudentID, sessionID: fact.SessionID}
	if existing, ok := m.facts[key]; ok {
		out := *existing
		return &out, false, nil
	}

	fact.ID = m.nextID
	m.nextID++
	if fact.Timestamp.IsZero() {
		fact.Timestamp = time.Now()
	}
	m.facts[key] = &fact
	out := fact
	return &out, true, nil
}

// FactsBySession returns all facts of a session ordered by timestamp
func (m *MockAttendanceStore) FactsBySession(ctx context.Context, sessionID int64) ([]database.AttendanceFact, error) {
	return m.filter(func(f *database.AttendanceFact) bool { return f.SessionID == sessionID })
}

// FactsByStudent returns all facts of a student ordered by timestamp
func (m *MockAttendanceStore) FactsByStudent(ctx context.Context, studentID int64) ([]database.AttendanceFact, error) {
	return m.filter(func(f *database.AttendanceFact) bool { return f.StudentID == studentID })
}

// FactsBySessions returns the facts of the given sessions ordered by timestamp
func (m *MockAttendanceStore) FactsBySessions(ctx context.Context, sessionIDs []int64) ([]database.AttendanceFact, error) {
	wanted := make(map[int64]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	return m.filter(func(f *database.AttendanceFact) bool { return wanted[f.SessionID] })
}

// Count returns the number of stored facts
func (m *MockAttendanceStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.facts)
}

func (m *MockAttendanceStore) filter(keep func(*database.AttendanceFact) bool) ([]database.AttendanceFact, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.AttendanceFact
	for _, f := range m.facts {
		if keep(f) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Compile-time interface checks
var (
	_ database.EnrollmentWriter = (*MockEnrollmentStore)(nil)
	_ database.SessionStore     = (*MockSessionStore)(nil)
	_ database.AttendanceStore  = (*MockAttendanceStore)(nil)
)

// Package session holds the ephemeral per-(student, course) exam state:
// the ordered question set selected at start time and the start timestamp.
// Entries are created by StartAttempt and consumed by SubmitAttempt; a second
// start before submit overwrites the prior entry (last start wins).
package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ExamSession is the state of one in-progress attempt.
type ExamSession struct {
	QuestionIDs []int64   `json:"question_ids"`
	StartedAt   time.Time `json:"started_at"`
}

type Store interface {
	Put(ctx context.Context, studentID, courseID int64, s ExamSession) error
	// Get returns the session and whether one exists. A missing entry is not
	// an error; the scoring engine treats it as the snapshot-fallback path.
	Get(ctx context.Context, studentID, courseID int64) (ExamSession, bool, error)
	Delete(ctx context.Context, studentID, courseID int64) error
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]ExamSession
}

// NewMemoryStore returns an in-process Store for tests and single-node runs.
func NewMemoryStore() Store {
	return &memoryStore{sessions: map[string]ExamSession{}}
}

func sessionKey(studentID, courseID int64) string {
	return fmt.Sprintf("%d:%d", studentID, courseID)
}

func (m *memoryStore) Put(_ context.Context, studentID, courseID int64, s ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(studentID, courseID)] = s
	return nil
}

func (m *memoryStore) Get(_ context.Context, studentID, courseID int64) (ExamSession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey(studentID, courseID)]
	return s, ok, nil
}

func (m *memoryStore) Delete(_ context.Context, studentID, courseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(studentID, courseID))
	return nil
}

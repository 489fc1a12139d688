package storefakes

import (
	"sync"

	"github.com/motrack/adminkit/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session.Store for tests. Error fields make any
// operation fail on demand.
type FakeStore struct {
	lock     sync.RWMutex
	snapshot *session.Snapshot

	LoadErr  error
	SaveErr  error
	ClearErr error

	SaveCalls  int
	ClearCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (s *FakeStore) Load() (*session.Snapshot, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.snapshot, nil
}

func (s *FakeStore) Save(snapshot *session.Snapshot) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.snapshot = snapshot
	return nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ClearCalls++
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.snapshot = nil
	return nil
}

// Seed sets the stored snapshot directly, bypassing error injection.
func (s *FakeStore) Seed(snapshot *session.Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.snapshot = snapshot
}

// Snapshot returns the currently stored snapshot.
func (s *FakeStore) Snapshot() *session.Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshot
}

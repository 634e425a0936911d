package session

import (
	"context"
	"sort"
	"sync"
)

// MemStore is the in-memory storage backend for dev and tests. The
// mutex gives it the same atomicity the Postgres unique index gives
// the Repository.
type MemStore struct {
	mu       sync.Mutex
	byPublic map[string]Session
	seq      map[string]int
	next     int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		byPublic: make(map[string]Session),
		seq:      make(map[string]int),
	}
}

// Insert adds a session, rejecting public id collisions.
func (m *MemStore) Insert(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPublic[s.PublicID]; ok {
		return ErrDuplicatePublicID
	}
	m.byPublic[s.PublicID] = s
	m.seq[s.PublicID] = m.next
	m.next++
	return nil
}

// FindByPublicID returns the stored session or ErrNotFound.
func (m *MemStore) FindByPublicID(_ context.Context, publicID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byPublic[publicID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// FindByID returns the session with the given internal id.
func (m *MemStore) FindByID(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byPublic {
		if s.ID == id {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

// ListRecent returns up to limit sessions, newest created first.
func (m *MemStore) ListRecent(_ context.Context, limit int) ([]Session, error) {
	all := m.snapshot()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return m.seqOf(all[i]) > m.seqOf(all[j])
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ListActive returns active sessions, newest start time first.
func (m *MemStore) ListActive(_ context.Context) ([]Session, error) {
	all := m.snapshot()
	res := all[:0]
	for _, s := range all {
		if s.Active {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartTime.Equal(res[j].StartTime) {
			return res[i].StartTime.After(res[j].StartTime)
		}
		return m.seqOf(res[i]) > m.seqOf(res[j])
	})
	return res, nil
}

// Deactivate flips active off; repeat calls are no-op successes.
func (m *MemStore) Deactivate(_ context.Context, publicID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byPublic[publicID]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.Active = false
	m.byPublic[publicID] = s
	return s, nil
}

func (m *MemStore) snapshot() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Session, 0, len(m.byPublic))
	for _, s := range m.byPublic {
		all = append(all, s)
	}
	return all
}

func (m *MemStore) seqOf(s Session) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq[s.PublicID]
}

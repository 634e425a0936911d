package attendance

import (
	"context"
	"database/sql"
	"sort"
	"sync"
)

type pairKey struct {
	sessionRef string
	studentID  string
}

// MemStore is the in-memory storage backend for dev and tests. The
// mutex around the pair map provides the same insert atomicity the
// Postgres unique index provides the Repository.
type MemStore struct {
	mu     sync.Mutex
	byID   map[string]Record
	byPair map[pairKey]string
	seq    map[string]int
	next   int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		byID:   make(map[string]Record),
		byPair: make(map[pairKey]string),
		seq:    make(map[string]int),
	}
}

// Insert adds a record, rejecting a second record for the same
// (session, student) pair.
func (m *MemStore) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{rec.SessionRef, rec.StudentID}
	if _, ok := m.byPair[key]; ok {
		return ErrDuplicate
	}
	m.byPair[key] = rec.ID
	m.byID[rec.ID] = rec
	m.seq[rec.ID] = m.next
	m.next++
	return nil
}

// Get returns a record by id.
func (m *MemStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return Record{}, sql.ErrNoRows
	}
	return rec, nil
}

// Find returns the record for a (session, student) pair.
func (m *MemStore) Find(_ context.Context, sessionRef, studentID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[pairKey{sessionRef, studentID}]
	if !ok {
		return Record{}, sql.ErrNoRows
	}
	return m.byID[id], nil
}

// ListBySession returns a session's records, newest check-in first.
func (m *MemStore) ListBySession(_ context.Context, sessionRef string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for _, rec := range m.byID {
		if rec.SessionRef == sessionRef {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CheckinTime.Equal(res[j].CheckinTime) {
			return res[i].CheckinTime.After(res[j].CheckinTime)
		}
		return m.seq[res[i].ID] > m.seq[res[j].ID]
	})
	return res, nil
}

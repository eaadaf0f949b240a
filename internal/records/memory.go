package records

import (
	"context"
	"sync"
	"time"

	"github.com/brametal/chapas-backend/pkg/enums"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]Record
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[int64]Record{}, now: time.Now}
}

func (m *MemoryStore) Append(_ context.Context, rec *Record) (int64, error) {
	if err := prepare(rec, m.now()); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == 0 {
		m.nextID++
		for {
			if _, taken := m.rows[m.nextID]; !taken {
				break
			}
			m.nextID++
		}
		rec.ID = m.nextID
	} else if _, exists := m.rows[rec.ID]; exists {
		return 0, conflict(rec.ID)
	} else if rec.ID > m.nextID {
		m.nextID = rec.ID
	}
	m.rows[rec.ID] = *rec
	return rec.ID, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[id]
	if !ok {
		return Record{}, notFound(id)
	}
	return r, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id int64, status enums.RecordStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return notFound(id)
	}
	r.Status = status
	m.rows[id] = r
	return nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return notFound(id)
	}
	delete(m.rows, id)
	return nil
}

func (m *MemoryStore) ClearAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.rows))
	m.rows = map[int64]Record{}
	return n, nil
}

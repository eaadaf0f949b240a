package lots

import (
	"context"
	"sort"
	"sync"
)

// MemorySequencer keeps counters in process memory. Each code has its own lock.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[int64]*memoryCounter
}

type memoryCounter struct {
	mu   sync.Mutex
	last int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: map[int64]*memoryCounter{}}
}

func (m *MemorySequencer) counter(code int64, create bool) *memoryCounter {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[code]
	if !ok && create {
		c = &memoryCounter{}
		m.counters[code] = c
	}
	return c
}

func (m *MemorySequencer) Allocate(_ context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	c := m.counter(code, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	return FormatID(c.last), nil
}

func (m *MemorySequencer) Peek(_ context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	c := m.counter(code, false)
	if c == nil {
		return FormatID(1), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return FormatID(c.last + 1), nil
}

func (m *MemorySequencer) Override(_ context.Context, code int64, lastNumber int64) error {
	if err := validateOverride(code, lastNumber); err != nil {
		return err
	}
	c := m.counter(code, true)
	c.mu.Lock()
	c.last = lastNumber
	c.mu.Unlock()
	return nil
}

func (m *MemorySequencer) Get(_ context.Context, code int64) (Counter, error) {
	c := m.counter(code, false)
	if c == nil {
		return Counter{}, counterNotFound(code)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counter{ProductCode: code, LastNumber: c.last}, nil
}

func (m *MemorySequencer) List(_ context.Context) ([]Counter, error) {
	m.mu.Lock()
	codes := make([]int64, 0, len(m.counters))
	for code := range m.counters {
		codes = append(codes, code)
	}
	m.mu.Unlock()
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	out := make([]Counter, 0, len(codes))
	for _, code := range codes {
		if c, err := m.Get(context.Background(), code); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemorySequencer) Reset(_ context.Context) error {
	m.mu.Lock()
	m.counters = map[int64]*memoryCounter{}
	m.mu.Unlock()
	return nil
}

package call

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process provisioner for local development and tests.
type Memory struct {
	mu    sync.Mutex
	calls map[string]Handle
}

func NewMemory() *Memory {
	return &Memory{calls: make(map[string]Handle)}
}

func (m *Memory) Provision(ctx context.Context, id string, startsAt time.Time, meta Metadata) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.calls[id]; ok {
		h.Created = false
		return &h, nil
	}
	h := Handle{ID: id, StartsAt: startsAt, Metadata: meta, Created: true}
	m.calls[id] = h
	return &h, nil
}

// Len reports how many distinct calls exist.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

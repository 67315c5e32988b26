package presence

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps the online set in process memory.
type Memory struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{online: make(map[string]struct{})}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SetOnline(_ context.Context, userID string, online bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, was := m.online[userID]
	if online {
		m.online[userID] = struct{}{}
	} else {
		delete(m.online, userID)
	}
	return was != online, nil
}

func (m *Memory) Online(_ context.Context, userIDs []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if _, ok := m.online[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *Memory) ListOnline(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.online))
	for id := range m.online {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process ledger. It is the test backend and a valid
// production choice when losing dedup state on restart is acceptable.
type Memory struct {
	mu   sync.RWMutex
	sent map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{sent: make(map[string]struct{})}
}

func key(userID int64, day, slot string) string {
	return fmt.Sprintf("%d|%s|%s", userID, day, slot)
}

func (m *Memory) AlreadySent(_ context.Context, userID int64, day, slot string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sent[key(userID, day, slot)]
	return ok, nil
}

func (m *Memory) RecordSent(_ context.Context, userID int64, day, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[key(userID, day, slot)] = struct{}{}
	return nil
}

func (m *Memory) Prune(_ context.Context, beforeDay string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.sent {
		parts := strings.SplitN(k, "|", 3)
		if len(parts) == 3 && parts[1] < beforeDay {
			delete(m.sent, k)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Len reports the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sent)
}

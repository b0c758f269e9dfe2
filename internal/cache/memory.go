package cache

import (
	"sync"
	"time"

	"github.com/user/ai-spend-tracker/internal/spend"
)

// Memory keeps the latest snapshot in process. The serve daemon uses it so
// concurrent API requests share one entry without touching disk.
type Memory struct {
	mu    sync.RWMutex
	entry *spend.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (*spend.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.entry == nil {
		return nil, false
	}
	entry := *m.entry
	return &entry, true
}

func (m *Memory) Put(snap spend.Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry = &spend.Entry{Snapshot: snap, TTL: ttl, StoredAt: time.Now().UTC()}
	return nil
}

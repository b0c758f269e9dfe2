package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/ai-spend-tracker/internal/spend"
)

// DefaultPath is where snapshots land when the config does not name a path.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "ai-spend-cache.json")
}

// File persists the latest snapshot as a single JSON file. A missing or
// corrupt file reads as a cache miss, never an error.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath()
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get() (*spend.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false
	}

	var entry spend.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (f *File) Put(snap spend.Snapshot, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := spend.Entry{Snapshot: snap, TTL: ttl, StoredAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	// Write to temp file then rename, for atomic replacement.
	tmpFile := filepath.Join(dir, fmt.Sprintf(".tmp-%s.json", uuid.New().String()))
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpFile, f.path); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return nil
}

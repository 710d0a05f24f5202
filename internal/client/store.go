package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pranit27-debug/Expense-Tracker/internal/api"
)

// ErrCorruptStore is returned when the persisted queue cannot be decoded.
var ErrCorruptStore = errors.New("pending store is corrupt")

// PendingSubmission is a create request that has not been acknowledged.
type PendingSubmission struct {
	ClientID string             `json:"client_id"`
	Body     api.ExpenseRequest `json:"body"`
}

// PendingStore persists the ordered list of pending submissions.
type PendingStore interface {
	Get(ctx context.Context) ([]PendingSubmission, error)
	Set(ctx context.Context, pending []PendingSubmission) error
}

// FileStore keeps the queue in a single JSON file, replaced atomically on every write.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context) ([]PendingSubmission, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending file: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var pending []PendingSubmission
	if err := json.Unmarshal(b, &pending); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return pending, nil
}

func (s *FileStore) Set(_ context.Context, pending []PendingSubmission) error {
	if pending == nil {
		pending = []PendingSubmission{}
	}
	b, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pending dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pending-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write pending: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync pending: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pending: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace pending file: %w", err)
	}
	return nil
}

// MemoryStore is a PendingStore for tests and throwaway sessions.
type MemoryStore struct {
	mu      sync.Mutex
	pending []PendingSubmission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) ([]PendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PendingSubmission(nil), s.pending...), nil
}

func (s *MemoryStore) Set(_ context.Context, pending []PendingSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append([]PendingSubmission(nil), pending...)
	return nil
}

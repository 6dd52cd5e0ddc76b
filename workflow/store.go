package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrRunNotFound is returned when no run exists for the given ID.
var ErrRunNotFound = errors.New("run not found")

// Store persists run records. Every phase transition is saved before the
// next phase starts, so a crashed run can be resumed from disk.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
	Delete(runID string) error
	List() ([]*Run, error)
}

// FileStore keeps one pretty-printed JSON file per run so records stay
// readable with plain tools. Writes go through a temp file and rename.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run store dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) lock(runID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[runID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[runID] = l
	}
	return l
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save implements Store.
func (s *FileStore) Save(run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run has no ID")
	}
	l := s.lock(run.ID)
	l.Lock()
	defer l.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}

	tmp := s.path(run.ID) + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	if err := os.Rename(tmp, s.path(run.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(runID string) (*Run, error) {
	l := s.lock(runID)
	l.Lock()
	defer l.Unlock()

	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", runID, err)
	}
	return &run, nil
}

// Delete implements Store.
func (s *FileStore) Delete(runID string) error {
	l := s.lock(runID)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.path(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List() ([]*Run, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []*Run
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		run, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// Save implements Store.
func (s *MemoryStore) Save(run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run has no ID")
	}
	copied, err := copyRun(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copied
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(runID string) (*Run, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return copyRun(run)
}

// Delete implements Store.
func (s *MemoryStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// List implements Store.
func (s *MemoryStore) List() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		copied, err := copyRun(run)
		if err != nil {
			return nil, err
		}
		runs = append(runs, copied)
	}
	return runs, nil
}

// copyRun deep-copies through JSON so callers never share pointers with
// the store.
func copyRun(run *Run) (*Run, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("copy run %s: %w", run.ID, err)
	}
	var out Run
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy run %s: %w", run.ID, err)
	}
	return &out, nil
}

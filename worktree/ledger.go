package worktree

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrPortsExhausted indicates no free block remains in the configured range.
var ErrPortsExhausted = errors.New("port range exhausted")

// Ledger records which ports each live run owns. Allocations across live
// runs are pairwise disjoint; implementations must make claim and release
// atomic so concurrent runs never receive overlapping blocks.
type Ledger interface {
	// Allocate claims count free ports for runID and returns them sorted.
	Allocate(runID string, count int) ([]int, error)

	// Release returns runID's ports to the free pool. Releasing an unknown
	// run is a no-op.
	Release(runID string) error

	// Allocated returns the current run -> ports mapping.
	Allocated() (map[string][]int, error)
}

// FileLedger is a Ledger backed by a JSON file, shared between processes.
// Mutations take an exclusive lock file and land via atomic rename.
type FileLedger struct {
	path      string
	start     int
	end       int
	lockRetry time.Duration
}

// NewFileLedger creates a ledger persisting to path, allocating from the
// inclusive range [start, end].
func NewFileLedger(path string, start, end int) (*FileLedger, error) {
	if start <= 0 || end < start {
		return nil, fmt.Errorf("invalid port range %d-%d", start, end)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileLedger{
		path:      path,
		start:     start,
		end:       end,
		lockRetry: 25 * time.Millisecond,
	}, nil
}

// Allocate implements Ledger.
func (l *FileLedger) Allocate(runID string, count int) ([]int, error) {
	if count < 1 {
		return nil, fmt.Errorf("port count must be >= 1, got %d", count)
	}

	unlock, err := l.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	claims, err := l.read()
	if err != nil {
		return nil, err
	}
	if existing, ok := claims[runID]; ok {
		// Re-allocation for the same run is idempotent.
		return existing, nil
	}

	used := make(map[int]bool)
	for _, ports := range claims {
		for _, p := range ports {
			used[p] = true
		}
	}

	var block []int
	for p := l.start; p <= l.end && len(block) < count; p++ {
		if !used[p] {
			block = append(block, p)
		}
	}
	if len(block) < count {
		return nil, ErrPortsExhausted
	}

	claims[runID] = block
	if err := l.write(claims); err != nil {
		return nil, err
	}
	return block, nil
}

// Release implements Ledger.
func (l *FileLedger) Release(runID string) error {
	unlock, err := l.lock()
	if err != nil {
		return err
	}
	defer unlock()

	claims, err := l.read()
	if err != nil {
		return err
	}
	if _, ok := claims[runID]; !ok {
		return nil
	}
	delete(claims, runID)
	return l.write(claims)
}

// Allocated implements Ledger.
func (l *FileLedger) Allocated() (map[string][]int, error) {
	unlock, err := l.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return l.read()
}

// lock takes the exclusive lock file, retrying until it becomes free.
func (l *FileLedger) lock() (func(), error) {
	lockPath := l.path + ".lock"
	deadline := time.Now().Add(10 * time.Second)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("ledger lock %s held too long", lockPath)
		}
		time.Sleep(l.lockRetry)
	}
}

func (l *FileLedger) read() (map[string][]int, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return make(map[string][]int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	claims := make(map[string][]int)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &claims); err != nil {
			return nil, fmt.Errorf("parse ledger %s: %w", l.path, err)
		}
	}
	return claims, nil
}

func (l *FileLedger) write(claims map[string][]int) error {
	data, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}

// MemoryLedger is an in-process Ledger for tests.
type MemoryLedger struct {
	mu     sync.Mutex
	start  int
	end    int
	claims map[string][]int
}

// NewMemoryLedger creates a ledger allocating from [start, end].
func NewMemoryLedger(start, end int) *MemoryLedger {
	return &MemoryLedger{
		start:  start,
		end:    end,
		claims: make(map[string][]int),
	}
}

// Allocate implements Ledger.
func (l *MemoryLedger) Allocate(runID string, count int) ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.claims[runID]; ok {
		return existing, nil
	}

	used := make(map[int]bool)
	for _, ports := range l.claims {
		for _, p := range ports {
			used[p] = true
		}
	}

	var block []int
	for p := l.start; p <= l.end && len(block) < count; p++ {
		if !used[p] {
			block = append(block, p)
		}
	}
	if len(block) < count {
		return nil, ErrPortsExhausted
	}

	l.claims[runID] = block
	return block, nil
}

// Release implements Ledger.
func (l *MemoryLedger) Release(runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, runID)
	return nil
}

// Allocated implements Ledger.
func (l *MemoryLedger) Allocated() (map[string][]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string][]int, len(l.claims))
	for run, ports := range l.claims {
		cp := make([]int, len(ports))
		copy(cp, ports)
		sort.Ints(cp)
		out[run] = cp
	}
	return out, nil
}

// Package registry records which edge file was produced for each unit.
package registry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a unit has no registered edge file.
var ErrNotFound = errors.New("unit not registered")

// Entry is the record kept for a unit.
type Entry struct {
	UnitPath  string    `json:"unit_path"`
	UnitID    int64     `json:"unit_id"`
	CFGPath   string    `json:"cfg_path"`
	RunID     string    `json:"run_id"`
	Methods   int       `json:"methods"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry maps unit paths to their edge files.
type Registry interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, unitPath string) (Entry, error)
	// List returns entries whose unit path starts with prefix, ordered by
	// unit path.
	List(ctx context.Context, prefix string) ([]Entry, error)
	Close() error
}

// Memory is an in-process Registry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Put(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.UnitPath] = e
	return nil
}

func (m *Memory) Get(ctx context.Context, unitPath string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[unitPath]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for path, e := range m.entries {
		if strings.HasPrefix(path, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitPath < out[j].UnitPath })
	return out, nil
}

func (m *Memory) Close() error { return nil }

// Package dirty decides which unit files need rebuilding. A unit is dirty
// when its content hash or the build fingerprint differs from the last
// successful build.
package dirty

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultStateFile is where build state is kept relative to the project.
const DefaultStateFile = ".gfg/state.msgpack"

const stateVersion = 1

// unitState is what was recorded after a unit was last built.
type unitState struct {
	Path        string `msgpack:"path"`
	Hash        string `msgpack:"hash"`
	Fingerprint string `msgpack:"fingerprint"`
	Output      string `msgpack:"output"`
	BuiltAt     int64  `msgpack:"built_at"` // Unix timestamp
}

type stateData struct {
	Version int         `msgpack:"version"`
	Units   []unitState `msgpack:"units"`
}

// Tracker records unit hashes between builds.
type Tracker struct {
	mu    sync.RWMutex
	units map[string]unitState
	path  string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStateFile sets the state file path.
func WithStateFile(path string) Option {
	return func(t *Tracker) {
		t.path = path
	}
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		units: make(map[string]unitState),
		path:  DefaultStateFile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open creates a Tracker and loads its state file if present.
func Open(opts ...Option) (*Tracker, error) {
	t := New(opts...)
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// HashFile computes the SHA256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Fingerprint hashes the settings that change build output, so a settings
// change marks every unit dirty.
func Fingerprint(parts ...interface{}) string {
	hasher := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(hasher, "%v\x00", p)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// Check reports whether path must be rebuilt and returns its current hash.
// A unit is clean only if hash and fingerprint match the recorded build and
// the recorded output still exists.
func (t *Tracker) Check(ctx context.Context, path, fingerprint string) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	hash, err := HashFile(absPath)
	if err != nil {
		return false, "", err
	}

	t.mu.RLock()
	state, ok := t.units[absPath]
	t.mu.RUnlock()

	if !ok || state.Hash != hash || state.Fingerprint != fingerprint {
		return true, hash, nil
	}
	if _, err := os.Stat(state.Output); err != nil {
		return true, hash, nil
	}
	return false, hash, nil
}

// Record stores a successful build of path.
func (t *Tracker) Record(path, hash, fingerprint, output string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.units[absPath] = unitState{
		Path:        absPath,
		Hash:        hash,
		Fingerprint: fingerprint,
		Output:      output,
		BuiltAt:     time.Now().Unix(),
	}
}

// Forget drops path so the next build always processes it.
func (t *Tracker) Forget(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.units, absPath)
}

// Len returns the number of tracked units.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.units)
}

// Save persists the state file, creating its directory.
func (t *Tracker) Save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := t.SaveTo(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return f.Close()
}

// Load restores the state file. A missing file leaves the tracker empty.
func (t *Tracker) Load() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()

	return t.LoadFrom(bufio.NewReader(f))
}

// SaveTo writes the state to w, ordered by path.
func (t *Tracker) SaveTo(w io.Writer) error {
	t.mu.RLock()
	units := make([]unitState, 0, len(t.units))
	for _, s := range t.units {
		units = append(units, s)
	}
	t.mu.RUnlock()

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })

	if err := msgpack.NewEncoder(w).Encode(stateData{Version: stateVersion, Units: units}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// LoadFrom replaces the state with what is read from r. State written by
// another version is discarded, which makes every unit dirty.
func (t *Tracker) LoadFrom(r io.Reader) error {
	var data stateData
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	units := make(map[string]unitState, len(data.Units))
	if data.Version == stateVersion {
		for _, s := range data.Units {
			units[s.Path] = s
		}
	}

	t.mu.Lock()
	t.units = units
	t.mu.Unlock()
	return nil
}

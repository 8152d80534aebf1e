package dirty

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestTracker_Check(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	unit := filepath.Join(dir, ".gir", "a.gir.yaml")
	output := filepath.Join(dir, ".semantic", "a.cfg")
	writeFile(t, unit, "unit_id: 1\n")

	tracker := New()

	dirty, hash, err := tracker.Check(ctx, unit, "fp1")
	require.NoError(t, err)
	assert.True(t, dirty, "unknown units are dirty")
	assert.Len(t, hash, 64)

	tracker.Record(unit, hash, "fp1", output)
	dirty, _, err = tracker.Check(ctx, unit, "fp1")
	require.NoError(t, err)
	assert.True(t, dirty, "missing output keeps the unit dirty")

	writeFile(t, output, "rows")
	dirty, _, err = tracker.Check(ctx, unit, "fp1")
	require.NoError(t, err)
	assert.False(t, dirty)

	dirty, _, err = tracker.Check(ctx, unit, "fp2")
	require.NoError(t, err)
	assert.True(t, dirty, "a new fingerprint invalidates")

	writeFile(t, unit, "unit_id: 2\n")
	dirty, newHash, err := tracker.Check(ctx, unit, "fp1")
	require.NoError(t, err)
	assert.True(t, dirty)
	assert.NotEqual(t, hash, newHash)

	tracker.Forget(unit)
	assert.Equal(t, 0, tracker.Len())
}

func TestTracker_CheckErrors(t *testing.T) {
	tracker := New()

	_, _, err := tracker.Check(context.Background(), filepath.Join(t.TempDir(), "missing"), "fp")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = tracker.Check(ctx, "whatever", "fp")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracker_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state", "state.msgpack")
	unit := filepath.Join(dir, "u.gir.yaml")
	output := filepath.Join(dir, "u.cfg")
	writeFile(t, unit, "x")
	writeFile(t, output, "y")

	tracker := New(WithStateFile(statePath))
	_, hash, err := tracker.Check(context.Background(), unit, "fp")
	require.NoError(t, err)
	tracker.Record(unit, hash, "fp", output)
	require.NoError(t, tracker.Save())

	reopened, err := Open(WithStateFile(statePath))
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	dirty, _, err := reopened.Check(context.Background(), unit, "fp")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestTracker_LoadMissingAndForeignVersion(t *testing.T) {
	tracker, err := Open(WithStateFile(filepath.Join(t.TempDir(), "none.msgpack")))
	require.NoError(t, err)
	assert.Equal(t, 0, tracker.Len())

	var buf bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&buf).Encode(stateData{
		Version: 99,
		Units:   []unitState{{Path: "/x", Hash: "h"}},
	}))
	require.NoError(t, tracker.LoadFrom(&buf))
	assert.Equal(t, 0, tracker.Len())

	assert.Error(t, tracker.LoadFrom(bytes.NewReader([]byte{0xc1})))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(256, false, ".cfg")
	assert.Equal(t, a, Fingerprint(256, false, ".cfg"))
	assert.NotEqual(t, a, Fingerprint(256, true, ".cfg"))
	assert.Len(t, a, 16)
}

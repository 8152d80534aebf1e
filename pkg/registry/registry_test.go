package registry

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *Badger {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBadger(db, nil)
}

func implementations(t *testing.T) map[string]Registry {
	return map[string]Registry{
		"memory": NewMemory(),
		"badger": newTestBadger(t),
	}
}

func TestRegistry_PutGet(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, reg := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Get(ctx, "proj/.gir/a.gir.yaml")
			assert.ErrorIs(t, err, ErrNotFound)

			e := Entry{
				UnitPath:  "proj/.gir/a.gir.yaml",
				UnitID:    4,
				CFGPath:   "proj/.semantic/a.cfg",
				RunID:     "run-1",
				Methods:   3,
				Edges:     17,
				UpdatedAt: stamp,
			}
			require.NoError(t, reg.Put(ctx, e))

			got, err := reg.Get(ctx, e.UnitPath)
			require.NoError(t, err)
			assert.Equal(t, e, got)

			e.RunID = "run-2"
			require.NoError(t, reg.Put(ctx, e))
			got, err = reg.Get(ctx, e.UnitPath)
			require.NoError(t, err)
			assert.Equal(t, "run-2", got.RunID)

			require.NoError(t, reg.Close())
		})
	}
}

func TestRegistry_ListByPrefix(t *testing.T) {
	ctx := context.Background()

	for name, reg := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"b/.gir/x.gir.yaml", "a/.gir/y.gir.yaml", "a/.gir/z.gir.json"} {
				require.NoError(t, reg.Put(ctx, Entry{UnitPath: p, UpdatedAt: time.Unix(1, 0).UTC()}))
			}

			all, err := reg.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a/.gir/y.gir.yaml", all[0].UnitPath)
			assert.Equal(t, "b/.gir/x.gir.yaml", all[2].UnitPath)

			under, err := reg.List(ctx, "a/")
			require.NoError(t, err)
			assert.Len(t, under, 2)
		})
	}
}

func TestBadger_PutStampsAndValidates(t *testing.T) {
	ctx := context.Background()
	reg := newTestBadger(t)

	assert.Error(t, reg.Put(ctx, Entry{}))

	require.NoError(t, reg.Put(ctx, Entry{UnitPath: "u"}))
	got, err := reg.Get(ctx, "u")
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestBadger_SkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	reg := newTestBadger(t)

	require.NoError(t, reg.Put(ctx, Entry{UnitPath: "ok"}))
	require.NoError(t, reg.db.Update(func(txn *badger.Txn) error {
		return txn.Set(unitKey("broken"), []byte("{not json"))
	}))

	entries, err := reg.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].UnitPath)
}

func TestOpenBadger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	reg, err := OpenBadger(dir, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Put(ctx, Entry{UnitPath: "u", CFGPath: "u.cfg"}))
	require.NoError(t, reg.Close())

	reg, err = OpenBadger(dir, nil)
	require.NoError(t, err)
	defer reg.Close()

	got, err := reg.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "u.cfg", got.CFGPath)

	_, err = OpenBadger("", nil)
	assert.Error(t, err)
}

func TestMemory_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewMemory().Put(ctx, Entry{UnitPath: "u"}), context.Canceled)
}

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/l3aro/go-flow-graph/internal/log"
)

const keyPrefixUnit = "cfg:unit:"

// Badger is a Registry persisted in a BadgerDB directory.
type Badger struct {
	db     *badger.DB
	owned  bool
	logger log.Logger
}

// OpenBadger opens or creates a registry at dir.
func OpenBadger(dir string, logger log.Logger) (*Badger, error) {
	if dir == "" {
		return nil, fmt.Errorf("registry directory must not be empty")
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening registry %s: %w", dir, err)
	}

	r := NewBadger(db, logger)
	r.owned = true
	return r, nil
}

// NewBadger wraps an open database. Close does not close db.
func NewBadger(db *badger.DB, logger log.Logger) *Badger {
	if logger == nil {
		logger = log.Nop()
	}
	return &Badger{db: db, logger: logger}
}

func unitKey(unitPath string) []byte {
	return []byte(keyPrefixUnit + unitPath)
}

// Put stores e, replacing any previous entry for the same unit.
func (r *Badger) Put(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.UnitPath == "" {
		return fmt.Errorf("entry has no unit path")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry for %s: %w", e.UnitPath, err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(unitKey(e.UnitPath), data)
	})
	if err != nil {
		return fmt.Errorf("storing entry for %s: %w", e.UnitPath, err)
	}

	r.logger.Debug("registered edge file", "unit", e.UnitPath, "cfg_path", e.CFGPath)
	return nil
}

// Get returns the entry of unitPath or ErrNotFound.
func (r *Badger) Get(ctx context.Context, unitPath string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	var e Entry
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(unitKey(unitPath))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("reading entry for %s: %w", unitPath, err)
	}
	return e, nil
}

// List returns entries under prefix in key order. Corrupt values are
// skipped with a warning.
func (r *Badger) List(ctx context.Context, prefix string) ([]Entry, error) {
	var out []Entry
	keyPrefix := unitKey(prefix)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keyPrefix); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var e Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				r.logger.Warn("skipping corrupt registry entry", "key", string(item.Key()), "error", err)
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing registry: %w", err)
	}
	return out, nil
}

// Close closes the database if it was opened by OpenBadger.
func (r *Badger) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

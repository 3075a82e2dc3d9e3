// Package badgerstore keeps customer sites in an embedded BadgerDB.
//
// Each record is one JSON value under the key "site:<id>".  Badger
// transactions give read-check-write atomicity for Insert, UpdateFields,
// and Delete, so the existence checks here cannot race.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

const keyPrefix = "site:"

var _ store.Store = (*Store)(nil)

type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger directory.  An empty path opens an
// in-memory instance.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", path, err)
	}
	return New(db), nil
}

// New wraps an already open DB.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func key(id string) []byte { return []byte(keyPrefix + id) }

func (s *Store) FindOne(_ context.Context, id string) (*site.Record, error) {
	var rec site.Record
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) FindAll(_ context.Context) ([]site.Record, error) {
	out := make([]site.Record, 0, 16)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec site.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("badgerstore: decode %q: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, rec site.Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(rec.ID)); err == nil {
			return store.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("badgerstore: insert %q: %w", rec.ID, err)
		}
		return put(txn, rec)
	})
}

func (s *Store) UpdateFields(_ context.Context, id string, f site.Fields) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var rec site.Record
		if err := get(txn, id, &rec); err != nil {
			return err
		}
		return put(txn, rec.Apply(f))
	})
}

func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return fmt.Errorf("badgerstore: delete %q: %w", id, err)
		}
		return txn.Delete(key(id))
	})
}

func (s *Store) EnsureSchema(context.Context) error { return nil }

func (s *Store) Close() error { return s.db.Close() }

func get(txn *badger.Txn, id string, rec *site.Record) error {
	item, err := txn.Get(key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("badgerstore: get %q: %w", id, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}

func put(txn *badger.Txn, rec site.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badgerstore: encode %q: %w", rec.ID, err)
	}
	return txn.Set(key(rec.ID), data)
}

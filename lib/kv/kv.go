package kv

import (
	"github.com/dgraph-io/badger/v2"
	"golang.org/x/xerrors"
)

var ErrNotFound = xerrors.New("kv: key not found")

// Database is a thin wrapper over badger.
type Database struct {
	db *badger.DB
}

// NewDatabase opens (or creates) a database at path. An empty path opens
// an in-memory database.
func NewDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, xerrors.Errorf("open kv at %q: %w", path, err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Put(key, value []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (d *Database) Get(key []byte) ([]byte, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if xerrors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (d *Database) Has(key []byte) (bool, error) {
	_, err := d.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Database) Delete(key []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// MultiDelete removes all keys in one transaction.
func (d *Database) MultiDelete(keys [][]byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Iterate calls fn for every key with the given prefix, in key order.
// Returning an error from fn stops the iteration.
func (d *Database) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Database) Close() error {
	return d.db.Close()
}

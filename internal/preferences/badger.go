package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const learnedKey = "prefs:learned"

// BadgerPersistence stores the learned table in BadgerDB.
type BadgerPersistence struct {
	db *badger.DB
}

// OpenBadger opens a BadgerDB at path. An empty path opens an in-memory
// database.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for preferences: %w", err)
	}
	return db, nil
}

// NewBadgerPersistence wraps an open DB.
func NewBadgerPersistence(db *badger.DB) *BadgerPersistence {
	return &BadgerPersistence{db: db}
}

// Load implements Persistence.
func (b *BadgerPersistence) Load(_ context.Context) (LearnedPreferences, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(learnedKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get preferences: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return Empty(), err
	}
	if data == nil {
		return Empty(), nil
	}
	return decode(data)
}

// Save implements Persistence.
func (b *BadgerPersistence) Save(_ context.Context, prefs LearnedPreferences) error {
	data, err := encode(prefs)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(learnedKey), data); err != nil {
			return fmt.Errorf("set preferences: %w", err)
		}
		return nil
	})
}

// Reset implements Persistence.
func (b *BadgerPersistence) Reset(_ context.Context) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(learnedKey)); err != nil {
			return fmt.Errorf("delete preferences: %w", err)
		}
		return nil
	})
}

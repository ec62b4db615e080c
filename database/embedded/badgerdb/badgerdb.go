package badgerdb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type DB struct {
	*badger.DB
}

func Open(path string, opts badger.Options) (*DB, error) {
	db, err := badger.Open(opts.WithDir(path).WithValueDir(path))
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// GetCounter returns the current value of counter, 0 if it was never set.
func (db *DB) GetCounter(counter string) (uint64, error) {
	var id uint64
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(counter))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		id = binary.BigEndian.Uint64(val)
		return nil
	})
	return id, err
}

// WithCounterTransaction increments counter and calls fn with the new value
// inside the same write transaction. If fn fails the transaction is rolled
// back and the previous value is returned with the error. A nil fn only
// reads the counter.
func (db *DB) WithCounterTransaction(counter string, fn func(id uint64, txn *badger.Txn) error) (uint64, error) {
	if fn == nil {
		return db.GetCounter(counter)
	}
	var newID, currentID uint64
	err := db.Update(func(txn *badger.Txn) error {
		counterKey := []byte(counter)
		counterItem, err := txn.Get(counterKey)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			currentID = 0
		case err != nil:
			return err
		default:
			val, err := counterItem.ValueCopy(nil)
			if err != nil {
				return err
			}
			currentID = binary.BigEndian.Uint64(val)
		}
		newID = currentID + 1
		if err := fn(newID, txn); err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, newID)
		return txn.Set(counterKey, buf)
	})
	if err != nil {
		return currentID, err
	}
	return newID, nil
}

// CounterKey is the key WriteWithCounter stores entry id under. Ids are zero
// padded so that prefix iteration returns them in numeric order.
func CounterKey(counter, separator string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s%020d", counter, separator, id))
}

// WriteWithCounter stores data under the next id of counter.
func (db *DB) WriteWithCounter(counter string, separator string, build func(id uint64) ([]byte, error)) (uint64, error) {
	return db.WithCounterTransaction(counter, func(id uint64, txn *badger.Txn) error {
		data, err := build(id)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(CounterKey(counter, separator, id), data))
	})
}

func (db *DB) ForEachByPrefix(prefix string, iterOpts badger.IteratorOptions, fn func(item *badger.Item) error) error {
	itPrefix := []byte(prefix)
	iterOpts.Prefix = itPrefix
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(itPrefix); it.ValidForPrefix(itPrefix); it.Next() {
			if err := fn(it.Item()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) ForEachKeyByPrefix(prefix string, iterOpts badger.IteratorOptions, fn func(key []byte) error) error {
	iterOpts.PrefetchValues = false
	itPrefix := []byte(prefix)
	iterOpts.Prefix = itPrefix
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(itPrefix); it.ValidForPrefix(itPrefix); it.Next() {
			keyCopy := append([]byte(nil), it.Item().Key()...)
			if err := fn(keyCopy); err != nil {
				return err
			}
		}
		return nil
	})
}

package bboltdb

import (
	"encoding/binary"
	"errors"
	"os"

	"go.etcd.io/bbolt"
)

type DB struct {
	*bbolt.DB
}

var ErrEmptyBuckets = errors.New("bucket list cannot be empty")

func Open(path string, mode os.FileMode, opts *bbolt.Options) (*DB, error) {
	db, err := bbolt.Open(path, mode, opts)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// getNestedBucket retrieves nested buckets within tx based on the provided list.
// It does not create any bucket; if any bucket in the hierarchy does not exist, nil is returned.
func getNestedBucket(tx *bbolt.Tx, buckets []string) (*bbolt.Bucket, error) {
	if len(buckets) == 0 {
		return nil, ErrEmptyBuckets
	}

	b := tx.Bucket([]byte(buckets[0]))
	if b == nil {
		return nil, nil
	}
	for _, bucket := range buckets[1:] {
		b = b.Bucket([]byte(bucket))
		if b == nil {
			return nil, nil
		}
	}
	return b, nil
}

// createNestedBucket creates or retrieves nested buckets within tx based on the provided list.
// It creates any bucket that does not exist.
func createNestedBucket(tx *bbolt.Tx, buckets []string) (*bbolt.Bucket, error) {
	if len(buckets) == 0 {
		return nil, ErrEmptyBuckets
	}

	var (
		b   *bbolt.Bucket
		err error
	)
	b, err = tx.CreateBucketIfNotExists([]byte(buckets[0]))
	if err != nil {
		return nil, err
	}
	for _, bucket := range buckets[1:] {
		b, err = b.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (db *DB) NestedUpdateTransaction(buckets []string, fn func(tx *bbolt.Tx, b *bbolt.Bucket) error) error {
	return db.Update(func(tx *bbolt.Tx) error {
		b, err := createNestedBucket(tx, buckets)
		if err != nil {
			return err
		}
		return fn(tx, b)
	})
}

// NestedViewTransaction runs fn on the innermost bucket. fn is not called
// when the bucket does not exist.
func (db *DB) NestedViewTransaction(buckets []string, fn func(tx *bbolt.Tx, b *bbolt.Bucket) error) error {
	return db.View(func(tx *bbolt.Tx) error {
		b, err := getNestedBucket(tx, buckets)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		return fn(tx, b)
	})
}

// AppendSequenced stores value in the nested bucket under the bucket's next
// sequence number, encoded big endian so cursor order is insertion order.
func (db *DB) AppendSequenced(buckets []string, build func(seq uint64) ([]byte, error)) (uint64, error) {
	var seq uint64
	err := db.NestedUpdateTransaction(buckets, func(_ *bbolt.Tx, b *bbolt.Bucket) error {
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		value, err := build(seq)
		if err != nil {
			return err
		}
		return b.Put(SequenceKey(seq), value)
	})
	return seq, err
}

// ForEachSequenced calls fn for every value in the nested bucket in key order.
func (db *DB) ForEachSequenced(buckets []string, fn func(seq uint64, value []byte) error) error {
	return db.NestedViewTransaction(buckets, func(_ *bbolt.Tx, b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			if v == nil || len(k) != 8 {
				// nested bucket
				return nil
			}
			return fn(binary.BigEndian.Uint64(k), v)
		})
	})
}

// ChildBuckets lists the names of the buckets directly inside the nested bucket.
func (db *DB) ChildBuckets(buckets []string) ([]string, error) {
	var names []string
	err := db.NestedViewTransaction(buckets, func(_ *bbolt.Tx, b *bbolt.Bucket) error {
		return b.ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func SequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

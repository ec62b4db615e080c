package bboltdb

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendSequenced(t *testing.T) {
	db := openTestDB(t)
	path := []string{"root", "child"}
	for i := 1; i <= 300; i++ {
		seq, err := db.AppendSequenced(path, func(seq uint64) ([]byte, error) {
			return []byte(strconv.FormatUint(seq, 10)), nil
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}

	var last uint64
	count := 0
	require.NoError(t, db.ForEachSequenced(path, func(seq uint64, value []byte) error {
		assert.Greater(t, seq, last)
		assert.Equal(t, strconv.FormatUint(seq, 10), string(value))
		last = seq
		count++
		return nil
	}))
	assert.Equal(t, 300, count)
}

func TestChildBuckets(t *testing.T) {
	db := openTestDB(t)
	for _, name := range []string{"b", "a"} {
		_, err := db.AppendSequenced([]string{"root", name}, func(uint64) ([]byte, error) { return []byte("v"), nil })
		require.NoError(t, err)
	}
	names, err := db.ChildBuckets([]string{"root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = db.ChildBuckets([]string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmptyBucketList(t *testing.T) {
	db := openTestDB(t)
	err := db.NestedUpdateTransaction(nil, func(*bbolt.Tx, *bbolt.Bucket) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyBuckets)
	err = db.NestedViewTransaction(nil, func(*bbolt.Tx, *bbolt.Bucket) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyBuckets)
}

package recorder

import (
	"time"

	"github.com/vkviyu/wsbridge/database/embedded/bboltdb"
	"github.com/vkviyu/wsbridge/utils/jsonutil"
	"go.etcd.io/bbolt"
)

const sessionsBucket = "sessions"

// BoltStore keeps each session in its own bucket under "sessions", keyed by
// the bucket sequence.
type BoltStore struct {
	db *bboltdb.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bboltdb.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Append(rec Record) (uint64, error) {
	if err := jsonutil.ValidateModel(&rec); err != nil {
		return 0, err
	}
	return s.db.AppendSequenced([]string{sessionsBucket, rec.SessionID}, func(seq uint64) ([]byte, error) {
		rec.Seq = seq
		return jsonutil.Marshal(rec)
	})
}

func (s *BoltStore) Records(sessionID string) ([]Record, error) {
	var records []Record
	err := s.db.ForEachSequenced([]string{sessionsBucket, sessionID}, func(_ uint64, value []byte) error {
		rec, err := jsonutil.ParseJson[Record](value)
		if err != nil {
			return err
		}
		records = append(records, *rec)
		return nil
	})
	return records, err
}

func (s *BoltStore) Sessions() ([]string, error) {
	return s.db.ChildBuckets([]string{sessionsBucket})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

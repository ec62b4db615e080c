package recorder

import (
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/vkviyu/wsbridge/database/embedded/badgerdb"
	"github.com/vkviyu/wsbridge/utils/jsonutil"
)

const (
	badgerPrefix    = "rec/"
	badgerSeparator = "/"
)

// BadgerStore keeps a counter per session at "rec/<id>" and the records at
// "rec/<id>/<seq>".
type BadgerStore struct {
	db *badgerdb.DB
	// appendMu serializes counter updates so concurrent appends never
	// conflict on a session counter.
	appendMu sync.Mutex
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	db, err := badgerdb.Open(path, badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Append(rec Record) (uint64, error) {
	if err := jsonutil.ValidateModel(&rec); err != nil {
		return 0, err
	}
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	return s.db.WriteWithCounter(badgerPrefix+rec.SessionID, badgerSeparator, func(id uint64) ([]byte, error) {
		rec.Seq = id
		return jsonutil.Marshal(rec)
	})
}

func (s *BadgerStore) Records(sessionID string) ([]Record, error) {
	var records []Record
	prefix := badgerPrefix + sessionID + badgerSeparator
	err := s.db.ForEachByPrefix(prefix, badger.DefaultIteratorOptions, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			rec, err := jsonutil.ParseJson[Record](val)
			if err != nil {
				return err
			}
			records = append(records, *rec)
			return nil
		})
	})
	return records, err
}

func (s *BadgerStore) Sessions() ([]string, error) {
	var ids []string
	err := s.db.ForEachKeyByPrefix(badgerPrefix, badger.DefaultIteratorOptions, func(key []byte) error {
		id := strings.TrimPrefix(string(key), badgerPrefix)
		if !strings.Contains(id, badgerSeparator) {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

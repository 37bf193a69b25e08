// Package history persists finished job envelopes in an embedded
// badger database keyed by jid. Records are canonicalized to RFC 8785
// JSON and checksummed with keyed BLAKE3 before storage, so tampering
// and on-disk rot surface as errors on read instead of silently wrong
// history.
package history

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/model"
)

// recordPrefix namespaces job records inside the database.
const recordPrefix = "job/"

// Store is a handle on the job history database. Safe for concurrent
// use.
type Store struct {
	db  *badger.DB
	log *logger.Logger
}

// Open opens the history database in dir, creating the directory when
// missing.
func Open(dir string, log *logger.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("history: database directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	if log != nil {
		opts = opts.WithLogger(badgerLogger{log: log.WithComponent("history")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// OpenInMemory opens a throwaway store with no disk persistence.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(jid string) []byte {
	return []byte(recordPrefix + jid)
}

// Save stores the record under its jid, overwriting any previous
// record with the same jid.
func (s *Store) Save(rec *Record) error {
	if rec == nil || rec.JID == "" {
		return fmt.Errorf("history: record must carry a jid")
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.JID), data)
	})
}

// Get loads one record. Returns ErrRecordNotFound when the jid is
// unknown and ErrRecordCorrupt when the stored bytes fail verification.
func (s *Store) Get(jid string) (*Record, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(jid))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRecordNotFound{JID: jid}
	}
	if err != nil {
		return nil, fmt.Errorf("read job record %s: %w", jid, err)
	}
	return decodeRecord(jid, data)
}

// List returns up to limit records, newest first. limit <= 0 returns
// everything. Corrupted records are skipped with a warning so one bad
// entry does not hide the rest of the history.
func (s *Store) List(limit int) ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Jids are fixed-width digit strings, so lexical key order is
		// chronological and a reverse scan starts at the newest record.
		prefix := []byte(recordPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			item := it.Item()
			jid := string(item.Key()[len(prefix):])
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(jid, data)
			if err != nil {
				s.log.Warn(err.Error())
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list job records: %w", err)
	}
	return records, nil
}

// Prune deletes records whose jid encodes a start time before cutoff
// and returns how many were removed. Records under keys that do not
// parse as jids are left alone.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			started, err := model.ParseJID(string(key[len(prefix):]))
			if err != nil {
				continue
			}
			if started.Before(cutoff) {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan job records: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune job records: %w", err)
	}
	return len(stale), nil
}

// badgerLogger adapts the application logger to badger's Logger
// interface. Badger's internals are chatty, so its info output lands
// at debug level.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(nil, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

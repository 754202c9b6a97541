package storage

import (
	"errors"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/log"
	"github.com/datasniffing/caramelo/pkg/utils"
)

const (
	visitedKeyPrefix  = "visited:" // Prefix for URL keys in DB
	badgerMemTableMiB = 16 // Must keep 15% of it above the 1 MiB value threshold
	badgerCacheMiB    = 8
)

// BadgerStore implements VisitedStore on an in-memory BadgerDB instance.
// Nothing is written to disk; the data lives until Close.
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

// NewBadgerStore opens a fresh in-memory BadgerStore
func NewBadgerStore(logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger.WithField("component", "visited_store")}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1).
		WithMemTableSize(badgerMemTableMiB << 20).
		WithBlockCacheSize(badgerCacheMiB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening in-memory badger: %w", utils.ErrDatabase, err)
	}
	store.db = db
	store.log.Debug("In-memory visited store opened")
	return store, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Conflicts on overlapping keys resolve quickly, so a tight retry loop is enough.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements VisitedStore
func (s *BadgerStore) MarkVisited(normalizedURL string) (bool, error) {
	if s.db == nil || s.db.IsClosed() {
		return false, fmt.Errorf("%w: visited store not open", utils.ErrDatabase)
	}
	added := false
	key := []byte(visitedKeyPrefix + normalizedURL)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			if errSet := txn.SetEntry(badger.NewEntry(key, []byte{})); errSet != nil {
				return errSet
			}
			added = true
			return nil
		}
		// Key exists (errGet == nil) or a real read error
		return errGet
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in MarkVisited: %v", err)
		return false, fmt.Errorf("%w: marking '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return added, nil
}

// Count implements VisitedStore
func (s *BadgerStore) Count() int {
	return int(s.keyCount.Load())
}

// Close implements VisitedStore
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing visited DB: %v", err)
		return fmt.Errorf("%w: closing: %w", utils.ErrDatabase, err)
	}
	s.log.Debug("In-memory visited store closed")
	return nil
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"chatcast/internal/app/message"
)

const badgerKeyPrefix = "msg:"

// BadgerStore appends history entries to an embedded BadgerDB.
// Keys are "msg:{index}" with the index zero-padded to 20 digits so a prefix scan
// returns entries in history order.
type BadgerStore struct {
	db *badger.DB

	// persisted is the number of leading history entries known to match the database.
	// stored is one past the highest index present on disk; entries in
	// [persisted, stored) are stale until overwritten or deleted.
	persisted int
	stored    int
	mu        sync.Mutex
}

// NewBadgerStore opens (or creates) a BadgerDB in dir. Writes are synced before a
// Persist returns.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.WARNING).
		WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	store := &BadgerStore{db: db}
	if store.stored, err = store.tail(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// tail returns one past the highest entry index on disk, or 0 when empty.
func (s *BadgerStore) tail() (int, error) {
	end := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// the last possible key under the prefix
		it.Seek(append(prefix, 0xff))
		if !it.ValidForPrefix(prefix) {
			return nil
		}

		key := it.Item().Key()
		index, err := strconv.Atoi(string(key[len(prefix):]))
		if err != nil {
			return fmt.Errorf("parse key %s: %w", key, err)
		}
		end = index + 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan badger keys: %w", err)
	}
	return end, nil
}

func badgerKey(index int) []byte {
	return fmt.Appendf(nil, "%s%020d", badgerKeyPrefix, index)
}

func (s *BadgerStore) Name() string { return BackendBadger }

func (s *BadgerStore) Load(ctx context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []message.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m message.Message
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &m)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			history = append(history, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load badger history: %w", err)
	}

	s.persisted = len(history)
	s.stored = len(history)
	return history, nil
}

func (s *BadgerStore) Persist(ctx context.Context, history []message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(history) <= s.persisted && s.stored <= len(history) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := s.persisted; i < len(history); i++ {
		value, err := json.Marshal(history[i])
		if err != nil {
			return fmt.Errorf("encode history entry %d: %w", i, err)
		}
		if err := wb.Set(badgerKey(i), value); err != nil {
			return fmt.Errorf("stage history entry %d: %w", i, err)
		}
	}

	// entries past the end of this history belong to an earlier run
	for i := len(history); i < s.stored; i++ {
		if err := wb.Delete(badgerKey(i)); err != nil {
			return fmt.Errorf("stage delete of entry %d: %w", i, err)
		}
	}

	if err := wb.Flush(); err != nil {
		s.stored = max(s.stored, len(history))
		return fmt.Errorf("flush badger batch: %w", err)
	}

	s.persisted = len(history)
	s.stored = len(history)
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

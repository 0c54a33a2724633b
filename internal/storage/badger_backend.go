package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different record types
const (
	prefixGraph  = "g:" // graph records by fingerprint
	prefixReport = "r:" // report records by report key
)

// BadgerBackend is a BadgerDB-backed cache.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	readOnly    bool
	mu          sync.RWMutex

	// TTL expires records after the given duration; zero keeps them.
	TTL time.Duration

	now func() time.Time
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{now: time.Now}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(2).
		WithLoggingLevel(badger.ERROR)

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	b.readOnly = readOnly
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// PutGraph implements StorageBackend.
func (b *BadgerBackend) PutGraph(ctx context.Context, rec *GraphRecord) error {
	if rec.Fingerprint == "" {
		return errors.New("graph record without fingerprint")
	}
	stored := *rec
	stored.StoredAt = b.now().UTC()
	return b.put(ctx, prefixGraph+rec.Fingerprint, &stored)
}

// GetGraph implements StorageBackend.
func (b *BadgerBackend) GetGraph(ctx context.Context, fingerprint string) (*GraphRecord, error) {
	var rec GraphRecord
	if err := b.get(ctx, prefixGraph+fingerprint, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutReport implements StorageBackend.
func (b *BadgerBackend) PutReport(ctx context.Context, rec *ReportRecord) error {
	if rec.Key == "" {
		return errors.New("report record without key")
	}
	stored := *rec
	stored.StoredAt = b.now().UTC()
	return b.put(ctx, prefixReport+rec.Key, &stored)
}

// GetReport implements StorageBackend.
func (b *BadgerBackend) GetReport(ctx context.Context, key string) (*ReportRecord, error) {
	var rec ReportRecord
	if err := b.get(ctx, prefixReport+key, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (b *BadgerBackend) put(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	if b.readOnly {
		return errors.New("storage opened read-only")
	}

	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if b.TTL > 0 {
			entry = entry.WithTTL(b.TTL)
		}
		return txn.SetEntry(entry)
	})
}

func (b *BadgerBackend) get(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return ErrNotInitialized
	}

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

// storedHeader is the subset of a record needed for listings.
type storedHeader struct {
	Source   string    `json:"source"`
	StoredAt time.Time `json:"stored_at"`
}

// List implements StorageBackend.
func (b *BadgerBackend) List(ctx context.Context) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var entries []Entry
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			entry, ok := entryFor(string(item.Key()))
			if !ok {
				continue
			}
			var header storedHeader
			if err := item.Value(func(val []byte) error {
				entry.Size = len(val)
				return json.Unmarshal(val, &header)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			entry.Source = header.Source
			entry.StoredAt = header.StoredAt
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// Clean implements StorageBackend.
func (b *BadgerBackend) Clean(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := b.List(ctx)
	if err != nil {
		return 0, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return 0, ErrNotInitialized
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	removed := 0
	for _, e := range entries {
		if !cutoff.IsZero() && !e.StoredAt.Before(cutoff) {
			continue
		}
		if err := wb.Delete([]byte(keyFor(e))); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", e.Key, err)
		}
		removed++
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return removed, nil
}

func entryFor(key string) (Entry, bool) {
	switch {
	case strings.HasPrefix(key, prefixGraph):
		return Entry{Kind: KindGraph, Key: strings.TrimPrefix(key, prefixGraph)}, true
	case strings.HasPrefix(key, prefixReport):
		return Entry{Kind: KindReport, Key: strings.TrimPrefix(key, prefixReport)}, true
	default:
		return Entry{}, false
	}
}

func keyFor(e Entry) string {
	if e.Kind == KindGraph {
		return prefixGraph + e.Key
	}
	return prefixReport + e.Key
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StoredAt.Equal(entries[j].StoredAt) {
			return entries[i].StoredAt.After(entries[j].StoredAt)
		}
		return keyFor(entries[i]) < keyFor(entries[j])
	})
}

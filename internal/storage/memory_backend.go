package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend is an in-memory implementation of StorageBackend, used when
// the on-disk cache is disabled and in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	graphs  map[string][]byte
	reports map[string][]byte
	now     func() time.Time
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		graphs:  make(map[string][]byte),
		reports: make(map[string][]byte),
		now:     time.Now,
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.graphs == nil {
		m.graphs = make(map[string][]byte)
		m.reports = make(map[string][]byte)
	}
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs = nil
	m.reports = nil
	return nil
}

// PutGraph implements StorageBackend.
func (m *MemoryBackend) PutGraph(ctx context.Context, rec *GraphRecord) error {
	if rec.Fingerprint == "" {
		return errors.New("graph record without fingerprint")
	}
	stored := *rec
	stored.StoredAt = m.now().UTC()
	return m.put(ctx, m.graphsMap, rec.Fingerprint, &stored)
}

// GetGraph implements StorageBackend.
func (m *MemoryBackend) GetGraph(ctx context.Context, fingerprint string) (*GraphRecord, error) {
	var rec GraphRecord
	if err := m.get(ctx, m.graphsMap, fingerprint, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutReport implements StorageBackend.
func (m *MemoryBackend) PutReport(ctx context.Context, rec *ReportRecord) error {
	if rec.Key == "" {
		return errors.New("report record without key")
	}
	stored := *rec
	stored.StoredAt = m.now().UTC()
	return m.put(ctx, m.reportsMap, rec.Key, &stored)
}

// GetReport implements StorageBackend.
func (m *MemoryBackend) GetReport(ctx context.Context, key string) (*ReportRecord, error) {
	var rec ReportRecord
	if err := m.get(ctx, m.reportsMap, key, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *MemoryBackend) graphsMap() map[string][]byte  { return m.graphs }
func (m *MemoryBackend) reportsMap() map[string][]byte { return m.reports }

// Records are kept encoded so callers never share memory with the cache.
func (m *MemoryBackend) put(ctx context.Context, table func() map[string][]byte, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t := table()
	if t == nil {
		return ErrNotInitialized
	}
	t[key] = data
	return nil
}

func (m *MemoryBackend) get(ctx context.Context, table func() map[string][]byte, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	t := table()
	if t == nil {
		return ErrNotInitialized
	}
	data, ok := t[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return json.Unmarshal(data, v)
}

// List implements StorageBackend.
func (m *MemoryBackend) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.graphs == nil {
		return nil, ErrNotInitialized
	}

	var entries []Entry
	collect := func(kind RecordKind, table map[string][]byte) error {
		for key, data := range table {
			var header storedHeader
			if err := json.Unmarshal(data, &header); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			entries = append(entries, Entry{
				Kind:     kind,
				Key:      key,
				Source:   header.Source,
				Size:     len(data),
				StoredAt: header.StoredAt,
			})
		}
		return nil
	}
	if err := collect(KindGraph, m.graphs); err != nil {
		return nil, err
	}
	if err := collect(KindReport, m.reports); err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// Clean implements StorageBackend.
func (m *MemoryBackend) Clean(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if !cutoff.IsZero() && !e.StoredAt.Before(cutoff) {
			continue
		}
		if e.Kind == KindGraph {
			delete(m.graphs, e.Key)
		} else {
			delete(m.reports, e.Key)
		}
		removed++
	}
	return removed, nil
}

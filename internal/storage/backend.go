// Package storage provides the result cache backends for netscope.
//
// It defines the StorageBackend interface that all cache implementations
// must satisfy, along with the records they persist. Graphs are stored as
// edge lists keyed by content fingerprint; reports are stored as encoded
// JSON keyed by fingerprint plus the analysis options that produced them.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/netscope/internal/graph"
)

// ErrNotFound is returned when a key has no stored record.
var ErrNotFound = errors.New("not found")

// ErrNotInitialized is returned by operations on a closed or unopened backend.
var ErrNotInitialized = errors.New("storage not initialized")

// RecordKind distinguishes stored graphs from stored reports.
type RecordKind string

const (
	KindGraph  RecordKind = "graph"
	KindReport RecordKind = "report"
)

// GraphRecord is a persisted graph.
type GraphRecord struct {
	// Fingerprint is the order-independent content hash of the graph.
	Fingerprint string `json:"fingerprint"`

	// Source is the file the graph was loaded from.
	Source string `json:"source"`

	// Nodes lists every node in enumeration order, isolated ones included.
	Nodes []string `json:"nodes"`

	// Edges lists every edge in enumeration order.
	Edges []graph.Edge `json:"edges"`

	StoredAt time.Time `json:"stored_at"`
}

// NewGraphRecord captures g for storage.
func NewGraphRecord(g *graph.Graph, source string) *GraphRecord {
	return &GraphRecord{
		Fingerprint: g.Snapshot().Fingerprint(),
		Source:      source,
		Nodes:       g.Nodes(),
		Edges:       g.Edges(),
	}
}

// Graph rebuilds the stored graph, preserving enumeration order.
func (r *GraphRecord) Graph() (*graph.Graph, error) {
	g := graph.New()
	for _, id := range r.Nodes {
		if err := g.AddNode(id); err != nil {
			return nil, err
		}
	}
	for _, e := range r.Edges {
		if err := g.AddEdge(e.Source, e.Target, e.Weight); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ReportRecord is a persisted analysis report.
type ReportRecord struct {
	// Key identifies the report; see ReportKey.
	Key string `json:"key"`

	Fingerprint string `json:"fingerprint"`
	Source      string `json:"source"`

	// Data is the encoded report.
	Data []byte `json:"data"`

	StoredAt time.Time `json:"stored_at"`
}

// Entry summarizes one stored record for listings.
type Entry struct {
	Kind     RecordKind `json:"kind"`
	Key      string     `json:"key"`
	Source   string     `json:"source"`
	Size     int        `json:"size"`
	StoredAt time.Time  `json:"stored_at"`
}

// StorageBackend defines the interface for cache implementations.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Graphs

	// PutGraph stores a graph under its fingerprint.
	PutGraph(ctx context.Context, rec *GraphRecord) error

	// GetGraph returns the graph stored under fingerprint, or ErrNotFound.
	GetGraph(ctx context.Context, fingerprint string) (*GraphRecord, error)

	// Reports

	// PutReport stores an encoded report under rec.Key.
	PutReport(ctx context.Context, rec *ReportRecord) error

	// GetReport returns the report stored under key, or ErrNotFound.
	GetReport(ctx context.Context, key string) (*ReportRecord, error)

	// Maintenance

	// List returns every stored record, newest first.
	List(ctx context.Context) ([]Entry, error)

	// Clean removes records stored before cutoff and returns how many were
	// removed. A zero cutoff removes everything.
	Clean(ctx context.Context, cutoff time.Time) (int, error)
}

// Open returns an initialized backend: a BadgerBackend at path when enabled,
// otherwise a MemoryBackend.
func Open(path string, enabled, readOnly bool) (StorageBackend, error) {
	var backend StorageBackend = NewMemoryBackend()
	if enabled {
		backend = NewBadgerBackend()
	}
	if err := backend.Initialize(path, readOnly); err != nil {
		return nil, err
	}
	return backend, nil
}

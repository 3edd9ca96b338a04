package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/reviewdeck/reviewdeck/internal/store"
)

// testLogger discards output so test runs stay quiet.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// In-memory store
// =============================================================================

// memStore is an in-memory Store used by service tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any

	// Optional overrides for failure injection.
	GetFn        func(ctx context.Context, path string) (*store.Document, error)
	QueryWhereFn func(ctx context.Context, collection, field string, value any) ([]store.Document, error)
	PutFn        func(ctx context.Context, path string, fields map[string]any) error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string]any)}
}

func (m *memStore) Get(ctx context.Context, path string) (*store.Document, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Document{Path: path, Fields: copyFields(fields), UpdatedAt: time.Now()}, nil
}

func (m *memStore) Query(ctx context.Context, collection string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []store.Document
	for path, fields := range m.docs {
		c, _, err := store.SplitPath(path)
		if err != nil || c != collection {
			continue
		}
		docs = append(docs, store.Document{Path: path, Fields: copyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (m *memStore) QueryWhere(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	if m.QueryWhereFn != nil {
		return m.QueryWhereFn(ctx, collection, field, value)
	}
	all, err := m.Query(ctx, collection)
	if err != nil {
		return nil, err
	}
	var docs []store.Document
	for _, doc := range all {
		if doc.Fields[field] == value {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *memStore) Put(ctx context.Context, path string, fields map[string]any) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, path, fields)
	}
	if _, _, err := store.SplitPath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = copyFields(fields)
	return nil
}

func (m *memStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// =============================================================================
// Mock cache
// =============================================================================

// mockCache is a function-field SnapshotCache mock.
type mockCache struct {
	GetFn    func(ctx context.Context, key string, out any) (bool, error)
	SetFn    func(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error
}

func (m *mockCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if m.GetFn == nil {
		return false, nil
	}
	return m.GetFn(ctx, key, out)
}

func (m *mockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m.SetFn == nil {
		return nil
	}
	return m.SetFn(ctx, key, value, ttl)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFn == nil {
		return nil
	}
	return m.DeleteFn(ctx, key)
}

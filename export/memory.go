package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore stores artifacts in memory (test/dev only).
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	meta ArtifactMeta
}

// NewMemoryStore creates an in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error) {
	_ = ctx
	if key == "" {
		return ArtifactRef{}, NewError(KindValidation, "artifact key is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArtifactRef{}, err
	}
	meta.Size = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	if meta.Filename == "" {
		meta.Filename = key
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, meta: meta}
	s.mu.Unlock()

	return ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ArtifactMeta{}, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.meta, nil
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Keys returns stored artifact keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// MemoryTracker stores run records in memory (test/dev only).
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]RunRecord
	counter uint64
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]RunRecord)}
}

// Start creates a new record.
func (t *MemoryTracker) Start(ctx context.Context, record RunRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateQueued
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	t.mu.Lock()
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Progress records the latest stage and fraction.
func (t *MemoryTracker) Progress(ctx context.Context, id string, progress Progress) error {
	return t.update(ctx, id, func(record *RunRecord) {
		record.Stage = progress.Stage
		if progress.Fraction > record.Progress {
			record.Progress = progress.Fraction
		}
		if record.State == StateQueued {
			record.State = StateRunning
			record.StartedAt = time.Now()
		}
	})
}

// Complete marks the run as completed.
func (t *MemoryTracker) Complete(ctx context.Context, id string, summary RunSummary) error {
	return t.update(ctx, id, func(record *RunRecord) {
		record.State = StateCompleted
		record.Stage = StageDone
		record.Progress = 1
		record.Sections = summary.Sections
		record.Placeholders = summary.Placeholders
		record.Pages = summary.Pages
		record.Bytes = summary.Bytes
		record.Filename = summary.Filename
		record.ArtifactKey = summary.ArtifactKey
		record.CompletedAt = time.Now()
	})
}

// Fail records failure state.
func (t *MemoryTracker) Fail(ctx context.Context, id string, err error) error {
	return t.update(ctx, id, func(record *RunRecord) {
		record.State = StateFailed
		record.Stage = StageFailed
		if err != nil {
			record.Error = err.Error()
		}
		record.CompletedAt = time.Now()
	})
}

// Status returns a record by ID.
func (t *MemoryTracker) Status(ctx context.Context, id string) (RunRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return RunRecord{}, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return record, nil
}

// List returns records matching a filter, newest first.
func (t *MemoryTracker) List(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	_ = ctx
	result := []RunRecord{}

	t.mu.RLock()
	for _, record := range t.records {
		if filter.State != "" && record.State != filter.State {
			continue
		}
		if !filter.Since.IsZero() && record.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && record.CreatedAt.After(filter.Until) {
			continue
		}
		result = append(result, record)
	}
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (t *MemoryTracker) update(ctx context.Context, id string, fn func(record *RunRecord)) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[id]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	fn(&record)
	t.records[id] = record
	return nil
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("snap-%d", id)
}

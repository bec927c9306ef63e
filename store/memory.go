package store

import (
	"context"
	"sync"
)

// Memory is an in-memory Backend for tests and local development. Records
// are kept in insertion order per partition; the DynamoDB-backed Store
// returns sort-key order instead, so the two agree only when sort keys are
// inserted in ascending order (timestamps, or the seed data of a test).
type Memory struct {
	mu         sync.Mutex
	partitions map[string][]Record

	// FailNext makes the next call return ErrUnavailable. Used by tests to
	// exercise infrastructure-failure paths, reads included.
	FailNext bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		partitions: map[string][]Record{},
	}
}

// Put inserts or fully replaces the record at (PartitionKey, SortKey).
// Replacing keeps the record's original position in the partition.
func (m *Memory) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return ErrUnavailable
	}

	rec.Attributes = cloneAttrs(rec.Attributes)
	part := m.partitions[rec.PartitionKey]
	for i, existing := range part {
		if existing.SortKey == rec.SortKey {
			part[i] = rec
			return nil
		}
	}
	m.partitions[rec.PartitionKey] = append(part, rec)
	return nil
}

// GetByKey performs a point lookup, returning ErrNotFound when absent.
func (m *Memory) GetByKey(_ context.Context, partition, sort string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, ErrUnavailable
	}

	for _, rec := range m.partitions[partition] {
		if rec.SortKey == sort {
			out := rec
			out.Attributes = cloneAttrs(rec.Attributes)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// QueryByPartition returns the partition's records in insertion order,
// narrowed by the query options.
func (m *Memory) QueryByPartition(_ context.Context, partition string, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, ErrUnavailable
	}

	part := m.partitions[partition]
	ordered := make([]Record, len(part))
	copy(ordered, part)
	if q.Reverse {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	var records []Record
	for _, rec := range ordered {
		if !matches(rec, q.Filter) {
			continue
		}
		rec.Attributes = cloneAttrs(rec.Attributes)
		records = append(records, rec)
		if q.Limit > 0 && len(records) == q.Limit {
			break
		}
	}
	return records, nil
}

// Delete removes the record. Deleting a missing key is a no-op.
func (m *Memory) Delete(_ context.Context, partition, sort string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return ErrUnavailable
	}

	part := m.partitions[partition]
	for i, rec := range part {
		if rec.SortKey == sort {
			m.partitions[partition] = append(part[:i], part[i+1:]...)
			return nil
		}
	}
	return nil
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

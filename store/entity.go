package store

import "context"

// Record is the generic envelope shared by every entity kind in the table.
//
// PartitionKey is either an entity-kind tag (see internal/keys) or, for
// relationship rows, the owning entity's sort key. SortKey identifies the
// record within its partition. Attributes carries the entity-specific fields
// and is flattened to top-level item attributes on DynamoDB.
type Record struct {
	PartitionKey string
	SortKey      string
	Attributes   map[string]any
	CreatedOn    string
	UpdatedOn    string
}

// Condition is an equality predicate on a single attribute.
type Condition struct {
	Field string
	Value any
}

// Query narrows a partition scan. The filter is evaluated in memory after
// retrieval; it is never pushed to an index.
type Query struct {
	// Filter keeps only records whose attribute equals the given value.
	Filter *Condition

	// Reverse returns records in reverse insertion order.
	Reverse bool

	// Limit caps the number of records returned after filtering (0 = all).
	Limit int
}

// Backend is the partition/sort-key contract implemented by both the
// DynamoDB-backed Store and the in-memory Memory store.
type Backend interface {
	// Put inserts or fully replaces the record at (PartitionKey, SortKey).
	Put(ctx context.Context, rec Record) error

	// GetByKey returns the record at (partition, sort), or ErrNotFound.
	GetByKey(ctx context.Context, partition, sort string) (*Record, error)

	// QueryByPartition returns all records sharing a partition key in
	// insertion order, narrowed by the query options.
	QueryByPartition(ctx context.Context, partition string, q Query) ([]Record, error)

	// Delete removes the record. Deleting a missing key is a no-op.
	Delete(ctx context.Context, partition, sort string) error
}

// matches reports whether a record satisfies the query filter.
func matches(rec Record, c *Condition) bool {
	if c == nil {
		return true
	}
	return equalValues(rec.Attributes[c.Field], c.Value)
}

// equalValues compares attribute values for the post-retrieval filter.
// Numeric values are normalized first: DynamoDB round-trips numbers as
// float64 while in-memory records keep whatever type the caller stored.
func equalValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

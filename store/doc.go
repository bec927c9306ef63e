// Package store provides the partitioned key-value layer every entity kind
// shares.
//
// A single DynamoDB table emulates multiple logical entity tables: each
// record lives under a partition key naming its entity kind (or, for
// relationship rows, the owning entity's id) and a sort key identifying the
// record within that partition. The composite (PK, SK) is the only index.
//
// # Operations
//
//   - Put: insert or fully replace a record (atomic at record granularity)
//   - GetByKey: point lookup, [ErrNotFound] when absent
//   - QueryByPartition: full partition scan in insertion order, with an
//     optional in-memory equality filter, reverse order and limit
//   - Delete: remove a record; deleting a missing key is a no-op
//
// Two implementations ship: [Store] on DynamoDB and [Memory] for tests and
// local development. Both satisfy [Backend].
//
// # Errors
//
// Connectivity failures surface as [ErrUnavailable] wrapping the SDK error.
// The store never retries; retry policy belongs to the transport layer.
package store

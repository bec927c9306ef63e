// Package audit records field-level before/after state for every mutation.
//
// Entries are appended to per-kind log partitions in the shared table and
// are never mutated or deleted. Writes are best-effort: the entity table is
// the record of truth, so a failed audit write is logged and swallowed.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// Event classifies a mutation.
type Event string

const (
	EventAdd    Event = "Add"
	EventEdit   Event = "Edit"
	EventDelete Event = "Delete"
)

// Change holds one field's before/after values. A nil side means the field
// was absent from that snapshot.
type Change struct {
	OldValue any `dynamodbav:"oldValue" json:"oldValue"`
	NewValue any `dynamodbav:"newValue" json:"newValue"`
}

// Diff produces the per-field change map for two snapshots of the same
// logical entity. Every field present in either snapshot is reported, keyed
// by field name; equal old/new values are not suppressed. Inclusion depends
// only on presence in the inputs, never on an equality test, so the result
// is deterministic given the two maps.
func Diff(oldAttrs, newAttrs map[string]any) map[string]Change {
	changes := make(map[string]Change, len(newAttrs))
	for field, newValue := range newAttrs {
		changes[field] = Change{OldValue: oldAttrs[field], NewValue: newValue}
	}
	for field, oldValue := range oldAttrs {
		if _, seen := changes[field]; seen {
			continue
		}
		changes[field] = Change{OldValue: oldValue}
	}
	return changes
}

// Entry is one recorded mutation.
type Entry struct {
	Entity    string
	Event     Event
	SubjectID string
	Changes   map[string]Change
	CreatedOn string
}

// Recorder appends audit entries via the entity store.
type Recorder struct {
	backend store.Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder. A nil logger falls back to slog.Default().
func NewRecorder(backend store.Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// Record diffs the two snapshots and appends the entry under the kind's log
// partition. The sort key is a nanosecond timestamp; collisions are
// last-write-wins, an accepted imprecision. Failures are logged, never
// propagated: audit writes must not roll back the primary mutation.
func (r *Recorder) Record(ctx context.Context, kind keys.Kind, subjectID string, event Event, oldAttrs, newAttrs map[string]any) {
	now := r.now().UTC()
	rec := store.Record{
		PartitionKey: keys.Audit(kind),
		SortKey:      now.Format(time.RFC3339Nano),
		Attributes: map[string]any{
			"entity":       string(kind),
			"event":        string(event),
			"subjectId":    subjectID,
			"eventChanges": Diff(oldAttrs, newAttrs),
		},
		CreatedOn: now.Format(time.RFC3339),
	}

	if err := r.backend.Put(ctx, rec); err != nil {
		r.logger.Error("audit write failed",
			"entity", string(kind),
			"event", string(event),
			"subjectId", subjectID,
			"error", err,
		)
	}
}

// Entries returns the recorded log for a kind in append order.
func (r *Recorder) Entries(ctx context.Context, kind keys.Kind) ([]Entry, error) {
	records, err := r.backend.QueryByPartition(ctx, keys.Audit(kind), store.Query{})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entry := Entry{CreatedOn: rec.CreatedOn}
		if v, ok := rec.Attributes["entity"].(string); ok {
			entry.Entity = v
		}
		if v, ok := rec.Attributes["event"].(string); ok {
			entry.Event = Event(v)
		}
		if v, ok := rec.Attributes["subjectId"].(string); ok {
			entry.SubjectID = v
		}
		entry.Changes = coerceChanges(rec.Attributes["eventChanges"])
		entries = append(entries, entry)
	}
	return entries, nil
}

// coerceChanges handles both in-memory entries (typed Change values) and
// DynamoDB round-trips (nested maps).
func coerceChanges(v any) map[string]Change {
	switch m := v.(type) {
	case map[string]Change:
		return m
	case map[string]any:
		changes := make(map[string]Change, len(m))
		for field, raw := range m {
			if pair, ok := raw.(map[string]any); ok {
				changes[field] = Change{OldValue: pair["oldValue"], NewValue: pair["newValue"]}
			}
		}
		return changes
	}
	return nil
}

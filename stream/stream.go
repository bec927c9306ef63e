// Package stream provides the DynamoDB Streams handler that cleans up
// after role deletions.
//
// Deleting a role leaves every assigned user pointing at a dead role id.
// The handler watches the entity table's stream for REMOVE events on the
// ROLE partition and clears the dangling userRole references. Processing is
// idempotent: re-delivered events find nothing left to clear.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// Handler processes entity-table stream events.
type Handler struct {
	backend store.Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a stream handler. A nil logger falls back to
// slog.Default().
func NewHandler(backend store.Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleRoleCleanup is the Lambda entry point. A failed record returns an
// error so the batch is retried and eventually dead-lettered.
func (h *Handler) HandleRoleCleanup(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	if stringAttr(record.Change.OldImage, "PK") != keys.Role.Partition() {
		return nil
	}
	roleID := stringAttr(record.Change.OldImage, "SK")
	if roleID == "" {
		return nil
	}

	assigned, err := h.backend.QueryByPartition(ctx, keys.User.Partition(), store.Query{
		Filter: &store.Condition{Field: "userRole", Value: roleID},
	})
	if err != nil {
		return fmt.Errorf("query assigned users: %w", err)
	}

	for _, user := range assigned {
		delete(user.Attributes, "userRole")
		user.UpdatedOn = h.now().UTC().Format(time.RFC3339)
		if err := h.backend.Put(ctx, user); err != nil {
			return fmt.Errorf("clear userRole for %s: %w", user.SortKey, err)
		}
	}

	h.logger.Info("cleared dangling role references",
		"roleId", roleID,
		"users", len(assigned),
	)
	return nil
}

func stringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	av, ok := image[key]
	if !ok || av.DataType() != events.DataTypeString {
		return ""
	}
	return av.String()
}

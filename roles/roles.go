// Package roles implements the role and permission registry on top of the
// shared entity store.
package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/admix/api"
	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// Role is a named grant of access. Names are stored case-folded and are
// unique across the ROLE partition.
type Role struct {
	ID          string `json:"roleId"`
	Name        string `json:"roleName"`
	Description string `json:"description"`
	Active      bool   `json:"roleStatus"`
	CreatedOn   string `json:"createdOn"`
	UpdatedOn   string `json:"updatedOn"`
}

// Service is the role/permission registry.
type Service struct {
	backend store.Backend
	audit   *audit.Recorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a Service. A nil logger falls back to slog.Default().
func New(backend store.Backend, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		audit:   recorder,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// AddRole creates a role with a fresh id and roleStatus=true. A case-folded
// name match anywhere in the ROLE partition is a precondition failure.
func (s *Service) AddRole(ctx context.Context, name, description string) (api.Result, error) {
	name = strings.ToLower(name)

	taken, err := s.nameTaken(ctx, name, "")
	if err != nil {
		return api.Result{}, err
	}
	if taken {
		return api.Fail(api.MsgRoleExists), nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.Role.Partition(),
		SortKey:      s.newID(),
		Attributes: map[string]any{
			"roleName":    name,
			"description": description,
			"roleStatus":  true,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.Role, rec.SortKey, audit.EventAdd, nil, rec.Attributes)

	return api.OK(api.MsgRoleAdded, roleFromRecord(rec)), nil
}

// UpdateRole replaces a role's name, description and status. The new name
// must not be held by a different role id.
func (s *Service) UpdateRole(ctx context.Context, id, name, description string, active bool) (api.Result, error) {
	current, err := s.backend.GetByKey(ctx, keys.Role.Partition(), id)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgRoleNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	name = strings.ToLower(name)
	taken, err := s.nameTaken(ctx, name, id)
	if err != nil {
		return api.Result{}, err
	}
	if taken {
		return api.Fail(api.MsgRoleExists), nil
	}

	updated := store.Record{
		PartitionKey: keys.Role.Partition(),
		SortKey:      id,
		Attributes: map[string]any{
			"roleName":    name,
			"description": description,
			"roleStatus":  active,
		},
		CreatedOn: current.CreatedOn,
		UpdatedOn: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.backend.Put(ctx, updated); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.Role, id, audit.EventEdit, current.Attributes, updated.Attributes)

	return api.OK(api.MsgRoleUpdated, roleFromRecord(updated)), nil
}

// DeleteRole removes a role and records the deletion.
func (s *Service) DeleteRole(ctx context.Context, id string) (api.Result, error) {
	current, err := s.backend.GetByKey(ctx, keys.Role.Partition(), id)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgRoleNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	if err := s.backend.Delete(ctx, keys.Role.Partition(), id); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.Role, id, audit.EventDelete, current.Attributes, nil)

	return api.OK(api.MsgRoleDeleted, nil), nil
}

// ListRoles returns the full ROLE partition.
func (s *Service) ListRoles(ctx context.Context) (api.Result, error) {
	records, err := s.backend.QueryByPartition(ctx, keys.Role.Partition(), store.Query{})
	if err != nil {
		return api.Result{}, err
	}

	list := make([]Role, 0, len(records))
	for _, rec := range records {
		list = append(list, roleFromRecord(rec))
	}
	return api.OK(api.MsgRoleList, list), nil
}

// AssignRole points each user's userRole attribute at the role id. Updates
// run sequentially; a failure stops the loop and earlier updates stand.
// There is no rollback of partial progress.
func (s *Service) AssignRole(ctx context.Context, roleID string, userIDs []string) (api.Result, error) {
	for _, userID := range userIDs {
		user, err := s.backend.GetByKey(ctx, keys.User.Partition(), userID)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("role assignment stopped on missing user; earlier updates stand",
				"roleId", roleID,
				"userId", userID,
			)
			return api.Fail(api.MsgUserNotFound), nil
		}
		if err != nil {
			return api.Result{}, err
		}

		user.Attributes["userRole"] = roleID
		user.UpdatedOn = s.now().UTC().Format(time.RFC3339)
		if err := s.backend.Put(ctx, *user); err != nil {
			return api.Result{}, err
		}
	}
	return api.OK(api.MsgRoleAssigned, nil), nil
}

// nameTaken reports whether a role other than excludeID holds the
// case-folded name.
func (s *Service) nameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	records, err := s.backend.QueryByPartition(ctx, keys.Role.Partition(), store.Query{
		Filter: &store.Condition{Field: "roleName", Value: name},
	})
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.SortKey != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func roleFromRecord(rec store.Record) Role {
	role := Role{
		ID:        rec.SortKey,
		CreatedOn: rec.CreatedOn,
		UpdatedOn: rec.UpdatedOn,
	}
	if v, ok := rec.Attributes["roleName"].(string); ok {
		role.Name = v
	}
	if v, ok := rec.Attributes["description"].(string); ok {
		role.Description = v
	}
	if v, ok := rec.Attributes["roleStatus"].(bool); ok {
		role.Active = v
	}
	return role
}

package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jacentio/admix/api"
	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// AllMappings is the ListMappings selector for a full-partition scan.
const AllMappings = "All"

// Mapping associates one role with one permission set. The mapping's sort
// key is the role's id, so a role can hold at most one permission set.
type Mapping struct {
	RoleID        string `json:"roleId"`
	PermissionSet any    `json:"permissionSet"`
	CreatedOn     string `json:"createdOn"`
	UpdatedOn     string `json:"updatedOn"`
}

// CreateMapping attaches a permission set to a role. A role that already
// has a mapping is a precondition failure.
func (s *Service) CreateMapping(ctx context.Context, roleID string, permissionSet any) (api.Result, error) {
	_, err := s.backend.GetByKey(ctx, keys.RolePermission.Partition(), roleID)
	if err == nil {
		return api.Fail(api.MsgMappingExists), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return api.Result{}, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.RolePermission.Partition(),
		SortKey:      roleID,
		Attributes: map[string]any{
			"permissionSet": permissionSet,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.RolePermission, roleID, audit.EventAdd, nil, rec.Attributes)

	return api.OK(api.MsgMappingAdded, mappingFromRecord(rec)), nil
}

// UpdateMapping replaces a role's permission set. The old record is deleted
// and a new one inserted; a crash between the two leaves the mapping absent,
// an accepted at-most-once-overwrite risk.
func (s *Service) UpdateMapping(ctx context.Context, roleID string, permissionSet any) (api.Result, error) {
	current, err := s.backend.GetByKey(ctx, keys.RolePermission.Partition(), roleID)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgMappingNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	if err := s.backend.Delete(ctx, keys.RolePermission.Partition(), roleID); err != nil {
		return api.Result{}, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.RolePermission.Partition(),
		SortKey:      roleID,
		Attributes: map[string]any{
			"permissionSet": permissionSet,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.RolePermission, roleID, audit.EventEdit, current.Attributes, rec.Attributes)

	return api.OK(api.MsgMappingUpdated, mappingFromRecord(rec)), nil
}

// DeleteMapping removes a role's permission set.
func (s *Service) DeleteMapping(ctx context.Context, roleID string) (api.Result, error) {
	current, err := s.backend.GetByKey(ctx, keys.RolePermission.Partition(), roleID)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgMappingNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	if err := s.backend.Delete(ctx, keys.RolePermission.Partition(), roleID); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.RolePermission, roleID, audit.EventDelete, current.Attributes, nil)

	return api.OK(api.MsgMappingDeleted, nil), nil
}

// ListMappings returns one role's mapping, or every mapping when roleID is
// AllMappings.
func (s *Service) ListMappings(ctx context.Context, roleID string) (api.Result, error) {
	if roleID == AllMappings {
		records, err := s.backend.QueryByPartition(ctx, keys.RolePermission.Partition(), store.Query{})
		if err != nil {
			return api.Result{}, err
		}
		list := make([]Mapping, 0, len(records))
		for _, rec := range records {
			list = append(list, mappingFromRecord(rec))
		}
		return api.OK(api.MsgMappingList, list), nil
	}

	rec, err := s.backend.GetByKey(ctx, keys.RolePermission.Partition(), roleID)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgMappingNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}
	return api.OK(api.MsgMappingDetail, mappingFromRecord(*rec)), nil
}

func mappingFromRecord(rec store.Record) Mapping {
	return Mapping{
		RoleID:        rec.SortKey,
		PermissionSet: rec.Attributes["permissionSet"],
		CreatedOn:     rec.CreatedOn,
		UpdatedOn:     rec.UpdatedOn,
	}
}

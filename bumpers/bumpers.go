// Package bumpers implements CRUD for advertising bumpers plus the
// advertiser dependency-data endpoint.
package bumpers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/admix/api"
	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/blob"
	"github.com/jacentio/admix/catalog"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// Bumper is one advertising bumper. Names are stored case-folded and are
// unique across the BUMPERS partition; SequenceNo is assigned on creation
// as the previous maximum plus one.
type Bumper struct {
	ID           string `json:"bumperId"`
	Name         string `json:"bumperName"`
	AdvertiserID string `json:"advertiserId"`
	BrandID      string `json:"brandId"`
	CategoryID   string `json:"categoryId"`
	ProductID    string `json:"productId"`
	Video        string `json:"video"`
	Thumbnail    string `json:"thumbnail"`
	Active       bool   `json:"isActive"`
	SequenceNo   int    `json:"sequenceNo"`
	CreatedOn    string `json:"createdOn"`
	UpdatedOn    string `json:"updatedOn"`
}

// Input carries the caller-supplied bumper fields.
type Input struct {
	Name         string
	AdvertiserID string
	BrandID      string
	CategoryID   string
	ProductID    string
	Video        string
	Thumbnail    string
	Active       bool
}

// Service is the bumper mutation façade.
type Service struct {
	backend  store.Backend
	audit    *audit.Recorder
	blobs    blob.Storage
	resolver *catalog.Resolver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a Service. A nil logger falls back to slog.Default().
func New(backend store.Backend, recorder *audit.Recorder, blobs blob.Storage, resolver *catalog.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  backend,
		audit:    recorder,
		blobs:    blobs,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Add creates a bumper. The sequence number is the previous maximum plus
// one, starting at 1 for the first bumper ever created.
func (s *Service) Add(ctx context.Context, in Input) (api.Result, error) {
	name := strings.ToLower(in.Name)

	existing, err := s.backend.QueryByPartition(ctx, keys.Bumper.Partition(), store.Query{})
	if err != nil {
		return api.Result{}, err
	}

	maxSeq := 0
	for _, rec := range existing {
		if equalFold(rec.Attributes["bumperName"], name) {
			return api.Fail(api.MsgBumperExists), nil
		}
		if seq := sequenceNo(rec); seq > maxSeq {
			maxSeq = seq
		}
	}

	now := s.now().UTC().Format(time.RFC3339)
	rec := store.Record{
		PartitionKey: keys.Bumper.Partition(),
		SortKey:      s.newID(),
		Attributes: map[string]any{
			"bumperName":   name,
			"advertiserId": in.AdvertiserID,
			"brandId":      in.BrandID,
			"categoryId":   in.CategoryID,
			"productId":    in.ProductID,
			"video":        in.Video,
			"thumbnail":    in.Thumbnail,
			"isActive":     in.Active,
			"sequenceNo":   maxSeq + 1,
		},
		CreatedOn: now,
		UpdatedOn: now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.Bumper, rec.SortKey, audit.EventAdd, nil, rec.Attributes)

	return api.OK(api.MsgBumperAdded, bumperFromRecord(rec)), nil
}

// Update replaces a bumper's fields. The new name must not be held by a
// different bumper; the sequence number never changes after creation.
func (s *Service) Update(ctx context.Context, id string, in Input) (api.Result, error) {
	current, err := s.backend.GetByKey(ctx, keys.Bumper.Partition(), id)
	if errors.Is(err, store.ErrNotFound) {
		return api.Fail(api.MsgBumperNotFound), nil
	}
	if err != nil {
		return api.Result{}, err
	}

	name := strings.ToLower(in.Name)
	dupes, err := s.backend.QueryByPartition(ctx, keys.Bumper.Partition(), store.Query{
		Filter: &store.Condition{Field: "bumperName", Value: name},
	})
	if err != nil {
		return api.Result{}, err
	}
	for _, rec := range dupes {
		if rec.SortKey != id {
			return api.Fail(api.MsgBumperExists), nil
		}
	}

	updated := store.Record{
		PartitionKey: keys.Bumper.Partition(),
		SortKey:      id,
		Attributes: map[string]any{
			"bumperName":   name,
			"advertiserId": in.AdvertiserID,
			"brandId":      in.BrandID,
			"categoryId":   in.CategoryID,
			"productId":    in.ProductID,
			"video":        in.Video,
			"thumbnail":    in.Thumbnail,
			"isActive":     in.Active,
			"sequenceNo":   sequenceNo(*current),
		},
		CreatedOn: current.CreatedOn,
		UpdatedOn: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.backend.Put(ctx, updated); err != nil {
		return api.Result{}, err
	}

	s.audit.Record(ctx, keys.Bumper, id, audit.EventEdit, current.Attributes, updated.Attributes)

	return api.OK(api.MsgBumperUpdated, bumperFromRecord(updated)), nil
}

// Delete removes the given bumpers. Media objects are deleted first so a
// removed record never leaves orphaned storage behind; deletes run
// sequentially and a failure stops the batch with earlier deletes standing.
func (s *Service) Delete(ctx context.Context, ids []string) (api.Result, error) {
	for _, id := range ids {
		current, err := s.backend.GetByKey(ctx, keys.Bumper.Partition(), id)
		if errors.Is(err, store.ErrNotFound) {
			return api.Fail(api.MsgBumperNotFound), nil
		}
		if err != nil {
			return api.Result{}, err
		}

		if err := s.deleteMedia(ctx, *current); err != nil {
			return api.Result{}, err
		}

		if err := s.backend.Delete(ctx, keys.Bumper.Partition(), id); err != nil {
			return api.Result{}, err
		}

		s.audit.Record(ctx, keys.Bumper, id, audit.EventDelete, current.Attributes, nil)
	}

	return api.OK(api.MsgBumperDeleted, nil), nil
}

// List returns all bumpers in reverse sort-key order.
func (s *Service) List(ctx context.Context) (api.Result, error) {
	records, err := s.backend.QueryByPartition(ctx, keys.Bumper.Partition(), store.Query{Reverse: true})
	if err != nil {
		return api.Result{}, err
	}

	list := make([]Bumper, 0, len(records))
	for _, rec := range records {
		list = append(list, bumperFromRecord(rec))
	}
	return api.OK(api.MsgBumperList, list), nil
}

// AdvertiserTree resolves the advertiser's brand→category→product tree.
func (s *Service) AdvertiserTree(ctx context.Context, advertiserID string) (api.Result, error) {
	tree, err := s.resolver.AdvertiserTree(ctx, advertiserID)
	if err != nil {
		return api.Result{}, err
	}
	return api.OK(api.MsgTreeFetched, tree), nil
}

func (s *Service) deleteMedia(ctx context.Context, rec store.Record) error {
	for _, field := range []string{"video", "thumbnail"} {
		url, _ := rec.Attributes[field].(string)
		if url == "" {
			continue
		}
		key := blob.ObjectKeyFromURL(url)
		if key == "" {
			s.logger.Warn("skipping media with unparseable url",
				"bumperId", rec.SortKey,
				"field", field,
			)
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func bumperFromRecord(rec store.Record) Bumper {
	b := Bumper{
		ID:         rec.SortKey,
		SequenceNo: sequenceNo(rec),
		CreatedOn:  rec.CreatedOn,
		UpdatedOn:  rec.UpdatedOn,
	}
	if v, ok := rec.Attributes["bumperName"].(string); ok {
		b.Name = v
	}
	if v, ok := rec.Attributes["advertiserId"].(string); ok {
		b.AdvertiserID = v
	}
	if v, ok := rec.Attributes["brandId"].(string); ok {
		b.BrandID = v
	}
	if v, ok := rec.Attributes["categoryId"].(string); ok {
		b.CategoryID = v
	}
	if v, ok := rec.Attributes["productId"].(string); ok {
		b.ProductID = v
	}
	if v, ok := rec.Attributes["video"].(string); ok {
		b.Video = v
	}
	if v, ok := rec.Attributes["thumbnail"].(string); ok {
		b.Thumbnail = v
	}
	if v, ok := rec.Attributes["isActive"].(bool); ok {
		b.Active = v
	}
	return b
}

// sequenceNo reads the stored sequence number, tolerating the float64 shape
// DynamoDB round-trips numbers into.
func sequenceNo(rec store.Record) int {
	switch v := rec.Attributes["sequenceNo"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// equalFold compares a stored name attribute against an already
// case-folded candidate.
func equalFold(stored any, folded string) bool {
	v, ok := stored.(string)
	return ok && strings.ToLower(v) == folded
}

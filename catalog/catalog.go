// Package catalog reconstructs the brand→category→product tree reachable
// from an advertiser.
//
// Relationship rows share the entity table: an owner's id is the partition
// key and each member's id the sort key, so the tree is rebuilt by chained
// partition lookups. Descriptive records live in the BRAND, CATEGORY and
// PRODUCT partitions and are matched by sort key; a missing descriptive
// record degrades to an empty placeholder so the tree shape stays stable.
package catalog

import (
	"context"
	"log/slog"

	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/store"
)

// Brand is one resolved brand slot. Detail is empty when the descriptive
// record is missing from the BRAND partition.
type Brand struct {
	ID     string         `json:"brandId"`
	Detail map[string]any `json:"detail"`
}

// Category is one resolved category, annotated with its owning brand.
type Category struct {
	ID      string         `json:"categoryId"`
	BrandID string         `json:"brandId"`
	Detail  map[string]any `json:"detail"`
}

// Product is one resolved product, annotated with its owning category.
type Product struct {
	ID         string         `json:"productId"`
	CategoryID string         `json:"categoryId"`
	Detail     map[string]any `json:"detail"`
}

// Tree is the advertiser's resolved dependency tree, assembled per request
// and never persisted.
type Tree struct {
	Brands     []Brand    `json:"brands"`
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}

// Resolver performs the three-level fan-out against the entity store.
type Resolver struct {
	backend store.Backend
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default().
func NewResolver(backend store.Backend, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		backend: backend,
		logger:  logger,
	}
}

// AdvertiserTree resolves every brand, category and product reachable from
// the advertiser. An advertiser with no brand-membership rows yields an
// empty tree, never nil, without touching the master partitions. Round
// trips are O(B + C + P) plus the three master partition scans; fan-out
// runs sequentially, parents before children.
func (r *Resolver) AdvertiserTree(ctx context.Context, advertiserID string) (*Tree, error) {
	tree := &Tree{
		Brands:     []Brand{},
		Categories: []Category{},
		Products:   []Product{},
	}

	brandRows, err := r.backend.QueryByPartition(ctx, keys.Membership(advertiserID), store.Query{})
	if err != nil {
		return nil, err
	}
	if len(brandRows) == 0 {
		return tree, nil
	}

	brandMaster, err := r.master(ctx, keys.Brand)
	if err != nil {
		return nil, err
	}
	categoryMaster, err := r.master(ctx, keys.Category)
	if err != nil {
		return nil, err
	}
	productMaster, err := r.master(ctx, keys.Product)
	if err != nil {
		return nil, err
	}

	for _, brandRow := range brandRows {
		brandID := brandRow.SortKey
		tree.Brands = append(tree.Brands, Brand{
			ID:     brandID,
			Detail: detailOrEmpty(brandMaster, brandID),
		})

		categoryRows, err := r.backend.QueryByPartition(ctx, keys.Membership(brandID), store.Query{})
		if err != nil {
			return nil, err
		}
		for _, categoryRow := range categoryRows {
			categoryID := categoryRow.SortKey
			tree.Categories = append(tree.Categories, Category{
				ID:      categoryID,
				BrandID: brandID,
				Detail:  detailOrEmpty(categoryMaster, categoryID),
			})

			productRows, err := r.backend.QueryByPartition(ctx, keys.Membership(categoryID), store.Query{})
			if err != nil {
				return nil, err
			}
			for _, productRow := range productRows {
				productID := productRow.SortKey
				tree.Products = append(tree.Products, Product{
					ID:         productID,
					CategoryID: categoryID,
					Detail:     detailOrEmpty(productMaster, productID),
				})
			}
		}
	}

	r.logger.Debug("resolved advertiser tree",
		"advertiserId", advertiserID,
		"brands", len(tree.Brands),
		"categories", len(tree.Categories),
		"products", len(tree.Products),
	)

	return tree, nil
}

// master loads a descriptive partition once, keyed by sort key.
func (r *Resolver) master(ctx context.Context, kind keys.Kind) (map[string]map[string]any, error) {
	records, err := r.backend.QueryByPartition(ctx, kind.Partition(), store.Query{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]map[string]any, len(records))
	for _, rec := range records {
		byID[rec.SortKey] = rec.Attributes
	}
	return byID, nil
}

func detailOrEmpty(master map[string]map[string]any, id string) map[string]any {
	if detail, ok := master[id]; ok {
		return detail
	}
	return map[string]any{}
}

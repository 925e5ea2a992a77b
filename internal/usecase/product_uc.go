package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
)

const productSnapshotPrefix = "retailer-product-"

// ProductUC serves product detail. Session is the browser-session scope
// holding snapshots of products seen in listings.
type ProductUC struct {
	Products domain.ProductAPI
	Session  domain.KVStore
}

func (uc *ProductUC) Get(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ValidationError("product id is required")
	}
	p, err := uc.Products.GetProduct(ctx, id)
	if err == nil {
		return p, nil
	}
	log.Warn().Err(err).Str("product_id", id).Msg("product fetch failed, trying snapshot")

	if uc.Session != nil {
		var snap domain.Product
		if ok, serr := storage.GetJSON(ctx, uc.Session, productSnapshotPrefix+id, &snap); serr == nil && ok && snap.ID != "" {
			return &snap, nil
		}
	}
	return nil, domain.NewUserMessage("Failed to load product details. Please try again.", domain.SeverityError, err)
}

// Remember caches listing snapshots for the detail fallback.
func (uc *ProductUC) Remember(ctx context.Context, products []domain.Product) {
	if uc == nil || uc.Session == nil {
		return
	}
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if err := storage.SetJSON(ctx, uc.Session, productSnapshotPrefix+p.ID, p); err != nil {
			log.Warn().Err(err).Str("product_id", p.ID).Msg("snapshot not cached")
			return
		}
	}
}

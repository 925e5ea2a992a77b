package usecase

import (
	"context"
	"sync"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

const KeyWishlist = "retailer-wishlist"

// WishlistUC stores full product snapshots in the durable scope, at most
// one per product id.
type WishlistUC struct {
	Store  domain.KVStore
	Bag    *BagUC
	Toasts *events.Bus[events.Toast]

	mu sync.Mutex
}

func dedupe(products []domain.Product) []domain.Product {
	seen := domain.Set[string]{}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" || seen.Has(p.ID) {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (uc *WishlistUC) load(ctx context.Context) ([]domain.Product, error) {
	var raw []domain.Product
	if _, err := storage.GetJSON(ctx, uc.Store, KeyWishlist, &raw); err != nil {
		return nil, err
	}
	return dedupe(raw), nil
}

func (uc *WishlistUC) save(ctx context.Context, items []domain.Product) error {
	return storage.SetJSON(ctx, uc.Store, KeyWishlist, dedupe(items))
}

func (uc *WishlistUC) Items(ctx context.Context) ([]domain.Product, error) {
	return uc.load(ctx)
}

func (uc *WishlistUC) Contains(ctx context.Context, id string) (bool, error) {
	items, err := uc.load(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range items {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Toggle adds the product when absent and removes it otherwise. It
// reports whether the product is now saved.
func (uc *WishlistUC) Toggle(ctx context.Context, p domain.Product) (bool, error) {
	if p.ID == "" {
		return false, nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return false, err
	}
	for i, it := range items {
		if it.ID == p.ID {
			items = append(items[:i], items[i+1:]...)
			return false, uc.save(ctx, items)
		}
	}
	return true, uc.save(ctx, append(items, p))
}

func (uc *WishlistUC) Remove(ctx context.Context, id string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return uc.save(ctx, kept)
}

// AddMany saves products not already present, keeping existing snapshots.
func (uc *WishlistUC) AddMany(ctx context.Context, products []domain.Product) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	return uc.save(ctx, append(items, products...))
}

// MoveToBag adds one unit to the bag and drops the product from the
// wishlist.
func (uc *WishlistUC) MoveToBag(ctx context.Context, p domain.Product) error {
	if p.ID == "" {
		return nil
	}
	if err := uc.Bag.Add(ctx, p, 1); err != nil {
		return err
	}
	if err := uc.Remove(ctx, p.ID); err != nil {
		return err
	}
	events.Notify(uc.Toasts, "Added to cart", domain.SeveritySuccess)
	return nil
}

// MoveToBagByID resolves the saved snapshot first.
func (uc *WishlistUC) MoveToBagByID(ctx context.Context, id string) error {
	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	for _, p := range items {
		if p.ID == id {
			return uc.MoveToBag(ctx, p)
		}
	}
	return domain.ErrNotFound
}

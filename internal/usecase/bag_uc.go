package usecase

import (
	"context"
	"math"
	"sync"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

const KeyBag = "retailer-bag"

// BagUC is one visitor's bag in the durable scope. Every write publishes
// BagChanged so other views of the same visitor resync.
type BagUC struct {
	Store     domain.KVStore
	Bus       *events.Bus[domain.BagChanged]
	VisitorID string

	mu sync.Mutex
}

// Quantity coerces a raw input: non-finite values become 1, fractions are
// truncated.
func Quantity(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}

func (uc *BagUC) load(ctx context.Context) ([]domain.BagItem, error) {
	var raw []domain.BagItem
	if _, err := storage.GetJSON(ctx, uc.Store, KeyBag, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.BagItem, 0, len(raw))
	for _, it := range raw {
		if it.ID == "" {
			continue
		}
		it.Quantity = max(1, it.Quantity)
		out = append(out, it)
	}
	return out, nil
}

func (uc *BagUC) save(ctx context.Context, items []domain.BagItem) error {
	if items == nil {
		items = []domain.BagItem{}
	}
	if err := storage.SetJSON(ctx, uc.Store, KeyBag, items); err != nil {
		return err
	}
	if uc.Bus != nil {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		uc.Bus.Publish(domain.BagChanged{VisitorID: uc.VisitorID, IDs: ids})
	}
	return nil
}

func (uc *BagUC) Items(ctx context.Context) ([]domain.BagItem, error) {
	return uc.load(ctx)
}

func (uc *BagUC) Count(ctx context.Context) (int, error) {
	items, err := uc.load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n, nil
}

// Add merges by product id. Existing entries take the new snapshot and
// max(1, existing+qty); new entries start at max(1, qty).
func (uc *BagUC) Add(ctx context.Context, p domain.Product, qty int) error {
	if p.ID == "" {
		return nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == p.ID {
			items[i] = domain.BagItem{Product: p, Quantity: max(1, items[i].Quantity+qty)}
			return uc.save(ctx, items)
		}
	}
	items = append(items, domain.BagItem{Product: p, Quantity: max(1, qty)})
	return uc.save(ctx, items)
}

func (uc *BagUC) SetQuantity(ctx context.Context, id string, qty int) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = max(1, qty)
		}
	}
	return uc.save(ctx, items)
}

// Remove drops the given ids; absent ids are ignored.
func (uc *BagUC) Remove(ctx context.Context, ids ...string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	items, err := uc.load(ctx)
	if err != nil {
		return err
	}
	drop := domain.NewSet(ids...)
	kept := items[:0]
	for _, it := range items {
		if !drop.Has(it.ID) {
			kept = append(kept, it)
		}
	}
	return uc.save(ctx, kept)
}

// Selected returns the bag items whose ids are in sel, in bag order.
func (uc *BagUC) Selected(ctx context.Context, sel *Selection) ([]domain.BagItem, error) {
	items, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BagItem, 0, len(items))
	for _, it := range items {
		if sel.Has(it.ID) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Selection is the transient set of bag ids picked for checkout.
type Selection struct {
	mu  sync.Mutex
	ids domain.Set[string]
}

func NewSelection() *Selection { return &Selection{ids: domain.Set[string]{}} }

func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.Toggle(id)
}

// ToggleAll selects every id unless all are already selected, in which
// case it clears the selection.
func (s *Selection) ToggleAll(all []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	every := len(all) > 0
	for _, id := range all {
		if !s.ids.Has(id) {
			every = false
			break
		}
	}
	if every {
		s.ids = domain.Set[string]{}
		return
	}
	s.ids = domain.NewSet(all...)
}

// Prune keeps only ids still present in the bag.
func (s *Selection) Prune(present []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := domain.NewSet(present...)
	for id := range s.ids {
		if !keep.Has(id) {
			delete(s.ids, id)
		}
	}
}

func (s *Selection) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Has(id)
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Sorted()
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = domain.Set[string]{}
}

// Follow prunes the selection on every BagChanged of visitorID. The
// returned func unsubscribes.
func (s *Selection) Follow(bus *events.Bus[domain.BagChanged], visitorID string) func() {
	return bus.Subscribe(func(e domain.BagChanged) {
		if e.VisitorID == visitorID {
			s.Prune(e.IDs)
		}
	})
}

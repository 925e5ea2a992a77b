package usecase

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/quickcart/internal/adapters/storage/memory"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

func newBag() (*BagUC, *events.Bus[domain.BagChanged]) {
	bus := events.NewBus[domain.BagChanged]()
	return &BagUC{Store: memory.New(), Bus: bus, VisitorID: "v1"}, bus
}

func TestBagAddMerges(t *testing.T) {
	ctx := context.Background()
	bag, _ := newBag()

	require.NoError(t, bag.Add(ctx, product("p1", 100, 150), 2))
	require.NoError(t, bag.Add(ctx, product("p1", 90, 150), 3))
	require.NoError(t, bag.Add(ctx, product("p2", 50, 50), 0))
	require.NoError(t, bag.Add(ctx, domain.Product{Name: "no id"}, 4))

	items, err := bag.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[0].Price.Equal(product("p1", 90, 150).Price))
	assert.Equal(t, 1, items[1].Quantity)

	n, err := bag.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestBagSetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	bag, _ := newBag()
	require.NoError(t, bag.Add(ctx, product("p1", 100, 100), 1))
	require.NoError(t, bag.Add(ctx, product("p2", 100, 100), 1))

	require.NoError(t, bag.SetQuantity(ctx, "p1", -4))
	require.NoError(t, bag.SetQuantity(ctx, "p2", Quantity(math.NaN())))
	items, err := bag.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)

	for range 2 {
		require.NoError(t, bag.Remove(ctx, "p1"))
		items, err = bag.Items(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "p2", items[0].ID)
	}
	require.NoError(t, bag.Remove(ctx, "absent"))
}

func TestQuantityCoercion(t *testing.T) {
	assert.Equal(t, 1, Quantity(math.Inf(1)))
	assert.Equal(t, 1, Quantity(math.NaN()))
	assert.Equal(t, 2, Quantity(2.7))
}

func TestSelectionFollowsBag(t *testing.T) {
	ctx := context.Background()
	bag, bus := newBag()
	sel := NewSelection()
	unsub := sel.Follow(bus, "v1")
	defer unsub()

	require.NoError(t, bag.Add(ctx, product("p1", 1, 1), 1))
	require.NoError(t, bag.Add(ctx, product("p2", 1, 1), 1))
	sel.ToggleAll([]string{"p1", "p2"})
	assert.Equal(t, []string{"p1", "p2"}, sel.IDs())

	bus.Publish(domain.BagChanged{VisitorID: "other", IDs: nil})
	assert.Equal(t, 2, sel.Len())

	require.NoError(t, bag.Remove(ctx, "p1"))
	assert.Equal(t, []string{"p2"}, sel.IDs())

	require.NoError(t, bag.Remove(ctx, "p2"))
	assert.Zero(t, sel.Len())
}

func TestSelectionToggleAll(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("a")
	sel.ToggleAll([]string{"a", "b"})
	assert.Equal(t, 2, sel.Len())
	sel.ToggleAll([]string{"a", "b"})
	assert.Zero(t, sel.Len())
}

func TestWishlist(t *testing.T) {
	ctx := context.Background()
	bag, _ := newBag()
	toasts := events.NewBus[events.Toast]()
	seen := recordToasts(toasts)
	wl := &WishlistUC{Store: memory.New(), Bag: bag, Toasts: toasts}

	saved, err := wl.Toggle(ctx, product("p1", 10, 10))
	require.NoError(t, err)
	assert.True(t, saved)
	require.NoError(t, wl.AddMany(ctx, []domain.Product{product("p1", 5, 5), product("p2", 10, 10), product("p2", 1, 1)}))

	items, err := wl.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(product("p1", 10, 10).Price), "existing snapshot kept")

	require.NoError(t, wl.MoveToBagByID(ctx, "p2"))
	ok, err := wl.Contains(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := bag.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Added to cart", seen.last().Message)

	saved, err = wl.Toggle(ctx, product("p1", 10, 10))
	require.NoError(t, err)
	assert.False(t, saved)
	items, err = wl.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

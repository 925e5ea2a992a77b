package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/quickcart/internal/adapters/storage/memory"
	"github.com/phenrril/quickcart/internal/domain"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not settle")
	}
}

func TestFilterQueryOpenBandWithSliderCap(t *testing.T) {
	f := domain.NewFilterState()
	TogglePriceBand(domain.Band5000Plus)(&f)
	ApplyPriceSlider(3000)(&f)

	q := FilterQuery(f)
	assert.Equal(t, "5000", q.Get("minPrice"))
	assert.Equal(t, "3000", q.Get("maxPrice"))
}

func TestFilterQueryFields(t *testing.T) {
	f := domain.NewFilterState()
	ToggleCategory("shoes")(&f)
	ToggleCategory("bags")(&f)
	ToggleBrand("Acme")(&f)
	TogglePriceBand(domain.BandUnder1000)(&f)
	TogglePriceBand(domain.Band1000To3000)(&f)
	ToggleRating(3)(&f)
	ToggleRating(4)(&f)
	SetAvailability(domain.Availability{InStock: true})(&f)

	q := FilterQuery(f)
	assert.Equal(t, "bags,shoes", q.Get("category"))
	assert.Equal(t, "Acme", q.Get("brand"))
	assert.Equal(t, "3000", q.Get("maxPrice"))
	assert.Equal(t, "3", q.Get("rating"))
	assert.Equal(t, "true", q.Get("inStock"))

	SetAvailability(domain.Availability{InStock: true, OutOfStock: true})(&f)
	assert.Empty(t, FilterQuery(f).Get("inStock"))

	SetSort(domain.SortPriceHigh)(&f)
	SetPage(2)(&f)
	lq := ListQuery(f)
	assert.Equal(t, "2", lq.Get("page"))
	assert.Equal(t, "12", lq.Get("size"))
	assert.Equal(t, "price,desc", lq.Get("sort"))
}

func TestSliderAtMaxClearsCap(t *testing.T) {
	f := domain.NewFilterState()
	ApplyPriceSlider(2500)(&f)
	require.NotNil(t, f.AppliedPriceMax)
	ApplyPriceSlider(domain.PriceSliderMax)(&f)
	assert.Nil(t, f.AppliedPriceMax)
}

func TestSliderClampsToMinimum(t *testing.T) {
	for _, v := range []int{-50, 0, domain.PriceSliderMin - 1} {
		f := domain.NewFilterState()
		ApplyPriceSlider(v)(&f)
		require.NotNil(t, f.AppliedPriceMax)
		assert.Equal(t, domain.PriceSliderMin, *f.AppliedPriceMax)
		assert.Equal(t, "100", FilterQuery(f).Get("maxPrice"))
	}
}

func TestDiscountMaxThresholdWins(t *testing.T) {
	products := []domain.Product{
		product("a", 40, 100),
		product("b", 85, 100),
		product("c", 100, 0),
		product("d", 50, 100),
	}
	both := FilterByDiscount(products, domain.NewSet(50, 10))
	only := FilterByDiscount(products, domain.NewSet(50))
	assert.Equal(t, only, both)
	require.Len(t, only, 2)
	assert.Equal(t, "a", only[0].ID)
	assert.Equal(t, "d", only[1].ID)
}

func TestRangeLabelAndTopBrands(t *testing.T) {
	assert.Equal(t, "1-12 of 30 items", RangeLabel(0, 30))
	assert.Equal(t, "25-30 of 30 items", RangeLabel(2, 30))
	assert.Equal(t, "0 items", RangeLabel(0, 0))

	var brands []domain.BrandFacet
	for i := range 12 {
		brands = append(brands, domain.BrandFacet{Name: string(rune('A' + i)), Count: i % 3})
	}
	top := TopBrands(brands)
	require.Len(t, top, 10)
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, "C", top[0].Name)
}

func TestGroupBrands(t *testing.T) {
	groups := GroupBrands([]domain.BrandFacet{{Name: "apple"}, {Name: "Acme"}, {Name: "Bolt"}, {Name: "9lives"}}, "a")
	require.NotEmpty(t, groups)
	assert.Equal(t, "A", groups[0].Letter)
	for _, g := range groups {
		for _, b := range g.Brands {
			assert.Contains(t, []string{"apple", "Acme"}, b.Name)
		}
	}
}

func TestBrowserPageResetsOnFilterChange(t *testing.T) {
	ctx := context.Background()
	api := &fakeProducts{list: func(url.Values) (*domain.ProductPage, error) {
		return &domain.ProductPage{TotalPages: 5, TotalElements: 60}, nil
	}}
	b := NewBrowser(api, nil)

	wait(t, b.Apply(ctx))
	wait(t, b.Apply(ctx, SetPage(3)))
	before := b.Filters()
	assert.Equal(t, 3, before.Page)

	wait(t, b.Apply(ctx, ToggleBrand("Acme")))
	after := b.Filters()
	assert.Equal(t, 0, after.Page)
	assert.True(t, after.Brands.Has("Acme"))

	wait(t, b.Apply(ctx, SetPage(2)))
	paged := b.Filters()
	assert.True(t, after.SameExceptPage(paged))
}

func TestBrowserPageOnlyChangeSkipsFacets(t *testing.T) {
	ctx := context.Background()
	api := &fakeProducts{list: func(url.Values) (*domain.ProductPage, error) {
		return &domain.ProductPage{TotalPages: 3}, nil
	}}
	b := NewBrowser(api, nil)
	wait(t, b.Apply(ctx))
	require.Equal(t, 1, api.facetCalls())

	wait(t, b.NextPage(ctx))
	assert.Equal(t, 2, api.listCalls())
	assert.Equal(t, 1, api.facetCalls())

	wait(t, b.Apply(ctx, SetSort(domain.SortRating)))
	assert.Equal(t, 1, api.facetCalls())

	wait(t, b.Apply(ctx, ToggleCategory("shoes")))
	assert.Equal(t, 2, api.facetCalls())
}

func TestBrowserStaleListDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	api := &fakeProducts{list: func(q url.Values) (*domain.ProductPage, error) {
		if q.Get("brand") == "" {
			<-release
			return &domain.ProductPage{Content: []domain.Product{product("stale", 1, 1)}, TotalPages: 1}, nil
		}
		return &domain.ProductPage{Content: []domain.Product{product("fresh", 1, 1)}, TotalPages: 1}, nil
	}}
	b := NewBrowser(api, nil)

	first := b.Apply(ctx)
	wait(t, b.Apply(ctx, ToggleBrand("Acme")))
	close(release)
	wait(t, first)

	v := b.View()
	require.Len(t, v.Products, 1)
	assert.Equal(t, "fresh", v.Products[0].ID)
	assert.Equal(t, v.Revision, v.ListRevision)
}

func TestBrowserListErrorAndSnapshots(t *testing.T) {
	ctx := context.Background()
	fail := true
	api := &fakeProducts{list: func(url.Values) (*domain.ProductPage, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &domain.ProductPage{Content: []domain.Product{product("p1", 10, 20)}, TotalPages: 1}, nil
	}}
	session := memory.New()
	b := NewBrowser(api, &ProductUC{Products: api, Session: session})

	wait(t, b.Apply(ctx))
	assert.Equal(t, loadProductsFailed, b.View().Error)

	fail = false
	wait(t, b.Apply(ctx, ToggleBrand("x")))
	v := b.View()
	assert.Empty(t, v.Error)
	assert.Len(t, v.Products, 1)

	uc := &ProductUC{Products: api, Session: session}
	p, err := uc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = uc.Get(ctx, "missing")
	var um *domain.UserMessage
	require.ErrorAs(t, err, &um)
	assert.Equal(t, "Failed to load product details. Please try again.", um.Text)
}

func TestBrowserBrandsRestrictedByCategory(t *testing.T) {
	ctx := context.Background()
	shoe := product("s1", 10, 10)
	shoe.Brand, shoe.Category = "Stride", domain.Category{Slug: "shoes"}
	bag := product("b1", 10, 10)
	bag.Brand, bag.Category = "Tote", domain.Category{Slug: "bags"}

	api := &fakeProducts{
		list: func(url.Values) (*domain.ProductPage, error) {
			return &domain.ProductPage{Content: []domain.Product{shoe, bag}, TotalPages: 1}, nil
		},
		facets: func(url.Values) (*domain.Facets, error) {
			return &domain.Facets{Brands: []domain.BrandFacet{{Name: "Stride", Count: 1}, {Name: "Tote", Count: 1}}}, nil
		},
	}
	b := NewBrowser(api, nil)
	wait(t, b.Apply(ctx))
	assert.Len(t, b.View().Brands, 2)

	wait(t, b.Apply(ctx, ToggleCategory("shoes")))
	brands := b.View().Brands
	require.Len(t, brands, 1)
	assert.Equal(t, "Stride", brands[0].Name)
}

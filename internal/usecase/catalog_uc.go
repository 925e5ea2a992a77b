package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/domain"
)

const loadProductsFailed = "Failed to load products. Please try again."

// CatalogView is the render state of the product listing.
type CatalogView struct {
	Filters       domain.FilterState     `json:"filters"`
	Products      []domain.Product       `json:"products"`
	Page          int                    `json:"page"`
	TotalPages    int                    `json:"totalPages"`
	TotalElements int                    `json:"totalElements"`
	RangeLabel    string                 `json:"rangeLabel"`
	Loading       bool                   `json:"loading"`
	FacetsLoading bool                   `json:"facetsLoading"`
	Error         string                 `json:"error,omitempty"`
	Categories    []domain.CategoryFacet `json:"categories"`
	Brands        []domain.BrandFacet    `json:"brands"`
	MoreBrands    int                    `json:"moreBrands"`
	Revision      uint64                 `json:"revision"`
	ListRevision  uint64                 `json:"listRevision"`
	FacetRevision uint64                 `json:"facetRevision"`
}

// Browser holds one session's catalog state. The list and facet fetches
// are independent effects; each keeps a generation counter and a result
// is applied only if no newer fetch of the same effect has started.
type Browser struct {
	products  domain.ProductAPI
	snapshots *ProductUC

	mu             sync.Mutex
	filters        domain.FilterState
	started        bool
	rev            uint64
	listGen        uint64
	facetGen       uint64
	listRev        uint64
	facetRev       uint64
	page           domain.ProductPage
	facets         domain.Facets
	categoryBrands map[string]domain.Set[string]
	loading        bool
	facetsLoading  bool
	err            string
}

func NewBrowser(products domain.ProductAPI, snapshots *ProductUC) *Browser {
	return &Browser{
		products:       products,
		snapshots:      snapshots,
		filters:        domain.NewFilterState(),
		page:           domain.ProductPage{TotalPages: 1},
		categoryBrands: map[string]domain.Set[string]{},
	}
}

func (b *Browser) Filters() domain.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters.Clone()
}

// Apply mutates the filter state and starts the fetches it implies. Any
// change besides the page resets the page to 0. The first call always
// fetches. The returned channel closes once the started fetches settle.
func (b *Browser) Apply(ctx context.Context, mutate ...func(*domain.FilterState)) <-chan struct{} {
	done := make(chan struct{})

	b.mu.Lock()
	prev := b.filters
	next := b.filters.Clone()
	for _, m := range mutate {
		m(&next)
	}
	if !next.SortBy.Valid() {
		next.SortBy = domain.SortRecommended
	}
	next.Page = max(0, next.Page)
	if !prev.SameExceptPage(next) {
		next.Page = 0
	}

	listNeeded := !b.started || !prev.SameExceptPage(next) || prev.Page != next.Page
	facetNeeded := !b.started || !prev.SameFacetInputs(next)
	b.filters = next
	if !listNeeded {
		b.mu.Unlock()
		close(done)
		return done
	}
	b.started = true
	b.rev++
	rev := b.rev

	ctx = context.WithoutCancel(ctx)
	var wg sync.WaitGroup

	b.listGen++
	b.loading = true
	b.err = ""
	wg.Add(1)
	go b.fetchList(ctx, &wg, b.listGen, rev, next.Clone())

	if facetNeeded {
		b.facetGen++
		b.facetsLoading = true
		wg.Add(1)
		go b.fetchFacets(ctx, &wg, b.facetGen, rev, next.Clone())
	}
	b.mu.Unlock()

	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (b *Browser) fetchList(ctx context.Context, wg *sync.WaitGroup, gen, rev uint64, f domain.FilterState) {
	defer wg.Done()
	page, err := b.products.ListProducts(ctx, ListQuery(f))

	b.mu.Lock()
	if gen != b.listGen {
		b.mu.Unlock()
		log.Debug().Uint64("gen", gen).Msg("discarding superseded product list")
		return
	}
	b.loading = false
	if err != nil {
		b.err = loadProductsFailed
		b.mu.Unlock()
		log.Error().Err(err).Uint64("rev", rev).Msg("product list fetch failed")
		return
	}
	b.page = *page
	if b.page.TotalPages < 1 {
		b.page.TotalPages = 1
	}
	b.listRev = rev
	b.mergeCategoryBrands(page.Content)
	b.mu.Unlock()

	b.snapshots.Remember(ctx, page.Content)
}

func (b *Browser) mergeCategoryBrands(products []domain.Product) {
	for _, p := range products {
		if p.Category.Slug == "" || p.Brand == "" {
			continue
		}
		set, ok := b.categoryBrands[p.Category.Slug]
		if !ok {
			set = domain.Set[string]{}
			b.categoryBrands[p.Category.Slug] = set
		}
		set[p.Brand] = struct{}{}
	}
}

func (b *Browser) fetchFacets(ctx context.Context, wg *sync.WaitGroup, gen, rev uint64, f domain.FilterState) {
	defer wg.Done()
	facets, err := b.products.ProductFacets(ctx, FilterQuery(f))

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.facetGen {
		return
	}
	b.facetsLoading = false
	if err != nil {
		log.Warn().Err(err).Uint64("rev", rev).Msg("facet fetch failed, keeping previous facets")
		return
	}
	b.facets = *facets
	b.facetRev = rev
}

// brandOptions restricts facet brands to those seen in the selected
// categories.
func (b *Browser) brandOptions() []domain.BrandFacet {
	if len(b.filters.Categories) == 0 {
		return b.facets.Brands
	}
	allowed := domain.Set[string]{}
	for slug := range b.filters.Categories {
		for brand := range b.categoryBrands[slug] {
			allowed[brand] = struct{}{}
		}
	}
	out := make([]domain.BrandFacet, 0, len(b.facets.Brands))
	for _, br := range b.facets.Brands {
		if allowed.Has(br.Name) {
			out = append(out, br)
		}
	}
	return out
}

func (b *Browser) View() CatalogView {
	b.mu.Lock()
	defer b.mu.Unlock()

	products := FilterByDiscount(b.page.Content, b.filters.DiscountTiers)
	products = ClientSort(products, b.filters.SortBy)
	if products == nil {
		products = []domain.Product{}
	}
	options := b.brandOptions()
	top := TopBrands(options)
	categories := b.facets.Categories
	if categories == nil {
		categories = []domain.CategoryFacet{}
	}
	return CatalogView{
		Filters:       b.filters.Clone(),
		Products:      products,
		Page:          b.filters.Page,
		TotalPages:    b.page.TotalPages,
		TotalElements: b.page.TotalElements,
		RangeLabel:    RangeLabel(b.filters.Page, b.page.TotalElements),
		Loading:       b.loading,
		FacetsLoading: b.facetsLoading,
		Error:         b.err,
		Categories:    categories,
		Brands:        top,
		MoreBrands:    len(options) - len(top),
		Revision:      b.rev,
		ListRevision:  b.listRev,
		FacetRevision: b.facetRev,
	}
}

// BrandOverlay lists every brand option matching query, grouped by letter.
func (b *Browser) BrandOverlay(query string) []BrandGroup {
	b.mu.Lock()
	options := b.brandOptions()
	b.mu.Unlock()
	return GroupBrands(options, query)
}

// NextPage and PrevPage clamp to the known page range.
func (b *Browser) NextPage(ctx context.Context) <-chan struct{} {
	b.mu.Lock()
	p := min(b.filters.Page+1, max(0, b.page.TotalPages-1))
	b.mu.Unlock()
	return b.Apply(ctx, SetPage(p))
}

func (b *Browser) PrevPage(ctx context.Context) <-chan struct{} {
	b.mu.Lock()
	p := max(b.filters.Page-1, 0)
	b.mu.Unlock()
	return b.Apply(ctx, SetPage(p))
}

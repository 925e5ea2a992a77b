package domain

import (
	"cmp"
	"maps"
	"slices"
)

const (
	PageSize       = 12
	PriceSliderMin = 100
	PriceSliderMax = 10000
)

type Set[T cmp.Ordered] map[T]struct{}

func NewSet[T cmp.Ordered](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Toggle adds v when absent and removes it otherwise.
func (s Set[T]) Toggle(v T) {
	if _, ok := s[v]; ok {
		delete(s, v)
		return
	}
	s[v] = struct{}{}
}

func (s Set[T]) Sorted() []T {
	return slices.Sorted(maps.Keys(s))
}

func (s Set[T]) Clone() Set[T] {
	if s == nil {
		return Set[T]{}
	}
	return maps.Clone(s)
}

func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

type PriceBand string

const (
	BandUnder1000  PriceBand = "under-1000"
	Band1000To3000 PriceBand = "1000-3000"
	Band3000To5000 PriceBand = "3000-5000"
	Band5000Plus   PriceBand = "5000+"
)

// Bounds returns the band's lower and upper bound; a nil upper bound means
// the band is open-ended. Unknown bands have no bounds at all.
func (b PriceBand) Bounds() (lo, hi *int, known bool) {
	n := func(v int) *int { return &v }
	switch b {
	case BandUnder1000:
		return n(0), n(1000), true
	case Band1000To3000:
		return n(1000), n(3000), true
	case Band3000To5000:
		return n(3000), n(5000), true
	case Band5000Plus:
		return n(5000), nil, true
	}
	return nil, nil, false
}

var (
	RatingThresholds = []int{4, 3, 2}
	DiscountTiers    = []int{10, 20, 30, 50}
)

type SortKey string

const (
	SortRecommended SortKey = "recommended"
	SortPriceLow    SortKey = "priceLow"
	SortPriceHigh   SortKey = "priceHigh"
	SortRating      SortKey = "rating"
	SortNewest      SortKey = "newest"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortRecommended, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	}
	return false
}

type Availability struct {
	InStock    bool `json:"inStock"`
	OutOfStock bool `json:"outOfStock"`
}

// FilterState is the composite catalog filter. Only user filter, sort and
// page interactions mutate it.
type FilterState struct {
	Categories      Set[string]    `json:"categories"`
	Brands          Set[string]    `json:"brands"`
	PriceBands      Set[PriceBand] `json:"priceBands"`
	AppliedPriceMax *int           `json:"appliedPriceMax"`
	Ratings         Set[int]       `json:"ratings"`
	DiscountTiers   Set[int]       `json:"discountTiers"`
	Availability    Availability   `json:"availability"`
	SortBy          SortKey        `json:"sortBy"`
	Page            int            `json:"page"`
}

func NewFilterState() FilterState {
	return FilterState{
		Categories:    Set[string]{},
		Brands:        Set[string]{},
		PriceBands:    Set[PriceBand]{},
		Ratings:       Set[int]{},
		DiscountTiers: Set[int]{},
		SortBy:        SortRecommended,
	}
}

func (f FilterState) Clone() FilterState {
	out := f
	out.Categories = f.Categories.Clone()
	out.Brands = f.Brands.Clone()
	out.PriceBands = f.PriceBands.Clone()
	out.Ratings = f.Ratings.Clone()
	out.DiscountTiers = f.DiscountTiers.Clone()
	if f.AppliedPriceMax != nil {
		v := *f.AppliedPriceMax
		out.AppliedPriceMax = &v
	}
	if out.SortBy == "" {
		out.SortBy = SortRecommended
	}
	return out
}

// SameFacetInputs reports whether both states send the same facet query,
// i.e. everything except sort, page and the client-side discount tiers.
func (f FilterState) SameFacetInputs(o FilterState) bool {
	return f.Categories.Equal(o.Categories) &&
		f.Brands.Equal(o.Brands) &&
		f.PriceBands.Equal(o.PriceBands) &&
		f.Ratings.Equal(o.Ratings) &&
		f.Availability == o.Availability &&
		eqIntPtr(f.AppliedPriceMax, o.AppliedPriceMax)
}

// SameExceptPage reports whether only the page differs (or nothing).
func (f FilterState) SameExceptPage(o FilterState) bool {
	return f.SameFacetInputs(o) && f.DiscountTiers.Equal(o.DiscountTiers) && f.SortBy == o.SortBy
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

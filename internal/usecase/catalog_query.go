package usecase

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/phenrril/quickcart/internal/domain"
)

const brandOptionsLimit = 10

var sortParams = map[domain.SortKey]string{
	domain.SortPriceLow:  "price,asc",
	domain.SortPriceHigh: "price,desc",
	domain.SortRating:    "rating,desc",
	domain.SortNewest:    "createdAt,desc",
}

// FilterQuery encodes the filter fields shared by the list and facet calls.
func FilterQuery(f domain.FilterState) url.Values {
	q := url.Values{}
	if len(f.Categories) > 0 {
		q.Set("category", strings.Join(f.Categories.Sorted(), ","))
	}
	if len(f.Brands) > 0 {
		q.Set("brand", strings.Join(f.Brands.Sorted(), ","))
	}

	var maxPrice *int
	if len(f.PriceBands) > 0 {
		var minPrice *int
		open := false
		for _, band := range f.PriceBands.Sorted() {
			lo, hi, known := band.Bounds()
			if !known {
				continue
			}
			if lo != nil && (minPrice == nil || *lo < *minPrice) {
				minPrice = lo
			}
			if hi == nil {
				open = true
			} else if maxPrice == nil || *hi > *maxPrice {
				maxPrice = hi
			}
		}
		if open {
			maxPrice = nil
		}
		if minPrice != nil {
			q.Set("minPrice", strconv.Itoa(*minPrice))
		}
	}
	if f.AppliedPriceMax != nil {
		v := *f.AppliedPriceMax
		if maxPrice == nil || v < *maxPrice {
			maxPrice = &v
		}
	}
	if maxPrice != nil {
		q.Set("maxPrice", strconv.Itoa(*maxPrice))
	}

	if len(f.Ratings) > 0 {
		q.Set("rating", strconv.Itoa(f.Ratings.Sorted()[0]))
	}
	if f.Availability.InStock != f.Availability.OutOfStock {
		q.Set("inStock", strconv.FormatBool(f.Availability.InStock))
	}
	return q
}

// ListQuery is FilterQuery plus paging and the server sort key.
func ListQuery(f domain.FilterState) url.Values {
	q := FilterQuery(f)
	q.Set("page", strconv.Itoa(max(0, f.Page)))
	q.Set("size", strconv.Itoa(domain.PageSize))
	if s, ok := sortParams[f.SortBy]; ok {
		q.Set("sort", s)
	}
	return q
}

// FilterByDiscount keeps products discounted by at least the largest
// selected tier. Products without a positive mrp never match.
func FilterByDiscount(products []domain.Product, tiers domain.Set[int]) []domain.Product {
	if len(tiers) == 0 {
		return products
	}
	threshold := 0
	for t := range tiers {
		threshold = max(threshold, t)
	}
	floor := decimal.NewFromInt(int64(threshold))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		pct, ok := p.DiscountPct()
		if ok && pct.GreaterThanOrEqual(floor) {
			out = append(out, p)
		}
	}
	return out
}

// ClientSort re-sorts a fetched page for the sort keys the storefront
// knows how to order; others keep server order.
func ClientSort(products []domain.Product, by domain.SortKey) []domain.Product {
	var less func(a, b domain.Product) int
	switch by {
	case domain.SortPriceLow:
		less = func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case domain.SortPriceHigh:
		less = func(a, b domain.Product) int { return b.Price.Cmp(a.Price) }
	case domain.SortRating:
		less = func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return products
	}
	out := slices.Clone(products)
	slices.SortStableFunc(out, less)
	return out
}

// RangeLabel renders "start-end of N items" for a zero-based page.
func RangeLabel(page, total int) string {
	if total <= 0 {
		return "0 items"
	}
	start := page*domain.PageSize + 1
	end := min((page+1)*domain.PageSize, total)
	return fmt.Sprintf("%d-%d of %d items", start, end, total)
}

// TopBrands orders by count desc then name and keeps the first ten.
func TopBrands(brands []domain.BrandFacet) []domain.BrandFacet {
	out := slices.Clone(brands)
	slices.SortStableFunc(out, func(a, b domain.BrandFacet) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > brandOptionsLimit {
		out = out[:brandOptionsLimit]
	}
	return out
}

type BrandGroup struct {
	Letter string              `json:"letter"`
	Brands []domain.BrandFacet `json:"brands"`
}

// GroupBrands filters by a case-insensitive substring and groups by the
// upper-cased first letter; non-letters go under "#".
func GroupBrands(brands []domain.BrandFacet, query string) []BrandGroup {
	query = strings.ToLower(strings.TrimSpace(query))
	groups := map[string][]domain.BrandFacet{}
	for _, b := range brands {
		if query != "" && !strings.Contains(strings.ToLower(b.Name), query) {
			continue
		}
		letter := "#"
		if r, _ := firstRune(b.Name); unicode.IsLetter(r) {
			letter = string(unicode.ToUpper(r))
		}
		groups[letter] = append(groups[letter], b)
	}
	out := make([]BrandGroup, 0, len(groups))
	for letter, members := range groups {
		slices.SortFunc(members, func(a, b domain.BrandFacet) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		out = append(out, BrandGroup{Letter: letter, Brands: members})
	}
	slices.SortFunc(out, func(a, b BrandGroup) int { return cmp.Compare(a.Letter, b.Letter) })
	return out
}

func firstRune(s string) (rune, bool) {
	for _, r := range strings.TrimSpace(s) {
		return r, true
	}
	return 0, false
}

// Filter mutations. Unknown enum values leave the state unchanged.

func ToggleCategory(slug string) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if slug = strings.TrimSpace(slug); slug != "" {
			f.Categories.Toggle(slug)
		}
	}
}

func ToggleBrand(name string) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if name = strings.TrimSpace(name); name != "" {
			f.Brands.Toggle(name)
		}
	}
}

func TogglePriceBand(b domain.PriceBand) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if _, _, ok := b.Bounds(); ok {
			f.PriceBands.Toggle(b)
		}
	}
}

func ToggleRating(r int) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if slices.Contains(domain.RatingThresholds, r) {
			f.Ratings.Toggle(r)
		}
	}
}

func ToggleDiscountTier(t int) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if slices.Contains(domain.DiscountTiers, t) {
			f.DiscountTiers.Toggle(t)
		}
	}
}

func SetAvailability(a domain.Availability) func(*domain.FilterState) {
	return func(f *domain.FilterState) { f.Availability = a }
}

func SetSort(k domain.SortKey) func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		if k.Valid() {
			f.SortBy = k
		}
	}
}

func SetPage(p int) func(*domain.FilterState) {
	return func(f *domain.FilterState) { f.Page = max(0, p) }
}

// ApplyPriceSlider applies caps below the slider maximum and clears the
// cap otherwise. Values under the slider minimum are raised to it.
func ApplyPriceSlider(v int) func(*domain.FilterState) {
	v = max(v, domain.PriceSliderMin)
	return func(f *domain.FilterState) {
		if v < domain.PriceSliderMax {
			f.AppliedPriceMax = &v
			return
		}
		f.AppliedPriceMax = nil
	}
}

func ClearAll() func(*domain.FilterState) {
	return func(f *domain.FilterState) {
		sort, page := f.SortBy, f.Page
		*f = domain.NewFilterState()
		f.SortBy, f.Page = sort, page
	}
}

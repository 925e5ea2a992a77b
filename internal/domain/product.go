package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product is the canonical product shape. The API adapter normalizes every
// backend variant into it; nothing else reads raw product JSON.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Brand           string          `json:"brand,omitempty"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	MRP             decimal.Decimal `json:"mrp"`
	DiscountPercent *int            `json:"discountPercent,omitempty"`
	Stock           *int            `json:"stock,omitempty"`
	Rating          float64         `json:"rating"`
	ReviewCount     int             `json:"reviewCount"`
	Images          []string        `json:"images,omitempty"`
	Category        Category        `json:"category"`
	Manufacturer    string          `json:"manufacturer,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// DiscountPct returns (mrp-price)/mrp*100, or false when mrp is not positive.
func (p Product) DiscountPct() (decimal.Decimal, bool) {
	if !p.MRP.IsPositive() {
		return decimal.Zero, false
	}
	return p.MRP.Sub(p.Price).Div(p.MRP).Mul(hundred), true
}

// DisplayDiscount is the rounded percent badge: the backend value when
// present, otherwise derived when mrp > price > 0.
func (p Product) DisplayDiscount() *int {
	if p.DiscountPercent != nil {
		return p.DiscountPercent
	}
	if !p.Price.IsPositive() || !p.MRP.GreaterThan(p.Price) {
		return nil
	}
	pct, _ := p.DiscountPct()
	v := int(pct.Round(0).IntPart())
	return &v
}

// StockLabel mirrors the product card: out of stock, low stock or count.
func (p Product) StockLabel() string {
	if p.Stock == nil || *p.Stock < 0 {
		return ""
	}
	switch s := *p.Stock; {
	case s == 0:
		return "Out of stock"
	case s > 10:
		return "In stock: " + strconv.Itoa(s)
	default:
		return "Only " + strconv.Itoa(s) + " left"
	}
}

type ProductPage struct {
	Content       []Product `json:"content"`
	TotalPages    int       `json:"totalPages"`
	TotalElements int       `json:"totalElements"`
}

type CategoryFacet struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

type BrandFacet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Facets struct {
	Categories []CategoryFacet `json:"categories"`
	Brands     []BrandFacet    `json:"brands"`
}

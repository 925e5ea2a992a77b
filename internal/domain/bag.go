package domain

import "github.com/shopspring/decimal"

// BagItem is a product snapshot plus quantity; identity is the product id.
type BagItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Summary is derived from the selected bag items only.
type Summary struct {
	TotalItems  int             `json:"totalItems"`
	TotalMRP    decimal.Decimal `json:"totalMrp"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Discount    decimal.Decimal `json:"discount"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Summarize totals the given items; feePerItem is charged per unit.
func Summarize(items []BagItem, feePerItem decimal.Decimal) Summary {
	s := Summary{TotalMRP: decimal.Zero, TotalPrice: decimal.Zero}
	for _, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		q := decimal.NewFromInt(int64(qty))
		mrp := it.MRP
		if mrp.IsZero() {
			mrp = it.Price
		}
		s.TotalItems += qty
		s.TotalMRP = s.TotalMRP.Add(mrp.Mul(q))
		s.TotalPrice = s.TotalPrice.Add(it.Price.Mul(q))
	}
	s.Discount = decimal.Max(decimal.Zero, s.TotalMRP.Sub(s.TotalPrice))
	s.PlatformFee = feePerItem.Mul(decimal.NewFromInt(int64(s.TotalItems)))
	s.TotalAmount = s.TotalPrice.Add(s.PlatformFee)
	return s
}

package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/quickcart/internal/domain"
)

// object is a loosely-typed JSON object. The backend has shipped several
// field spellings over time; every fallback chain lives in this file.
type object map[string]json.RawMessage

func (o object) raw(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok {
			continue
		}
		t := bytes.TrimSpace(v)
		if len(t) == 0 || bytes.Equal(t, []byte("null")) {
			continue
		}
		return t, true
	}
	return nil, false
}

// str returns the first key holding a non-empty string or number.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		v, ok := o.raw(k)
		if !ok {
			continue
		}
		if s := scalar(v); s != "" {
			return s
		}
	}
	return ""
}

func (o object) dec(keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := o.raw(k)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.Trim(string(v), `"`))
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

func (o object) intp(keys ...string) *int {
	d, ok := o.dec(keys...)
	if !ok {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

func (o object) obj(key string) (object, bool) {
	v, ok := o.raw(key)
	if !ok || v[0] != '{' {
		return nil, false
	}
	var out object
	if json.Unmarshal(v, &out) != nil {
		return nil, false
	}
	return out, true
}

// scalar renders a JSON string or number as text; ids arrive as either.
func scalar(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if json.Unmarshal(v, &s) == nil {
			return strings.TrimSpace(s)
		}
	case '{', '[', 'n', 't', 'f':
		return ""
	default:
		return string(v)
	}
	return ""
}

// idValue sends numeric ids as JSON numbers, anything else as a string.
func idValue(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}

func normalizeProduct(o object) domain.Product {
	p := domain.Product{
		ID:          o.str("id", "productId"),
		Name:        o.str("name", "title"),
		Description: o.str("description"),
	}
	if b, ok := o.obj("brand"); ok {
		p.Brand = b.str("name", "value")
	} else {
		p.Brand = o.str("brand", "brandName")
	}

	if v, ok := o.dec("discountPrice", "price", "sellingPrice", "salePrice"); ok {
		p.Price = v
	}
	if v, ok := o.dec("mrp", "originalPrice", "listPrice"); ok {
		p.MRP = v
	} else {
		p.MRP = p.Price
	}
	p.DiscountPercent = o.intp("discountPercent", "discountPercentage")
	p.Stock = o.intp("stock", "stockQuantity")
	if r, ok := o.dec("rating", "averageRating"); ok {
		p.Rating, _ = r.Float64()
	}
	if n := o.intp("reviewCount", "reviewsCount"); n != nil {
		p.ReviewCount = *n
	}

	if c, ok := o.obj("category"); ok {
		p.Category = domain.Category{Name: c.str("name", "categoryName"), Slug: c.str("slug", "categorySlug")}
	} else {
		p.Category = domain.Category{Name: o.str("category", "categoryName"), Slug: o.str("categorySlug")}
	}
	if m, ok := o.obj("manufacturer"); ok {
		p.Manufacturer = m.str("name", "companyName", "email")
	} else {
		p.Manufacturer = o.str("manufacturerName", "manufacturer")
	}
	p.Images = collectImages(o)
	return p
}

func collectImages(o object) []string {
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, k := range []string{"images", "imageUrls", "gallery", "media"} {
		v, ok := o.raw(k)
		if !ok || v[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if json.Unmarshal(v, &items) != nil {
			continue
		}
		for _, it := range items {
			if s := scalar(it); s != "" {
				add(s)
				continue
			}
			var el object
			if json.Unmarshal(it, &el) == nil {
				add(el.str("url", "imageUrl", "src", "path"))
			}
		}
		if len(out) > 0 {
			break
		}
	}
	for _, k := range []string{"image", "imageUrl", "thumbnail", "thumbnailUrl"} {
		add(o.str(k))
	}
	return out
}

func normalizeFacets(o object) domain.Facets {
	f := domain.Facets{Categories: []domain.CategoryFacet{}, Brands: []domain.BrandFacet{}}
	for _, it := range list(o, "categories") {
		var c domain.CategoryFacet
		if s := scalar(it); s != "" {
			c = domain.CategoryFacet{Name: s, Slug: s}
		} else {
			var co object
			if json.Unmarshal(it, &co) != nil {
				continue
			}
			c.Name = co.str("name", "categoryName", "label")
			c.Slug = co.str("slug", "categorySlug", "value", "name")
			if n := co.intp("count", "total"); n != nil {
				c.Count = *n
			}
		}
		if c.Name == "" || c.Slug == "" {
			continue
		}
		f.Categories = append(f.Categories, c)
	}
	for _, it := range list(o, "brands") {
		var b domain.BrandFacet
		if s := scalar(it); s != "" {
			b.Name = s
		} else {
			var bo object
			if json.Unmarshal(it, &bo) != nil {
				continue
			}
			b.Name = bo.str("name", "brandName", "label", "value")
			if n := bo.intp("count", "total"); n != nil {
				b.Count = *n
			}
		}
		if b.Name == "" {
			continue
		}
		f.Brands = append(f.Brands, b)
	}
	return f
}

func list(o object, key string) []json.RawMessage {
	v, ok := o.raw(key)
	if !ok || v[0] != '[' {
		return nil
	}
	var out []json.RawMessage
	_ = json.Unmarshal(v, &out)
	return out
}

func normalizeAddress(o object) domain.Address {
	a := domain.Address{
		ID:             o.str("id", "addressId"),
		Name:           o.str("name", "fullName"),
		Phone:          o.str("phone", "phoneNumber"),
		AlternatePhone: o.str("alternatePhone"),
		AddressType:    domain.AddressType(strings.ToUpper(o.str("addressType"))),
		Locality:       o.str("locality"),
		Landmark:       o.str("landmark"),
		AddressLine1:   o.str("addressLine1", "address"),
		City:           o.str("city"),
		State:          o.str("state"),
		Pincode:        o.str("pincode", "postalCode"),
	}
	if v, ok := o.raw("isDefault", "default"); ok {
		a.IsDefault = string(v) == "true"
	}
	return a
}

// decodeAddresses accepts Address[] or {content: Address[]}.
func decodeAddresses(raw json.RawMessage) []domain.Address {
	raw = bytes.TrimSpace(raw)
	var items []json.RawMessage
	switch {
	case len(raw) > 0 && raw[0] == '[':
		_ = json.Unmarshal(raw, &items)
	case len(raw) > 0 && raw[0] == '{':
		var o object
		if json.Unmarshal(raw, &o) == nil {
			items = list(o, "content")
		}
	}
	out := make([]domain.Address, 0, len(items))
	for _, it := range items {
		var o object
		if json.Unmarshal(it, &o) != nil {
			continue
		}
		a := normalizeAddress(o)
		if a.ID == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func normalizeOrder(o object) domain.Order {
	ord := domain.Order{
		ID:                   o.str("id", "orderId"),
		Status:               o.str("status", "orderStatus"),
		PaymentID:            o.str("paymentId"),
		RazorpayPaymentID:    o.str("razorpayPaymentId"),
		DeliveryDate:         o.str("deliveryDate"),
		ExpectedDeliveryDate: o.str("expectedDeliveryDate"),
		DeliveryEta:          o.str("deliveryEta"),
		DeliveryName:         o.str("deliveryName"),
		DeliveryPhone:        o.str("deliveryPhone"),
		DeliveryAddressLine1: o.str("deliveryAddressLine1"),
		DeliveryCity:         o.str("deliveryCity"),
		DeliveryState:        o.str("deliveryState"),
		DeliveryPincode:      o.str("deliveryPincode"),
	}
	if v, ok := o.dec("totalAmount", "total"); ok {
		ord.TotalAmount = v
	}
	if p, ok := o.obj("payment"); ok {
		ord.Payment = &domain.OrderPayment{
			PaymentID: p.str("paymentId", "razorpayPaymentId"),
			Status:    p.str("status"),
			Gateway:   p.str("gateway", "provider"),
		}
	}
	for _, it := range list(o, "items") {
		var el object
		if json.Unmarshal(it, &el) != nil {
			continue
		}
		item := domain.OrderItem{
			ProductID:   el.str("productId"),
			ProductName: el.str("productName", "name"),
		}
		if n := el.intp("quantity"); n != nil {
			item.Quantity = *n
		}
		item.UnitPrice, _ = el.dec("unitPrice", "price")
		item.LineTotal, _ = el.dec("lineTotal", "totalPrice")
		ord.Items = append(ord.Items, item)
	}
	return ord
}

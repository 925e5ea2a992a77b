package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/phenrril/quickcart/internal/domain"
)

var (
	_ domain.AuthAPI    = (*Client)(nil)
	_ domain.ProductAPI = (*Client)(nil)
	_ domain.AddressAPI = (*Client)(nil)
	_ domain.OrderAPI   = (*Client)(nil)
	_ domain.PaymentAPI = (*Client)(nil)
)

func (c *Client) Login(ctx context.Context, cred domain.Credentials) (string, error) {
	var out object
	if err := c.do(ctx, http.MethodPost, "/auth/login", cred, &out); err != nil {
		return "", err
	}
	tok := out.str("token", "accessToken")
	if tok == "" {
		return "", errors.New("login response without token")
	}
	return tok, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) ListProducts(ctx context.Context, q url.Values) (*domain.ProductPage, error) {
	var out object
	if err := c.do(ctx, http.MethodGet, withQuery("/products", q), nil, &out); err != nil {
		return nil, err
	}
	page := &domain.ProductPage{Content: []domain.Product{}}
	for _, it := range list(out, "content") {
		var o object
		if json.Unmarshal(it, &o) != nil {
			continue
		}
		page.Content = append(page.Content, normalizeProduct(o))
	}
	if n := out.intp("totalPages"); n != nil {
		page.TotalPages = *n
	}
	if n := out.intp("totalElements"); n != nil {
		page.TotalElements = *n
	}
	return page, nil
}

func (c *Client) ProductFacets(ctx context.Context, q url.Values) (*domain.Facets, error) {
	var out object
	if err := c.do(ctx, http.MethodGet, withQuery("/products/facets", q), nil, &out); err != nil {
		return nil, err
	}
	f := normalizeFacets(out)
	return &f, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var out object
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, errors.Join(domain.ErrNotFound, err)
		}
		return nil, err
	}
	p := normalizeProduct(out)
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (c *Client) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/addresses", nil, &out); err != nil {
		return nil, err
	}
	return decodeAddresses(out), nil
}

type addressPayload struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	AlternatePhone string `json:"alternatePhone,omitempty"`
	AddressType    string `json:"addressType"`
	Locality       string `json:"locality,omitempty"`
	Landmark       string `json:"landmark,omitempty"`
	AddressLine1   string `json:"addressLine1"`
	City           string `json:"city"`
	State          string `json:"state"`
	Pincode        string `json:"pincode"`
	IsDefault      *bool  `json:"isDefault,omitempty"`
}

func toPayload(f domain.AddressForm) addressPayload {
	t := strings.ToUpper(strings.TrimSpace(string(f.AddressType)))
	if t == "" {
		t = string(domain.AddressHome)
	}
	return addressPayload{
		Name: strings.TrimSpace(f.Name), Phone: strings.TrimSpace(f.Phone),
		AlternatePhone: strings.TrimSpace(f.AlternatePhone), AddressType: t,
		Locality: strings.TrimSpace(f.Locality), Landmark: strings.TrimSpace(f.Landmark),
		AddressLine1: strings.TrimSpace(f.AddressLine1), City: strings.TrimSpace(f.City),
		State: strings.TrimSpace(f.State), Pincode: strings.TrimSpace(f.Pincode),
		IsDefault: f.IsDefault,
	}
}

func (c *Client) CreateAddress(ctx context.Context, f domain.AddressForm) error {
	return c.do(ctx, http.MethodPost, "/addresses", toPayload(f), nil)
}

func (c *Client) UpdateAddress(ctx context.Context, id string, f domain.AddressForm) error {
	return c.do(ctx, http.MethodPatch, "/addresses/"+url.PathEscape(id), toPayload(f), nil)
}

func (c *Client) SetDefaultAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id)+"/default", nil, nil)
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/addresses/"+url.PathEscape(id), nil, nil)
}

type orderLinePayload struct {
	ProductID any `json:"productId"`
	Quantity  int `json:"quantity"`
}

type placeOrderPayload struct {
	DeliveryAddressID any                `json:"deliveryAddressId"`
	Items             []orderLinePayload `json:"items"`
}

func (c *Client) CreateOrder(ctx context.Context, req domain.PlaceOrderRequest) (string, error) {
	body := placeOrderPayload{DeliveryAddressID: idValue(req.DeliveryAddressID)}
	for _, l := range req.Items {
		body.Items = append(body.Items, orderLinePayload{ProductID: idValue(l.ProductID), Quantity: l.Quantity})
	}
	var out object
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return "", err
	}
	return out.str("orderId", "id"), nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out object
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, errors.Join(domain.ErrNotFound, err)
		}
		return nil, err
	}
	o := normalizeOrder(out)
	if o.ID == "" {
		o.ID = id
	}
	return &o, nil
}

func (c *Client) GatewayKey(ctx context.Context) (string, error) {
	var out object
	if err := c.do(ctx, http.MethodGet, c.gatewayPrefix+"/key", nil, &out); err != nil {
		return "", err
	}
	return out.str("keyId", "key"), nil
}

func (c *Client) CreateGatewayOrder(ctx context.Context, orderID string) (*domain.GatewayOrder, error) {
	var out object
	body := map[string]any{"orderId": idValue(orderID)}
	if err := c.do(ctx, http.MethodPost, c.gatewayPrefix+"/order", body, &out); err != nil {
		return nil, err
	}
	g := &domain.GatewayOrder{
		OrderID:        out.str("orderId"),
		GatewayOrderID: out.str("razorpayOrderId", "gatewayOrderId"),
		Currency:       out.str("currency"),
	}
	if g.OrderID == "" {
		g.OrderID = orderID
	}
	g.Amount, _ = out.dec("amount")
	return g, nil
}

type verifyPayload struct {
	OrderID           any    `json:"orderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

func (c *Client) VerifyPayment(ctx context.Context, req domain.VerifyPaymentRequest) error {
	return c.do(ctx, http.MethodPost, c.gatewayPrefix+"/verify", verifyPayload{
		OrderID:           idValue(req.OrderID),
		RazorpayPaymentID: req.GatewayPaymentID,
		RazorpayOrderID:   req.GatewayOrderID,
		RazorpaySignature: req.GatewaySignature,
	}, nil)
}

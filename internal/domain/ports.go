package domain

import (
	"context"
	"net/url"
)

// KVStore is a flat byte-valued key-value store. Get on a missing key
// returns ErrNotFound.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type AuthAPI interface {
	Login(ctx context.Context, c Credentials) (token string, err error)
}

type ProductAPI interface {
	ListProducts(ctx context.Context, q url.Values) (*ProductPage, error)
	ProductFacets(ctx context.Context, q url.Values) (*Facets, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
}

type AddressAPI interface {
	ListAddresses(ctx context.Context) ([]Address, error)
	CreateAddress(ctx context.Context, f AddressForm) error
	UpdateAddress(ctx context.Context, id string, f AddressForm) error
	SetDefaultAddress(ctx context.Context, id string) error
	DeleteAddress(ctx context.Context, id string) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, req PlaceOrderRequest) (orderID string, err error)
	GetOrder(ctx context.Context, id string) (*Order, error)
}

type PaymentAPI interface {
	GatewayKey(ctx context.Context) (string, error)
	CreateGatewayOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error
}

// ScriptLoader makes the gateway checkout script available to the browser.
type ScriptLoader interface {
	Load(ctx context.Context) error
	Path() string
}

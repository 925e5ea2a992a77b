package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	DeliveryAddressID string      `json:"deliveryAddressId"`
	Items             []OrderLine `json:"items"`
}

type OrderPayment struct {
	PaymentID string `json:"paymentId,omitempty"`
	Status    string `json:"status,omitempty"`
	Gateway   string `json:"gateway,omitempty"`
}

type OrderItem struct {
	ProductID   string          `json:"productId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Order is owned by the backend; the storefront only reads it for the
// confirmation view.
type Order struct {
	ID                   string          `json:"id"`
	Status               string          `json:"status"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	CreatedAt            *time.Time      `json:"createdAt,omitempty"`
	Payment              *OrderPayment   `json:"payment,omitempty"`
	PaymentID            string          `json:"paymentId,omitempty"`
	RazorpayPaymentID    string          `json:"razorpayPaymentId,omitempty"`
	DeliveryDate         string          `json:"deliveryDate,omitempty"`
	ExpectedDeliveryDate string          `json:"expectedDeliveryDate,omitempty"`
	DeliveryEta          string          `json:"deliveryEta,omitempty"`
	DeliveryName         string          `json:"deliveryName,omitempty"`
	DeliveryPhone        string          `json:"deliveryPhone,omitempty"`
	DeliveryAddressLine1 string          `json:"deliveryAddressLine1,omitempty"`
	DeliveryCity         string          `json:"deliveryCity,omitempty"`
	DeliveryState        string          `json:"deliveryState,omitempty"`
	DeliveryPincode      string          `json:"deliveryPincode,omitempty"`
	Items                []OrderItem     `json:"items,omitempty"`
}

// ResolvedPaymentID prefers the locally cached gateway id.
func (o *Order) ResolvedPaymentID(cached string) string {
	if cached != "" {
		return cached
	}
	if o == nil {
		return ""
	}
	if o.Payment != nil && o.Payment.PaymentID != "" {
		return o.Payment.PaymentID
	}
	if o.PaymentID != "" {
		return o.PaymentID
	}
	return o.RazorpayPaymentID
}

func (o *Order) ResolvedDeliveryDate() string {
	if o == nil {
		return ""
	}
	for _, d := range []string{o.DeliveryDate, o.ExpectedDeliveryDate, o.DeliveryEta} {
		if d != "" {
			return d
		}
	}
	return ""
}

type GatewayOrder struct {
	OrderID        string          `json:"orderId"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// PendingPayment is what the browser needs to open the gateway checkout.
type PendingPayment struct {
	OrderID        string          `json:"orderId"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"keyId"`
	ScriptPath     string          `json:"scriptPath"`
}

// GatewayResult is the gateway success callback payload.
type GatewayResult struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewaySignature string `json:"gatewaySignature"`
}

type VerifyPaymentRequest struct {
	OrderID          string `json:"orderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewaySignature string `json:"gatewaySignature"`
}

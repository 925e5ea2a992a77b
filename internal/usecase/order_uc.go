package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/domain"
)

type Confirmation struct {
	Order        *domain.Order `json:"order"`
	PaymentID    string        `json:"paymentId,omitempty"`
	DeliveryDate string        `json:"deliveryDate,omitempty"`
}

// OrderUC backs the order confirmation page.
type OrderUC struct {
	Orders  domain.OrderAPI
	Session domain.KVStore
}

// Confirmation loads the order. An empty id yields ErrNotFound; callers
// redirect home.
func (uc *OrderUC) Confirmation(ctx context.Context, orderID string) (*Confirmation, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	cached := CachedPaymentID(ctx, uc.Session, orderID)

	o, err := uc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("order fetch failed")
		return nil, domain.NewUserMessage("Failed to load order details.", domain.SeverityError, err)
	}
	return &Confirmation{
		Order:        o,
		PaymentID:    o.ResolvedPaymentID(cached),
		DeliveryDate: o.ResolvedDeliveryDate(),
	}, nil
}

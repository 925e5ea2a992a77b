package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

const (
	paymentSessionPrefix = "order-payment-"
	selectItemFirst      = "Select an item first"
	defaultCurrency      = "INR"
)

// DefaultPlatformFee is charged per unit in the summary.
var DefaultPlatformFee = decimal.NewFromInt(10)

type CheckoutView struct {
	Step     domain.CheckoutStep    `json:"step"`
	Label    string                 `json:"label"`
	Stepper  []string               `json:"stepper"`
	Items    []domain.BagItem       `json:"items"`
	Selected []string               `json:"selected"`
	Summary  domain.Summary         `json:"summary"`
	Pending  *domain.PendingPayment `json:"pending,omitempty"`
}

// CheckoutUC drives the bag page of one workspace: selection, the cart to
// summary to payment-pending machine and the gateway handshake.
type CheckoutUC struct {
	Bag         *BagUC
	Wishlist    *WishlistUC
	Selection   *Selection
	Addresses   *AddressUC
	Orders      domain.OrderAPI
	Payments    domain.PaymentAPI
	Script      domain.ScriptLoader
	Session     domain.KVStore
	Toasts      *events.Bus[events.Toast]
	PlatformFee decimal.Decimal
	// ClearBagOnSuccess removes the ordered items once payment verifies.
	ClearBagOnSuccess bool

	mu           sync.Mutex
	step         domain.CheckoutStep
	pending      *domain.PendingPayment
	pendingItems []string
	placing      bool
}

func (uc *CheckoutUC) fee() decimal.Decimal {
	if uc.PlatformFee.IsZero() {
		return DefaultPlatformFee
	}
	return uc.PlatformFee
}

func (uc *CheckoutUC) toast(msg string, sev domain.Severity) {
	events.Notify(uc.Toasts, msg, sev)
}

func (uc *CheckoutUC) fail(msg string, err error) error {
	uc.toast(msg, domain.SeverityError)
	return domain.NewUserMessage(msg, domain.SeverityError, err)
}

func (uc *CheckoutUC) Step() domain.CheckoutStep {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.step == "" {
		return domain.StepCart
	}
	return uc.step
}

func (uc *CheckoutUC) setStep(s domain.CheckoutStep) {
	uc.mu.Lock()
	uc.step = s
	if s != domain.StepPaymentPending {
		uc.pending = nil
		uc.pendingItems = nil
	}
	uc.mu.Unlock()
}

// Summary totals the selected bag items.
func (uc *CheckoutUC) Summary(ctx context.Context) (domain.Summary, error) {
	items, err := uc.Bag.Selected(ctx, uc.Selection)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(items, uc.fee()), nil
}

func (uc *CheckoutUC) View(ctx context.Context) (CheckoutView, error) {
	items, err := uc.Bag.Items(ctx)
	if err != nil {
		return CheckoutView{}, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	uc.Selection.Prune(ids)
	sum, err := uc.Summary(ctx)
	if err != nil {
		return CheckoutView{}, err
	}
	step := uc.Step()
	v := CheckoutView{
		Step:     step,
		Label:    step.Label(),
		Stepper:  domain.StepperLabels,
		Items:    items,
		Selected: uc.Selection.IDs(),
		Summary:  sum,
	}
	uc.mu.Lock()
	if uc.pending != nil {
		p := *uc.pending
		v.Pending = &p
	}
	uc.mu.Unlock()
	return v, nil
}

func (uc *CheckoutUC) requireSelection() error {
	if uc.Selection.Len() == 0 {
		uc.toast(selectItemFirst, domain.SeverityInfo)
		return domain.NewUserMessage(selectItemFirst, domain.SeverityInfo, domain.ErrNothingSelected)
	}
	return nil
}

func (uc *CheckoutUC) requireAddress() error {
	if uc.Addresses == nil || uc.Addresses.SelectedID() == "" {
		uc.toast("Select a delivery address", domain.SeverityInfo)
		return domain.NewUserMessage("Select a delivery address", domain.SeverityInfo, domain.ErrNoAddress)
	}
	return nil
}

// Continue moves cart to summary once an item and an address are chosen.
func (uc *CheckoutUC) Continue(ctx context.Context) error {
	if uc.Step() != domain.StepCart {
		return domain.ErrInvalidTransition
	}
	if err := uc.requireSelection(); err != nil {
		return err
	}
	if err := uc.requireAddress(); err != nil {
		return err
	}
	uc.setStep(domain.StepSummary)
	return nil
}

func (uc *CheckoutUC) Back() error {
	if uc.Step() != domain.StepSummary {
		return domain.ErrInvalidTransition
	}
	uc.setStep(domain.StepCart)
	return nil
}

// RemoveSelected drops every selected item from the bag.
func (uc *CheckoutUC) RemoveSelected(ctx context.Context) error {
	if err := uc.requireSelection(); err != nil {
		return err
	}
	return uc.Bag.Remove(ctx, uc.Selection.IDs()...)
}

// MoveSelectedToWishlist saves the selected items not yet wishlisted and
// removes them from the bag.
func (uc *CheckoutUC) MoveSelectedToWishlist(ctx context.Context) error {
	if err := uc.requireSelection(); err != nil {
		return err
	}
	items, err := uc.Bag.Selected(ctx, uc.Selection)
	if err != nil {
		return err
	}
	products := make([]domain.Product, len(items))
	for i, it := range items {
		products[i] = it.Product
	}
	if err := uc.Wishlist.AddMany(ctx, products); err != nil {
		return err
	}
	return uc.Bag.Remove(ctx, uc.Selection.IDs()...)
}

// PlaceOrder runs the order, gateway order, script and key steps in
// sequence. Nothing is retried; the first failure ends the attempt.
func (uc *CheckoutUC) PlaceOrder(ctx context.Context) (*domain.PendingPayment, error) {
	if err := uc.requireAddress(); err != nil {
		return nil, err
	}
	if err := uc.requireSelection(); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	if uc.placing || uc.step != domain.StepSummary {
		uc.mu.Unlock()
		return nil, domain.ErrInvalidTransition
	}
	uc.placing = true
	uc.mu.Unlock()
	defer func() {
		uc.mu.Lock()
		uc.placing = false
		uc.mu.Unlock()
	}()

	items, err := uc.Bag.Selected(ctx, uc.Selection)
	if err != nil {
		return nil, uc.fail("Failed to place order", err)
	}
	if len(items) == 0 {
		uc.toast(selectItemFirst, domain.SeverityInfo)
		return nil, domain.NewUserMessage(selectItemFirst, domain.SeverityInfo, domain.ErrNothingSelected)
	}
	lines := make([]domain.OrderLine, len(items))
	ids := make([]string, len(items))
	for i, it := range items {
		lines[i] = domain.OrderLine{ProductID: it.ID, Quantity: it.Quantity}
		ids[i] = it.ID
	}

	orderID, err := uc.Orders.CreateOrder(ctx, domain.PlaceOrderRequest{
		DeliveryAddressID: uc.Addresses.SelectedID(),
		Items:             lines,
	})
	if err != nil {
		log.Error().Err(err).Msg("create order failed")
		return nil, uc.fail("Failed to place order", err)
	}
	if orderID == "" {
		return nil, uc.fail("Failed to create order", nil)
	}
	logger := log.With().Str("order_id", orderID).Logger()

	gw, err := uc.Payments.CreateGatewayOrder(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Msg("gateway order failed")
		return nil, uc.fail("Failed to place order", err)
	}
	if gw == nil || gw.GatewayOrderID == "" || gw.Amount.IsZero() {
		return nil, uc.fail("Failed to initiate payment", nil)
	}
	currency := gw.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	if err := uc.Script.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("gateway script load failed")
		return nil, uc.fail("Gateway SDK not loaded", err)
	}

	key, err := uc.Payments.GatewayKey(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("gateway key failed")
		return nil, uc.fail("Failed to place order", err)
	}
	if key == "" {
		return nil, uc.fail("Gateway key is missing", nil)
	}

	pp := &domain.PendingPayment{
		OrderID:        orderID,
		GatewayOrderID: gw.GatewayOrderID,
		Amount:         gw.Amount,
		Currency:       currency,
		KeyID:          key,
		ScriptPath:     uc.Script.Path(),
	}
	uc.mu.Lock()
	uc.step = domain.StepPaymentPending
	uc.pending = pp
	uc.pendingItems = ids
	uc.mu.Unlock()
	logger.Info().Str("gateway_order_id", gw.GatewayOrderID).Msg("payment pending")

	out := *pp
	return &out, nil
}

// CompletePayment verifies the gateway callback and returns the
// confirmation path.
func (uc *CheckoutUC) CompletePayment(ctx context.Context, res domain.GatewayResult) (string, error) {
	uc.mu.Lock()
	if uc.step != domain.StepPaymentPending || uc.pending == nil {
		uc.mu.Unlock()
		return "", domain.ErrInvalidTransition
	}
	pp := *uc.pending
	ordered := append([]string(nil), uc.pendingItems...)
	uc.mu.Unlock()

	gatewayOrderID := res.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = pp.GatewayOrderID
	}
	err := uc.Payments.VerifyPayment(ctx, domain.VerifyPaymentRequest{
		OrderID:          pp.OrderID,
		GatewayPaymentID: res.GatewayPaymentID,
		GatewayOrderID:   gatewayOrderID,
		GatewaySignature: res.GatewaySignature,
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", pp.OrderID).Msg("payment verification failed, order left unpaid")
		uc.setStep(domain.StepSummary)
		return "", uc.fail("Payment verification failed", err)
	}

	if uc.Session != nil {
		if serr := uc.Session.Set(ctx, paymentSessionPrefix+pp.OrderID, []byte(res.GatewayPaymentID)); serr != nil {
			log.Warn().Err(serr).Str("order_id", pp.OrderID).Msg("payment id not cached")
		}
	}
	if uc.ClearBagOnSuccess && len(ordered) > 0 {
		if rerr := uc.Bag.Remove(ctx, ordered...); rerr != nil {
			log.Warn().Err(rerr).Str("order_id", pp.OrderID).Msg("ordered items left in bag")
		}
	}
	uc.setStep(domain.StepCart)
	uc.toast("Payment successful", domain.SeveritySuccess)
	log.Info().Str("order_id", pp.OrderID).Msg("payment verified")

	return "/orders/success?orderId=" + url.QueryEscape(pp.OrderID), nil
}

// DismissPayment handles the gateway modal being closed without paying.
func (uc *CheckoutUC) DismissPayment() error {
	if uc.Step() != domain.StepPaymentPending {
		return domain.ErrInvalidTransition
	}
	uc.setStep(domain.StepSummary)
	uc.toast("Payment cancelled", domain.SeverityInfo)
	return nil
}

// CachedPaymentID reads the gateway payment id stored at verification.
func CachedPaymentID(ctx context.Context, session domain.KVStore, orderID string) string {
	if session == nil {
		return ""
	}
	v, err := storage.GetString(ctx, session, paymentSessionPrefix+orderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("order_id", orderID).Msg("cached payment id unreadable")
	}
	return v
}

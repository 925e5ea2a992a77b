package domain

type CheckoutStep string

const (
	StepCart           CheckoutStep = "cart"
	StepSummary        CheckoutStep = "summary"
	StepPaymentPending CheckoutStep = "payment-pending"
)

// StepperLabels are shown in order; PAYMENT is never a resting state.
var StepperLabels = []string{"CART", "ADDRESS", "PAYMENT"}

// Label is the active stepper label for the step.
func (s CheckoutStep) Label() string {
	switch s {
	case StepSummary:
		return "ADDRESS"
	case StepPaymentPending:
		return "PAYMENT"
	}
	return "CART"
}

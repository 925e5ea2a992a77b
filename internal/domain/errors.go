package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedToken     = errors.New("malformed token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNothingSelected    = errors.New("no bag item selected")
	ErrNoAddress          = errors.New("no delivery address selected")
	ErrInvalidTransition  = errors.New("invalid checkout transition")
)

// UserMessage is an error carrying the text shown to the visitor for a
// failed step, alongside the underlying cause.
type UserMessage struct {
	Text     string
	Severity Severity
	Err      error
}

func (e *UserMessage) Error() string {
	if e.Err == nil {
		return e.Text
	}
	return e.Text + ": " + e.Err.Error()
}

func (e *UserMessage) Unwrap() error { return e.Err }

func NewUserMessage(text string, sev Severity, err error) *UserMessage {
	return &UserMessage{Text: text, Severity: sev, Err: err}
}

// ValidationError wraps ErrValidation with the inline message for the field.
func ValidationError(msg string) error {
	return &UserMessage{Text: msg, Severity: SeverityError, Err: ErrValidation}
}

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

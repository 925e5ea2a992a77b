package events

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/quickcart/internal/domain"
)

const ToastTTL = 2800 * time.Millisecond

type Toast struct {
	ID       string          `json:"id"`
	Message  string          `json:"message"`
	Severity domain.Severity `json:"severity"`
	At       time.Time       `json:"at"`
}

// Notify publishes a toast, defaulting severity to success.
func Notify(b *Bus[Toast], msg string, sev domain.Severity) {
	if b == nil {
		return
	}
	if sev == "" {
		sev = domain.SeveritySuccess
	}
	b.Publish(Toast{Message: msg, Severity: sev})
}

// Toaster renders a bus into a stack of auto-dismissing toasts. Each toast
// has its own timer; dismissing one leaves the others running.
type Toaster struct {
	mu     sync.Mutex
	ttl    time.Duration
	stack  []Toast
	timers map[string]*time.Timer
	unsub  func()
	closed bool
}

func NewToaster(b *Bus[Toast], ttl time.Duration) *Toaster {
	if ttl <= 0 {
		ttl = ToastTTL
	}
	t := &Toaster{ttl: ttl, timers: map[string]*time.Timer{}}
	t.unsub = b.Subscribe(t.push)
	return t
}

func (t *Toaster) push(in Toast) {
	if strings.TrimSpace(in.Message) == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	in.ID = uuid.NewString()
	if in.Severity == "" {
		in.Severity = domain.SeveritySuccess
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}
	t.stack = append(t.stack, in)
	id := in.ID
	t.timers[id] = time.AfterFunc(t.ttl, func() { t.Dismiss(id) })
}

// Active returns the visible toasts in publish order.
func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.stack))
	copy(out, t.stack)
	return out
}

func (t *Toaster) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tm, ok := t.timers[id]; ok {
		tm.Stop()
		delete(t.timers, id)
	}
	for i, s := range t.stack {
		if s.ID == id {
			t.stack = append(t.stack[:i:i], t.stack[i+1:]...)
			return true
		}
	}
	return false
}

// Close stops every pending timer and detaches from the bus.
func (t *Toaster) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for id, tm := range t.timers {
		tm.Stop()
		delete(t.timers, id)
	}
	t.stack = nil
	t.mu.Unlock()
	t.unsub()
}

package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
	"github.com/phenrril/quickcart/internal/usecase"
)

// Backend is the remote REST API as the storefront consumes it.
type Backend interface {
	domain.AuthAPI
	domain.ProductAPI
	domain.AddressAPI
	domain.OrderAPI
	domain.PaymentAPI
}

// workspace is everything one browser session holds: the page-local state
// of the storefront plus the use cases bound to the visitor's stores.
type workspace struct {
	visitorID string
	sessionID string

	toasts    *events.Bus[events.Toast]
	toaster   *events.Toaster
	auth      *usecase.AuthUC
	products  *usecase.ProductUC
	browser   *usecase.Browser
	bag       *usecase.BagUC
	wishlist  *usecase.WishlistUC
	addresses *usecase.AddressUC
	checkout  *usecase.CheckoutUC
	orders    *usecase.OrderUC
	unfollow  func()

	mu       sync.Mutex
	lastSeen time.Time
}

func (ws *workspace) touch(now time.Time) {
	ws.mu.Lock()
	ws.lastSeen = now
	ws.mu.Unlock()
}

func (ws *workspace) idleSince() time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastSeen
}

func (ws *workspace) close() {
	ws.unfollow()
	ws.toaster.Close()
}

// registry owns the live workspaces keyed by session id.
type registry struct {
	deps Deps

	mu    sync.Mutex
	items map[string]*workspace
}

func newRegistry(d Deps) *registry {
	return &registry{deps: d, items: map[string]*workspace{}}
}

func (r *registry) build(id identity) *workspace {
	d := r.deps
	durable := storage.NewWatched(
		storage.NewScoped(d.Durable, storage.VisitorPrefix(id.VisitorID)), "durable", d.KeyBus)
	session := storage.NewScoped(d.Sessions, storage.SessionPrefix(id.SessionID))

	auth := &usecase.AuthUC{API: d.Backend(nil), Store: durable}
	api := d.Backend(auth.TokenSource())

	toasts := events.NewBus[events.Toast]()
	ws := &workspace{
		visitorID: id.VisitorID,
		sessionID: id.SessionID,
		toasts:    toasts,
		toaster:   events.NewToaster(toasts, d.ToastTTL),
		auth:      auth,
		products:  &usecase.ProductUC{Products: api, Session: session},
		bag:       &usecase.BagUC{Store: durable, Bus: d.BagBus, VisitorID: id.VisitorID},
		orders:    &usecase.OrderUC{Orders: api, Session: session},
	}
	ws.browser = usecase.NewBrowser(api, ws.products)
	ws.wishlist = &usecase.WishlistUC{Store: durable, Bag: ws.bag, Toasts: toasts}
	ws.addresses = &usecase.AddressUC{API: api, Toasts: toasts}

	sel := usecase.NewSelection()
	ws.unfollow = sel.Follow(d.BagBus, id.VisitorID)
	ws.checkout = &usecase.CheckoutUC{
		Bag:               ws.bag,
		Wishlist:          ws.wishlist,
		Selection:         sel,
		Addresses:         ws.addresses,
		Orders:            api,
		Payments:          api,
		Script:            d.Script,
		Session:           session,
		Toasts:            toasts,
		PlatformFee:       d.PlatformFee,
		ClearBagOnSuccess: d.ClearBagOnSuccess,
	}
	return ws
}

// get returns the session's workspace, creating it on first use.
func (r *registry) get(id identity) *workspace {
	now := time.Now()
	r.mu.Lock()
	ws, ok := r.items[id.SessionID]
	if ok && ws.visitorID != id.VisitorID {
		delete(r.items, id.SessionID)
		go r.discard(ws)
		ok = false
	}
	if !ok {
		ws = r.build(id)
		r.items[id.SessionID] = ws
		log.Debug().Str("session_id", id.SessionID).Msg("workspace opened")
	}
	r.mu.Unlock()
	ws.touch(now)
	return ws
}

func (r *registry) discard(ws *workspace) {
	ws.close()
	if n := r.deps.Sessions.DeletePrefix(context.Background(), storage.SessionPrefix(ws.sessionID)); n > 0 {
		log.Debug().Str("session_id", ws.sessionID).Int("keys", n).Msg("session scope cleared")
	}
}

// sweep closes workspaces idle longer than ttl.
func (r *registry) sweep(now time.Time, ttl time.Duration) int {
	var expired []*workspace
	r.mu.Lock()
	for sid, ws := range r.items {
		if now.Sub(ws.idleSince()) > ttl {
			expired = append(expired, ws)
			delete(r.items, sid)
		}
	}
	r.mu.Unlock()
	for _, ws := range expired {
		r.discard(ws)
	}
	return len(expired)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *registry) closeAll() {
	r.mu.Lock()
	all := make([]*workspace, 0, len(r.items))
	for sid, ws := range r.items {
		all = append(all, ws)
		delete(r.items, sid)
	}
	r.mu.Unlock()
	for _, ws := range all {
		r.discard(ws)
	}
}

func (r *registry) run(ctx context.Context, ttl time.Duration) {
	every := min(max(ttl/4, time.Second), time.Minute)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-t.C:
			if n := r.sweep(now, ttl); n > 0 {
				log.Info().Int("closed", n).Msg("idle workspaces closed")
			}
		}
	}
}

// BackendFactory returns the API bound to ts; a nil ts means anonymous.
type BackendFactory func(ts oauth2.TokenSource) Backend

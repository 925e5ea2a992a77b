package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/phenrril/quickcart/internal/adapters/api"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

// SessionStore backs the per-session scope and can drop a whole scope.
type SessionStore interface {
	domain.KVStore
	DeletePrefix(ctx context.Context, prefix string) int
}

// ScriptAsset loads the gateway checkout script and serves it.
type ScriptAsset interface {
	domain.ScriptLoader
	http.Handler
}

type Deps struct {
	Durable  domain.KVStore
	Sessions SessionStore
	KeyBus   *events.Bus[domain.KeyChanged]
	BagBus   *events.Bus[domain.BagChanged]
	Backend  BackendFactory
	Script   ScriptAsset

	PlatformFee       decimal.Decimal
	ClearBagOnSuccess bool
	ToastTTL          time.Duration
	IdleTTL           time.Duration
	RateRPS           float64
	RateBurst         int
	CookieSecure      bool
	// FetchTimeout bounds how long a catalog request waits for its fetches.
	FetchTimeout time.Duration
}

type Server struct {
	mux     *http.ServeMux
	deps    Deps
	reg     *registry
	limiter *RateLimiter
	handler http.Handler
}

func New(d Deps) *Server {
	if d.IdleTTL <= 0 {
		d.IdleTTL = 30 * time.Minute
	}
	if d.FetchTimeout <= 0 {
		d.FetchTimeout = 35 * time.Second
	}
	if d.RateRPS <= 0 {
		d.RateRPS = 20
	}
	s := &Server{
		mux:     http.NewServeMux(),
		deps:    d,
		reg:     newRegistry(d),
		limiter: NewRateLimiter(d.RateRPS, d.RateBurst),
	}
	s.routes()
	s.handler = otelhttp.NewHandler(Chain(s.mux,
		RequestID,
		Recovery,
		Logging,
		s.limiter.Middleware,
		Identity(d.CookieSecure),
	), "quickcart")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run drives the idle-workspace sweep and limiter cleanup until ctx ends,
// then closes every workspace.
func (s *Server) Run(ctx context.Context) {
	go s.limiter.Run(ctx)
	s.reg.run(ctx, s.deps.IdleTTL)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, ws *workspace)

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Handle("GET /assets/gateway-checkout.js", s.deps.Script)

	s.mux.HandleFunc("GET /login", s.open(s.loginPage))
	s.mux.HandleFunc("POST /login", s.open(s.login))
	s.mux.HandleFunc("POST /logout", s.open(s.logout))
	s.mux.HandleFunc("GET /notifications", s.open(s.notifications))
	s.mux.HandleFunc("DELETE /notifications/{id}", s.open(s.dismissNotification))

	s.mux.HandleFunc("GET /manufacturer", s.guard(s.manufacturerHome, domain.RoleManufacturer))

	retailer := func(pattern string, h handlerFunc) {
		s.mux.HandleFunc(pattern, s.guard(h, domain.RoleRetailer))
	}
	retailer("GET /retailer", s.retailerHome)
	retailer("GET /retailer/products", s.catalog)
	retailer("POST /retailer/products/filters", s.catalogFilter)
	retailer("GET /retailer/products/{id}", s.productDetail)
	retailer("GET /retailer/brands", s.brands)

	retailer("GET /retailer/bag", s.bagView)
	retailer("POST /retailer/bag", s.bagAdd)
	retailer("POST /retailer/bag/{id}/quantity", s.bagQuantity)
	retailer("DELETE /retailer/bag/{id}", s.bagRemove)
	retailer("POST /retailer/bag/select", s.bagSelect)
	retailer("POST /retailer/bag/selected/remove", s.bagRemoveSelected)
	retailer("POST /retailer/bag/selected/wishlist", s.bagSelectedToWishlist)
	retailer("GET /retailer/bag/export", s.bagExport)

	retailer("POST /retailer/checkout/continue", s.checkoutContinue)
	retailer("POST /retailer/checkout/back", s.checkoutBack)
	retailer("POST /retailer/checkout/place", s.checkoutPlace)
	retailer("POST /retailer/checkout/payment", s.checkoutPayment)
	retailer("POST /retailer/checkout/dismiss", s.checkoutDismiss)

	retailer("GET /retailer/addresses", s.addressList)
	retailer("POST /retailer/addresses", s.addressCreate)
	retailer("PATCH /retailer/addresses/{id}", s.addressUpdate)
	retailer("DELETE /retailer/addresses/{id}", s.addressDelete)
	retailer("PUT /retailer/addresses/{id}/default", s.addressDefault)
	retailer("POST /retailer/addresses/{id}/select", s.addressSelect)
	retailer("POST /retailer/addresses/deliver", s.addressDeliver)

	retailer("GET /retailer/wishlist", s.wishlistView)
	retailer("POST /retailer/wishlist", s.wishlistToggle)
	retailer("DELETE /retailer/wishlist/{id}", s.wishlistRemove)
	retailer("POST /retailer/wishlist/{id}/bag", s.wishlistToBag)

	retailer("GET /orders/success", s.orderSuccess)
}

func (s *Server) workspace(r *http.Request) *workspace {
	id, ok := identityFrom(r.Context())
	if !ok {
		return nil
	}
	return s.reg.get(id)
}

// open resolves the workspace without requiring a session.
func (s *Server) open(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := s.workspace(r)
		if ws == nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no identity"})
			return
		}
		h(w, r, ws)
	}
}

// guard sends anyone without a stored token of an allowed role to /login.
func (s *Server) guard(h handlerFunc, roles ...domain.Role) http.HandlerFunc {
	return s.open(func(w http.ResponseWriter, r *http.Request, ws *workspace) {
		if _, err := ws.auth.Authorize(r.Context(), roles...); err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h(w, r, ws)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.ValidationError("invalid request body")
	}
	return nil
}

type errorResponse struct {
	Error    string          `json:"error"`
	Severity domain.Severity `json:"severity,omitempty"`
}

func statusFor(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNothingSelected), errors.Is(err, domain.ErrNoAddress):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMalformedToken), errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: http.StatusText(code), Severity: domain.SeverityError}
	var um *domain.UserMessage
	if errors.As(err, &um) {
		resp.Error, resp.Severity = um.Text, um.Severity
	} else if code < 500 {
		resp.Error = err.Error()
	}
	ev := log.Warn()
	if code >= 500 {
		ev = log.Error()
	}
	ev.Err(err).Str("request_id", requestID(r.Context())).Int("status", code).Msg("request failed")
	writeJSON(w, code, resp)
}

// Auth

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if sess, err := ws.auth.Current(r.Context()); err == nil && sess.Role.Valid() {
		http.Redirect(w, r, domain.LandingPath(sess.Role), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := ws.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("visitor_id", ws.visitorID).Str("role", string(role)).Msg("signed in")
	writeJSON(w, http.StatusOK, map[string]string{"role": string(role), "redirect": domain.LandingPath(role)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.auth.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

func (s *Server) manufacturerHome(w http.ResponseWriter, r *http.Request, ws *workspace) {
	sess, err := ws.auth.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) retailerHome(w http.ResponseWriter, r *http.Request, ws *workspace) {
	ctx := r.Context()
	sess, err := ws.auth.Current(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bagCount, err := ws.bag.Count(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := ws.wishlist.Items(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":         sess.Email,
		"role":          sess.Role,
		"bagCount":      bagCount,
		"wishlistCount": len(saved),
	})
}

// Notifications

func (s *Server) notifications(w http.ResponseWriter, _ *http.Request, ws *workspace) {
	writeJSON(w, http.StatusOK, ws.toaster.Active())
}

func (s *Server) dismissNotification(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if !ws.toaster.Dismiss(r.PathValue("id")) {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders

func (s *Server) orderSuccess(w http.ResponseWriter, r *http.Request, ws *workspace) {
	id := strings.TrimSpace(r.URL.Query().Get("orderId"))
	if id == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	c, err := ws.orders.Confirmation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func atoiDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/phenrril/quickcart/internal/adapters/api"
	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/adapters/storage/memory"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

type stubScript struct{}

func (stubScript) Load(context.Context) error { return nil }
func (stubScript) Path() string               { return "/assets/gateway-checkout.js" }
func (stubScript) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = io.WriteString(w, "window.Razorpay = function () {};")
}

// fakeBackend is the REST API the storefront talks to.
type fakeBackend struct {
	orders   atomic.Int32
	verified atomic.Int32
	mu       sync.Mutex
	authz    []string
}

func token(role string) string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strings.ToLower(role) + "@example.com",
		"roles": []string{role},
	}).SignedString([]byte("backend-secret"))
	return tok
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
	const shoe = `{"id":1,"name":"Runner","brand":"Stride","price":100,"mrp":150,"category":{"name":"Shoes","slug":"shoes"}}`

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var c domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if c.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			reply(w, `{"message":"bad credentials"}`)
			return
		}
		role := "RETAILER"
		if strings.HasPrefix(c.Email, "maker") {
			role = "MANUFACTURER"
		}
		reply(w, fmt.Sprintf(`{"token":%q}`, token(role)))
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `{"content":[`+shoe+`],"totalPages":1,"totalElements":1}`)
	})
	mux.HandleFunc("GET /products/facets", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `{"categories":[{"name":"Shoes","slug":"shoes","count":1}],"brands":[{"name":"Stride","count":1}]}`)
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply(w, shoe)
	})
	mux.HandleFunc("GET /addresses", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `[{"id":9,"name":"Asha","city":"Pune","isDefault":true}]`)
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authz = append(b.authz, r.Header.Get("Authorization"))
		b.mu.Unlock()
		b.orders.Add(1)
		reply(w, `{"orderId":42}`)
	})
	mux.HandleFunc("GET /orders/42", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `{"id":42,"status":"PAID","totalAmount":210,"expectedDeliveryDate":"2026-10-21"}`)
	})
	mux.HandleFunc("GET /payments/razorpay/key", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `{"keyId":"rzp_test_1"}`)
	})
	mux.HandleFunc("POST /payments/razorpay/order", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, `{"razorpayOrderId":"order_X","amount":21000,"currency":"INR"}`)
	})
	mux.HandleFunc("POST /payments/razorpay/verify", func(w http.ResponseWriter, _ *http.Request) {
		b.verified.Add(1)
		reply(w, `{}`)
	})
	return mux
}

type harness struct {
	t       *testing.T
	srv     *Server
	url     string
	client  *http.Client
	backend *fakeBackend
	session *memory.Store
}

func newHarness(t *testing.T, tweak func(*Deps)) *harness {
	t.Helper()
	backend := &fakeBackend{}
	upstream := httptest.NewServer(backend.handler())
	t.Cleanup(upstream.Close)

	client := api.New(upstream.URL)
	sessions := memory.New()
	d := Deps{
		Durable:  memory.New(),
		Sessions: sessions,
		KeyBus:   events.NewBus[domain.KeyChanged](),
		BagBus:   events.NewBus[domain.BagChanged](),
		Backend: func(ts oauth2.TokenSource) Backend {
			if ts == nil {
				return client
			}
			return client.WithTokenSource(ts)
		},
		Script:            stubScript{},
		PlatformFee:       decimal.NewFromInt(10),
		ClearBagOnSuccess: true,
		ToastTTL:          time.Minute,
		RateRPS:           1000,
		RateBurst:         1000,
		FetchTimeout:      5 * time.Second,
	}
	if tweak != nil {
		tweak(&d)
	}
	srv := New(d)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.reg.closeAll)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:   t,
		srv: srv,
		url: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend: backend,
		session: sessions,
	}
}

func (h *harness) do(method, path string, body any) (*http.Response, []byte) {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.url+path, rd)
	require.NoError(h.t, err)
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, out
}

func (h *harness) login(email string) map[string]string {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "secret"})
	require.Equal(h.t, http.StatusOK, resp.StatusCode, string(body))
	var out map[string]string
	require.NoError(h.t, json.Unmarshal(body, &out))
	return out
}

func TestGuardRedirectsToLogin(t *testing.T) {
	h := newHarness(t, nil)
	for _, path := range []string{"/manufacturer", "/retailer", "/retailer/bag"} {
		resp, _ := h.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

func TestLoginRoutesByRole(t *testing.T) {
	h := newHarness(t, nil)
	out := h.login("maker@example.com")
	assert.Equal(t, "/manufacturer", out["redirect"])

	resp, _ := h.do(http.MethodGet, "/manufacturer", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodGet, "/retailer", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/manufacturer", resp.Header.Get("Location"))

	h.do(http.MethodPost, "/logout", nil)
	resp, _ = h.do(http.MethodGet, "/manufacturer", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	out = h.login("shop@example.com")
	assert.Equal(t, "/retailer", out["redirect"])
}

func TestLoginErrors(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(http.MethodPost, "/login", map[string]string{"email": "bad", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Please enter a valid email address")

	resp, body = h.do(http.MethodPost, "/login", map[string]string{"email": "shop@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid credentials. Please try again.")
}

func TestRetailerCheckoutFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.login("shop@example.com")

	resp, body := h.do(http.MethodGet, "/retailer/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var catalog struct {
		Products []domain.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(body, &catalog))
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, "1", catalog.Products[0].ID)

	resp, _ = h.do(http.MethodPost, "/retailer/bag", map[string]any{"id": "1", "quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/retailer/addresses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/retailer/checkout/place", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "Select an item first")
	assert.Zero(t, h.backend.orders.Load())

	resp, _ = h.do(http.MethodPost, "/retailer/bag/select", map[string]any{"all": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = h.do(http.MethodPost, "/retailer/checkout/continue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view struct {
		Step    domain.CheckoutStep `json:"step"`
		Summary domain.Summary      `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, domain.StepSummary, view.Step)
	assert.Equal(t, "220", view.Summary.TotalAmount.String())

	resp, body = h.do(http.MethodPost, "/retailer/checkout/place", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var pending domain.PendingPayment
	require.NoError(t, json.Unmarshal(body, &pending))
	assert.Equal(t, "42", pending.OrderID)
	assert.Equal(t, "order_X", pending.GatewayOrderID)
	assert.Equal(t, "rzp_test_1", pending.KeyID)
	h.backend.mu.Lock()
	authz := append([]string(nil), h.backend.authz...)
	h.backend.mu.Unlock()
	require.Len(t, authz, 1)
	assert.True(t, strings.HasPrefix(authz[0], "Bearer "))

	resp, body = h.do(http.MethodPost, "/retailer/checkout/payment", domain.GatewayResult{
		GatewayPaymentID: "pay_7", GatewayOrderID: "order_X", GatewaySignature: "sig",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "/orders/success?orderId=42")
	assert.EqualValues(t, 1, h.backend.verified.Load())

	resp, body = h.do(http.MethodGet, "/orders/success?orderId=42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var conf struct {
		PaymentID    string `json:"paymentId"`
		DeliveryDate string `json:"deliveryDate"`
	}
	require.NoError(t, json.Unmarshal(body, &conf))
	assert.Equal(t, "pay_7", conf.PaymentID)
	assert.Equal(t, "2026-10-21", conf.DeliveryDate)

	resp, _ = h.do(http.MethodGet, "/orders/success", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, body = h.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Payment successful")

	resp, body = h.do(http.MethodGet, "/retailer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"bagCount":0`)
}

func TestCatalogFilterOps(t *testing.T) {
	h := newHarness(t, nil)
	h.login("shop@example.com")

	resp, body := h.do(http.MethodPost, "/retailer/products/filters", map[string]any{"op": "brand", "value": "Stride"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"Stride"`)

	resp, _ = h.do(http.MethodPost, "/retailer/products/filters", map[string]any{"op": "teleport"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(http.MethodGet, "/retailer/brands?q=str", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"letter":"S"`)

	resp, _ = h.do(http.MethodGet, "/retailer/products/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWishlistAndExport(t *testing.T) {
	h := newHarness(t, nil)
	h.login("shop@example.com")

	resp, body := h.do(http.MethodPost, "/retailer/wishlist", map[string]string{"id": "1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"saved":true}`, string(body))

	resp, _ = h.do(http.MethodPost, "/retailer/wishlist/1/bag", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(http.MethodGet, "/retailer/bag/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))
}

func TestAssetAndHealth(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.do(http.MethodGet, "/assets/gateway-checkout.js", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Razorpay")

	resp, _ = h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.RateRPS = 0.001
		d.RateBurst = 1
	})
	resp, _ := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRegistrySweepClearsSessionScope(t *testing.T) {
	h := newHarness(t, nil)
	h.login("shop@example.com")
	h.do(http.MethodGet, "/retailer/products", nil)
	require.Equal(t, 1, h.srv.reg.len())

	var sid string
	for _, c := range h.client.Jar.Cookies(mustURL(t, h.url)) {
		if c.Name == sessionCookie {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)
	ctx := context.Background()
	_, err := h.session.Get(ctx, storage.SessionPrefix(sid)+"retailer-product-1")
	require.NoError(t, err)

	assert.Equal(t, 1, h.srv.reg.sweep(time.Now().Add(time.Hour), time.Minute))
	assert.Zero(t, h.srv.reg.len())
	_, err = h.session.Get(ctx, storage.SessionPrefix(sid)+"retailer-product-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrInvalidTransition))
	assert.Equal(t, http.StatusBadGateway, statusFor(&api.Error{Status: 500}))
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrap: %w", domain.ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

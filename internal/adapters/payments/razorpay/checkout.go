package razorpay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/phenrril/quickcart/internal/domain"
)

const (
	DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"
	ScriptPath       = "/assets/gateway-checkout.js"
	maxScriptBytes   = 2 << 20
)

var ErrScriptNotLoaded = errors.New("gateway sdk not loaded")

// Checkout fetches the gateway's browser checkout script once and serves it
// from memory. Concurrent loads share one fetch; a failed load is not
// cached, so the next checkout tries again.
type Checkout struct {
	scriptURL  string
	httpClient *http.Client
	group      singleflight.Group

	mu       sync.RWMutex
	script   []byte
	loadedAt time.Time
}

var _ domain.ScriptLoader = (*Checkout)(nil)

func NewCheckout(scriptURL string, httpClient *http.Client) *Checkout {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Checkout{scriptURL: scriptURL, httpClient: httpClient}
}

func (c *Checkout) Path() string { return ScriptPath }

func (c *Checkout) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.script != nil
}

func (c *Checkout) Load(ctx context.Context) error {
	if c.Loaded() {
		return nil
	}
	_, err, _ := c.group.Do("script", func() (any, error) {
		if c.Loaded() {
			return nil, nil
		}
		body, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.script = body
		c.loadedAt = time.Now()
		c.mu.Unlock()
		log.Info().Str("url", c.scriptURL).Int("bytes", len(body)).Msg("gateway checkout script loaded")
		return nil, nil
	})
	if err != nil {
		log.Error().Err(err).Str("url", c.scriptURL).Msg("gateway checkout script load failed")
		return fmt.Errorf("%w: %v", ErrScriptNotLoaded, err)
	}
	return nil
}

func (c *Checkout) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scriptURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("script status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxScriptBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty script")
	}
	return body, nil
}

// ServeHTTP serves the cached script, loading it on first use.
func (c *Checkout) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := c.Load(r.Context()); err != nil {
		http.Error(w, "gateway script unavailable", http.StatusBadGateway)
		return
	}
	c.mu.RLock()
	body, at := c.script, c.loadedAt
	c.mu.RUnlock()
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	_, _ = w.Write(body)
}

package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/usecase"
)

// filterRequest is one filter-panel interaction.
type filterRequest struct {
	Op         string `json:"op"`
	Value      string `json:"value"`
	Amount     int    `json:"amount"`
	InStock    bool   `json:"inStock"`
	OutOfStock bool   `json:"outOfStock"`
}

func (f filterRequest) mutation() (func(*domain.FilterState), error) {
	switch f.Op {
	case "category":
		return usecase.ToggleCategory(f.Value), nil
	case "brand":
		return usecase.ToggleBrand(f.Value), nil
	case "priceBand":
		return usecase.TogglePriceBand(domain.PriceBand(f.Value)), nil
	case "rating":
		return usecase.ToggleRating(f.Amount), nil
	case "discount":
		return usecase.ToggleDiscountTier(f.Amount), nil
	case "availability":
		return usecase.SetAvailability(domain.Availability{InStock: f.InStock, OutOfStock: f.OutOfStock}), nil
	case "sort":
		return usecase.SetSort(domain.SortKey(f.Value)), nil
	case "page":
		return usecase.SetPage(f.Amount), nil
	case "slider":
		return usecase.ApplyPriceSlider(f.Amount), nil
	case "clear":
		return usecase.ClearAll(), nil
	}
	return nil, domain.ValidationError("unknown filter op " + strconv.Quote(f.Op))
}

// settle waits for the started fetches, bounded by the request and the
// configured fetch timeout. The view is returned either way.
func (s *Server) settle(ctx context.Context, done <-chan struct{}) {
	t := time.NewTimer(s.deps.FetchTimeout)
	defer t.Stop()
	select {
	case <-done:
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request, ws *workspace) {
	q := r.URL.Query()
	var muts []func(*domain.FilterState)
	if v := q.Get("sort"); v != "" {
		muts = append(muts, usecase.SetSort(domain.SortKey(v)))
	}
	if v := q.Get("page"); v != "" {
		muts = append(muts, usecase.SetPage(atoiDefault(v, 0)))
	}
	for _, c := range q["category"] {
		if c = strings.TrimSpace(c); c != "" && !ws.browser.Filters().Categories.Has(c) {
			muts = append(muts, usecase.ToggleCategory(c))
		}
	}
	s.settle(r.Context(), ws.browser.Apply(r.Context(), muts...))
	writeJSON(w, http.StatusOK, ws.browser.View())
}

func (s *Server) catalogFilter(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var done <-chan struct{}
	switch req.Op {
	case "next":
		done = ws.browser.NextPage(r.Context())
	case "prev":
		done = ws.browser.PrevPage(r.Context())
	default:
		m, err := req.mutation()
		if err != nil {
			writeError(w, r, err)
			return
		}
		done = ws.browser.Apply(r.Context(), m)
	}
	s.settle(r.Context(), done)
	writeJSON(w, http.StatusOK, ws.browser.View())
}

func (s *Server) productDetail(w http.ResponseWriter, r *http.Request, ws *workspace) {
	p, err := ws.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) brands(w http.ResponseWriter, r *http.Request, ws *workspace) {
	writeJSON(w, http.StatusOK, ws.browser.BrandOverlay(r.URL.Query().Get("q")))
}

package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/adapters/export"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/usecase"
)

type bagAddRequest struct {
	ID       string   `json:"id"`
	Quantity *float64 `json:"quantity"`
}

type quantityRequest struct {
	Quantity float64 `json:"quantity"`
}

type selectRequest struct {
	ID  string `json:"id"`
	All bool   `json:"all"`
}

func (s *Server) bagView(w http.ResponseWriter, r *http.Request, ws *workspace) {
	v, err := ws.checkout.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) bagAdd(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req bagAddRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := ws.products.Get(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = usecase.Quantity(*req.Quantity)
	}
	if err := ws.bag.Add(r.Context(), *p, qty); err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagQuantity(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req quantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.bag.SetQuantity(r.Context(), r.PathValue("id"), usecase.Quantity(req.Quantity)); err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagRemove(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.bag.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagSelect(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := ws.bag.Items(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.All {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		ws.checkout.Selection.ToggleAll(ids)
	} else {
		found := false
		for _, it := range items {
			found = found || it.ID == req.ID
		}
		if !found {
			writeError(w, r, domain.ErrNotFound)
			return
		}
		ws.checkout.Selection.Toggle(req.ID)
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagRemoveSelected(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.checkout.RemoveSelected(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagSelectedToWishlist(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.checkout.MoveSelectedToWishlist(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) bagExport(w http.ResponseWriter, r *http.Request, ws *workspace) {
	v, err := ws.checkout.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	selected := make(map[string]bool, len(v.Selected))
	for _, id := range v.Selected {
		selected[id] = true
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bag.xlsx"`)
	if err := export.WriteBag(w, v.Items, selected, v.Summary); err != nil {
		log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("bag export failed")
	}
}

// Checkout

func (s *Server) checkoutStep(w http.ResponseWriter, r *http.Request, ws *workspace, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.bagView(w, r, ws)
}

func (s *Server) checkoutContinue(w http.ResponseWriter, r *http.Request, ws *workspace) {
	s.checkoutStep(w, r, ws, ws.checkout.Continue(r.Context()))
}

func (s *Server) checkoutBack(w http.ResponseWriter, r *http.Request, ws *workspace) {
	s.checkoutStep(w, r, ws, ws.checkout.Back())
}

func (s *Server) checkoutDismiss(w http.ResponseWriter, r *http.Request, ws *workspace) {
	s.checkoutStep(w, r, ws, ws.checkout.DismissPayment())
}

func (s *Server) checkoutPlace(w http.ResponseWriter, r *http.Request, ws *workspace) {
	pp, err := ws.checkout.PlaceOrder(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pp)
}

func (s *Server) checkoutPayment(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var res domain.GatewayResult
	if err := decodeBody(r, &res); err != nil {
		writeError(w, r, err)
		return
	}
	if res.GatewayPaymentID == "" {
		writeError(w, r, errors.Join(domain.ErrValidation, errors.New("gatewayPaymentId is required")))
		return
	}
	path, err := ws.checkout.CompletePayment(r.Context(), res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": path})
}

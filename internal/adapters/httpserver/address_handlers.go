package httpserver

import (
	"errors"
	"net/http"

	"github.com/phenrril/quickcart/internal/domain"
)

func (s *Server) addressView(w http.ResponseWriter, code int, ws *workspace) {
	writeJSON(w, code, ws.addresses.View())
}

func (s *Server) addressList(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var err error
	switch r.URL.Query().Get("panel") {
	case "open":
		err = ws.addresses.OpenPanel(r.Context())
	case "close":
		ws.addresses.ClosePanel()
	default:
		err = ws.addresses.Refresh(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

func (s *Server) addressCreate(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var form domain.AddressForm
	if err := decodeBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	ws.addresses.CloseForm()
	if err := ws.addresses.Save(r.Context(), form); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusCreated, ws)
}

func (s *Server) addressUpdate(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var form domain.AddressForm
	if err := decodeBody(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if _, err := ws.addresses.Edit(id); errors.Is(err, domain.ErrNotFound) {
		if err := ws.addresses.Refresh(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := ws.addresses.Edit(id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := ws.addresses.Save(r.Context(), form); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

func (s *Server) addressDelete(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.addresses.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

func (s *Server) addressDefault(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.addresses.MakeDefault(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

func (s *Server) addressSelect(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.addresses.Select(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

func (s *Server) addressDeliver(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.addresses.DeliverHere(); err != nil {
		writeError(w, r, err)
		return
	}
	s.addressView(w, http.StatusOK, ws)
}

// Wishlist

type wishlistRequest struct {
	ID string `json:"id"`
}

func (s *Server) wishlistView(w http.ResponseWriter, r *http.Request, ws *workspace) {
	items, err := ws.wishlist.Items(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) wishlistToggle(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req wishlistRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := ws.products.Get(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := ws.wishlist.Toggle(r.Context(), *p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (s *Server) wishlistRemove(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.wishlist.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.wishlistView(w, r, ws)
}

func (s *Server) wishlistToBag(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.wishlist.MoveToBagByID(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.wishlistView(w, r, ws)
}

package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

const loadAddressesFailed = "Failed to load addresses."

type AddressView struct {
	Addresses  []domain.Address    `json:"addresses"`
	SelectedID string              `json:"selectedId,omitempty"`
	Address    *domain.Address     `json:"address,omitempty"`
	PanelOpen  bool                `json:"panelOpen"`
	FormOpen   bool                `json:"formOpen"`
	EditingID  string              `json:"editingId,omitempty"`
	Form       *domain.AddressForm `json:"form,omitempty"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
}

// AddressUC is the delivery address panel of one session. The backend
// owns the list; every mutation is followed by a full relist.
type AddressUC struct {
	API    domain.AddressAPI
	Toasts *events.Bus[events.Toast]

	mu         sync.Mutex
	list       []domain.Address
	loaded     bool
	selectedID string
	committed  *domain.Address
	panelOpen  bool
	formOpen   bool
	editingID  string
	form       *domain.AddressForm
	loading    bool
	err        string
}

func (uc *AddressUC) find(id string) *domain.Address {
	for i := range uc.list {
		if uc.list[i].ID == id {
			a := uc.list[i]
			return &a
		}
	}
	return nil
}

// Refresh relists. An empty list opens the form and clears the selection;
// otherwise a selection still present is kept, else the default (or first)
// address is picked.
func (uc *AddressUC) Refresh(ctx context.Context) error {
	uc.mu.Lock()
	uc.loading = true
	uc.err = ""
	uc.mu.Unlock()

	list, err := uc.API.ListAddresses(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.loading = false
	if err != nil {
		uc.err = loadAddressesFailed
		log.Error().Err(err).Msg("address list failed")
		return domain.NewUserMessage(loadAddressesFailed, domain.SeverityError, err)
	}
	uc.list = list
	uc.loaded = true
	if len(list) == 0 {
		uc.formOpen = true
		uc.selectedID = ""
		uc.committed = nil
		return nil
	}
	if uc.selectedID == "" || uc.find(uc.selectedID) == nil {
		pick := list[0]
		for _, a := range list {
			if a.IsDefault {
				pick = a
				break
			}
		}
		uc.selectedID = pick.ID
		uc.committed = &pick
	}
	return nil
}

func (uc *AddressUC) OpenPanel(ctx context.Context) error {
	uc.mu.Lock()
	uc.panelOpen = true
	uc.mu.Unlock()
	return uc.Refresh(ctx)
}

func (uc *AddressUC) ClosePanel() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.panelOpen = false
	uc.formOpen = false
	uc.editingID = ""
	uc.form = nil
}

func (uc *AddressUC) OpenForm() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.formOpen = true
}

func (uc *AddressUC) CloseForm() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.formOpen = false
	uc.editingID = ""
	uc.form = nil
}

// Edit opens the form prefilled from the stored address.
func (uc *AddressUC) Edit(id string) (domain.AddressForm, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	a := uc.find(id)
	if a == nil {
		return domain.AddressForm{}, domain.ErrNotFound
	}
	f := domain.FormFrom(*a)
	uc.editingID = id
	uc.form = &f
	uc.formOpen = true
	return f, nil
}

// Save creates an address, or patches the one being edited with blank
// fields falling back to the stored values. A create only marks the
// address default when the account has none yet, so an unloaded list is
// fetched first.
func (uc *AddressUC) Save(ctx context.Context, form domain.AddressForm) error {
	uc.mu.Lock()
	needList := uc.editingID == "" && !uc.loaded
	uc.mu.Unlock()
	if needList {
		if err := uc.Refresh(ctx); err != nil {
			events.Notify(uc.Toasts, "Failed to save address", domain.SeverityError)
			return domain.NewUserMessage("Failed to save address", domain.SeverityError, err)
		}
	}

	uc.mu.Lock()
	editing := uc.editingID
	var orig *domain.Address
	if editing != "" {
		orig = uc.find(editing)
	}
	first := len(uc.list) == 0
	uc.mu.Unlock()

	var (
		err error
		msg string
	)
	if editing != "" {
		if orig == nil {
			return domain.ErrNotFound
		}
		err = uc.API.UpdateAddress(ctx, editing, form.MergeOnto(*orig))
		msg = "Address updated"
	} else {
		form.IsDefault = &first
		err = uc.API.CreateAddress(ctx, form)
		msg = "Address saved"
	}
	if err != nil {
		events.Notify(uc.Toasts, "Failed to save address", domain.SeverityError)
		return domain.NewUserMessage("Failed to save address", domain.SeverityError, err)
	}
	events.Notify(uc.Toasts, msg, domain.SeveritySuccess)

	uc.mu.Lock()
	uc.formOpen = false
	uc.editingID = ""
	uc.form = nil
	uc.mu.Unlock()

	rerr := uc.Refresh(ctx)

	uc.mu.Lock()
	uc.panelOpen = true
	uc.mu.Unlock()
	return rerr
}

func (uc *AddressUC) MakeDefault(ctx context.Context, id string) error {
	if err := uc.API.SetDefaultAddress(ctx, id); err != nil {
		events.Notify(uc.Toasts, "Failed to set default", domain.SeverityError)
		return domain.NewUserMessage("Failed to set default", domain.SeverityError, err)
	}
	events.Notify(uc.Toasts, "Default address updated", domain.SeveritySuccess)
	return uc.Refresh(ctx)
}

func (uc *AddressUC) Delete(ctx context.Context, id string) error {
	if err := uc.API.DeleteAddress(ctx, id); err != nil {
		events.Notify(uc.Toasts, "Failed to delete address", domain.SeverityError)
		return domain.NewUserMessage("Failed to delete address", domain.SeverityError, err)
	}
	events.Notify(uc.Toasts, "Address deleted", domain.SeveritySuccess)
	return uc.Refresh(ctx)
}

// Select changes the panel-local choice only.
func (uc *AddressUC) Select(id string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.find(id) == nil {
		return domain.ErrNotFound
	}
	uc.selectedID = id
	return nil
}

// DeliverHere commits the panel choice as the delivery address and closes
// the panel.
func (uc *AddressUC) DeliverHere() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.selectedID == "" {
		return domain.ErrNoAddress
	}
	a := uc.find(uc.selectedID)
	if a == nil {
		return domain.ErrNoAddress
	}
	uc.committed = a
	uc.panelOpen = false
	return nil
}

// SelectedID is the address checkout delivers to.
func (uc *AddressUC) SelectedID() string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.selectedID
}

func (uc *AddressUC) View() AddressView {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	list := make([]domain.Address, len(uc.list))
	copy(list, uc.list)
	v := AddressView{
		Addresses:  list,
		SelectedID: uc.selectedID,
		PanelOpen:  uc.panelOpen,
		FormOpen:   uc.formOpen,
		EditingID:  uc.editingID,
		Loading:    uc.loading,
		Error:      uc.err,
	}
	if uc.committed != nil {
		a := *uc.committed
		v.Address = &a
	}
	if uc.form != nil {
		f := *uc.form
		v.Form = &f
	}
	return v
}

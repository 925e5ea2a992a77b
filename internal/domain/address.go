package domain

import "strings"

type AddressType string

const (
	AddressHome   AddressType = "HOME"
	AddressOffice AddressType = "OFFICE"
	AddressOther  AddressType = "OTHER"
)

type Address struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	AlternatePhone string      `json:"alternatePhone,omitempty"`
	AddressType    AddressType `json:"addressType"`
	Locality       string      `json:"locality,omitempty"`
	Landmark       string      `json:"landmark,omitempty"`
	AddressLine1   string      `json:"addressLine1"`
	City           string      `json:"city"`
	State          string      `json:"state"`
	Pincode        string      `json:"pincode"`
	IsDefault      bool        `json:"isDefault"`
}

// AddressForm is the editable payload for create and patch.
type AddressForm struct {
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	AlternatePhone string      `json:"alternatePhone"`
	AddressType    AddressType `json:"addressType"`
	Locality       string      `json:"locality"`
	Landmark       string      `json:"landmark"`
	AddressLine1   string      `json:"addressLine1"`
	City           string      `json:"city"`
	State          string      `json:"state"`
	Pincode        string      `json:"pincode"`
	IsDefault      *bool       `json:"isDefault,omitempty"`
}

// MergeOnto fills blank form fields from the stored address, the way an
// edit keeps untouched fields.
func (f AddressForm) MergeOnto(orig Address) AddressForm {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) != "" {
			return v
		}
		return fallback
	}
	out := AddressForm{
		Name:           pick(f.Name, orig.Name),
		Phone:          pick(f.Phone, orig.Phone),
		AlternatePhone: pick(f.AlternatePhone, orig.AlternatePhone),
		AddressType:    AddressType(pick(string(f.AddressType), string(orig.AddressType))),
		Locality:       pick(f.Locality, orig.Locality),
		Landmark:       pick(f.Landmark, orig.Landmark),
		AddressLine1:   pick(f.AddressLine1, orig.AddressLine1),
		City:           pick(f.City, orig.City),
		State:          pick(f.State, orig.State),
		Pincode:        pick(f.Pincode, orig.Pincode),
	}
	return out
}

// FormFrom prefills the edit form.
func FormFrom(a Address) AddressForm {
	t := a.AddressType
	if t == "" {
		t = AddressHome
	}
	return AddressForm{
		Name: a.Name, Phone: a.Phone, AlternatePhone: a.AlternatePhone, AddressType: t,
		Locality: a.Locality, Landmark: a.Landmark, AddressLine1: a.AddressLine1,
		City: a.City, State: a.State, Pincode: a.Pincode,
	}
}

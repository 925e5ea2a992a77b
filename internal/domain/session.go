package domain

type Role string

const (
	RoleManufacturer Role = "MANUFACTURER"
	RoleRetailer     Role = "RETAILER"
)

func (r Role) Valid() bool {
	return r == RoleManufacturer || r == RoleRetailer
}

// Session is the signed-in identity. Role always comes from the token's
// roles claim.
type Session struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"-"`
}

// LandingPath is where a freshly signed-in user is routed.
func LandingPath(r Role) string {
	if r == RoleManufacturer {
		return "/manufacturer"
	}
	return "/retailer"
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

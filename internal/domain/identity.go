package domain

import "time"

// Well-known identity-provider attribute names. The custom:* attributes mirror
// status-store fields for clients that only see the identity record.
const (
	AttrEmail         = "email"
	AttrEmailVerified = "email_verified"
	AttrGivenName     = "given_name"
	AttrFamilyName    = "family_name"
	AttrRole          = "custom:role"
	AttrStatus        = "custom:status"
	AttrFirstName     = "custom:firstName"
	AttrLastName      = "custom:lastName"
	AttrCompanyName   = "custom:companyName"
)

// Mirror values written to the identity provider's custom:status attribute.
const (
	MirrorStatusPending   = "PENDING"
	MirrorStatusActive    = "ACTIVE"
	MirrorStatusSuspended = "SUSPENDED"
	MirrorStatusRejected  = "REJECTED"
)

// IdentityUser is the slice of the identity-provider record the engine reads.
// The status store stays authoritative for business status and role; this type
// only carries what the provider owns.
type IdentityUser struct {
	Email        string
	Enabled      bool
	Confirmed    bool
	Created      time.Time
	LastModified time.Time
	Attributes   map[string]string
}

// Attr returns a provider attribute value or "".
func (u *IdentityUser) Attr(name string) string {
	if u == nil || u.Attributes == nil {
		return ""
	}
	return u.Attributes[name]
}

package user

import "github.com/google/uuid"

// Roles stamped by the external identity provider.
const (
	RoleAdmin  = "ADMIN"
	RoleAgency = "AGENCY"
	RoleClient = "CLIENT"
)

// Identity is the authenticated user as asserted by the identity provider.
// The portal does not own user records; this is the projection it consumes
// to stamp authorship and resolve display identity.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
}

// IsAdmin reports whether the identity carries the platform admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

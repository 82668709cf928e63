package models

import "time"

// GrantRole is the access level conferred by an accepted grant.
type GrantRole string

const (
	RoleViewer GrantRole = "viewer"
	RoleEditor GrantRole = "editor"
)

// GrantStatus tracks the invite lifecycle.
type GrantStatus string

const (
	GrantPending  GrantStatus = "pending"
	GrantAccepted GrantStatus = "accepted"
)

// Grant authorizes a second guardian to read a child's records. It is
// created as a pending invite identified by a single-use opaque code; the
// invitee redeems the code to bind their account.
type Grant struct {
	ID          string
	ChildID     string
	InvitedBy   string
	InviteCode  string
	InviteEmail string
	Role        GrantRole
	Status      GrantStatus
	UserID      *string    // nil until accepted
	AcceptedAt  *time.Time // nil until accepted
	CreatedAt   time.Time
}

// ValidRole reports whether s names a known grant role.
func ValidRole(s string) bool {
	return GrantRole(s) == RoleViewer || GrantRole(s) == RoleEditor
}

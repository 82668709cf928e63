// Package models defines the data records persisted by the server.
package models

import "time"

// VaultState is the lifecycle state of a memory vault. It is derived from
// the sealed_at/opened_at columns, never stored on its own, so an
// opened-but-never-sealed vault cannot exist in code paths that go through
// State.
type VaultState string

const (
	VaultDraft  VaultState = "draft"
	VaultSealed VaultState = "sealed"
	VaultOpened VaultState = "opened"
)

// Vault is a time-locked letter with media attachments, owned by a child
// record. Content and attachments are mutable only until the vault is
// sealed; a sealed vault may be opened once the unlock date is reached.
type Vault struct {
	ID             string
	ChildID        string
	Title          string
	LetterContent  string
	UnlockDate     time.Time // calendar date; time part ignored
	UnlockOccasion string
	SealedAt       *time.Time
	OpenedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// State derives the lifecycle state. opened_at implies sealed_at, so the
// opened check comes first.
func (v *Vault) State() VaultState {
	switch {
	case v.OpenedAt != nil:
		return VaultOpened
	case v.SealedAt != nil:
		return VaultSealed
	default:
		return VaultDraft
	}
}

// Unlockable reports whether the unlock date has been reached on the given
// day. The comparison is inclusive: a vault unlocks on its unlock date.
func (v *Vault) Unlockable(today time.Time) bool {
	return !DateOnly(today).Before(DateOnly(v.UnlockDate))
}

// DateOnly truncates a timestamp to its calendar date in UTC. All temporal
// gating compares dates, never instants.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

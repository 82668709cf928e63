package models

import "time"

// ScheduledLetter is the lightweight sibling of a vault: text gated by an
// unlock date, no sealing step and no media.
type ScheduledLetter struct {
	ID             string
	ChildID        string
	UserID         string // authoring guardian
	Title          string
	Content        string
	UnlockDate     time.Time
	UnlockOccasion string
	Sent           bool
	CreatedAt      time.Time
}

// Unlocked reports whether the letter is readable on the given day
// (inclusive of the unlock date itself).
func (l *ScheduledLetter) Unlocked(today time.Time) bool {
	return !DateOnly(today).Before(DateOnly(l.UnlockDate))
}

package models

import "time"

// Child is a child record owned by a single guardian account. Ownership of
// a child is the root authorization fact: every vault, letter and grant
// hangs off it.
type Child struct {
	ID        string
	UserID    string
	Name      string
	DOB       time.Time
	Gender    string
	BloodType string
	Notes     string
	PhotoURL  string
	CreatedAt time.Time
}

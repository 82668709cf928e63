// Package mailer sends outbound email: family invites and unlocked
// scheduled letters. Delivery failures are advisory — callers log them and
// keep going, the domain operation stands.
package mailer

import "context"

// Mailer is the outbound email surface used by the services.
type Mailer interface {
	// SendInvite emails an invite code for a child's records.
	SendInvite(ctx context.Context, toEmail, childName, inviteCode string) error

	// SendLetter emails an unlocked scheduled letter.
	SendLetter(ctx context.Context, toEmail, title, content string) error
}

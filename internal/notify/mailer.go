package notify

import "context"

// Mailer sends one HTML email. Implementations report success as a boolean
// and never panic past their boundary; lifecycle operations treat sends as
// fire-and-forget.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) bool
}

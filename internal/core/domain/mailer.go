package domain

import "context"

// Mailer delivers HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

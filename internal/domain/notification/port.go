package notification

import "context"

// Notifier delivers verification links out of band. Callers treat errors as non-fatal.
type Notifier interface {
	SendVerification(ctx context.Context, email, link string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

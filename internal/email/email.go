// Package email defines the outbound email contract and its Resend-backed
// implementation. Senders must return an error on delivery failure so callers
// can defer dependent state changes (e.g. not marking a budget alert as sent).
package email

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers email messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

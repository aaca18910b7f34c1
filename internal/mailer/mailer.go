// Package mailer is the outbound email collaborator. Endpoints only send
// mail after every admission guard has passed; the delivery provider itself
// is external and reached over HTTP.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Noop logs instead of delivering. Default in development so the service
// runs without provider credentials.
type Noop struct {
	Logger *zap.Logger
}

// Send logs the message envelope and drops it.
func (n *Noop) Send(ctx context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.Info("mail suppressed (noop mailer)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
	}
	return nil
}

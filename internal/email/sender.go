// Package email renders and delivers transactional e-mails.
package email

import (
	"context"
	"fmt"
	"net/mail"
)

// Message is a rendered e-mail ready to be delivered.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message. Implementations can be swapped (SMTP, SendGrid,
// log) without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ParseRecipient splits "Name <address>" into its parts. A bare address is
// accepted too.
func ParseRecipient(raw string) (name, address string, err error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid recipient %q: %w", raw, err)
	}
	return addr.Name, addr.Address, nil
}

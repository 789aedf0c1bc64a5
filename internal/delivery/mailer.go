// internal/delivery/mailer.go

// Package delivery sends rendered notifications through an email
// provider.
package delivery

import (
	"context"
	"fmt"
	"strings"
)

// Message is one outbound email. Body is HTML.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	Headers map[string]string
}

// Mailer is the provider boundary. Send returns the provider's message
// id on synchronous accept; there is no delivery confirmation beyond
// that.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ValidateAddress does the minimal shape check the providers share.
func ValidateAddress(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("empty email address")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

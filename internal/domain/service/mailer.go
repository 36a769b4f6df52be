package service

import (
	"context"
)

// Identity is a mail participant: an address with an optional display name.
type Identity struct {
	Email string
	Name  string
}

// String renders the identity in RFC 5322 form.
func (i Identity) String() string {
	if i.Name == "" {
		return i.Email
	}

	return i.Name + " <" + i.Email + ">"
}

// Mailer defines the interface for sending templated transactional mail.
type Mailer interface {
	// Send renders the named template with the given context and delivers
	// it to the recipient.
	Send(ctx context.Context, to Identity, subject, template string, templateCtx map[string]any) error
}

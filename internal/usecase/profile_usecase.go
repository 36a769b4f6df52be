package usecase

import (
	"context"

	"github.com/google/uuid"
)

// ProfileUsecase defines account activation, deactivation and the emailed
// action links built around the profile token.
type ProfileUsecase interface {
	// Activate confirms the account. Returns false when the account was
	// already active; a real transition rotates the profile token.
	Activate(ctx context.Context, userID uuid.UUID) (bool, error)

	// Deactivate disables the account, bulk-deactivates all of the user's
	// subscriptions and enqueues the deactivation notice email. Returns
	// false when the account was already inactive.
	Deactivate(ctx context.Context, userID uuid.UUID) (bool, error)

	// SendUserKey delivers the confirmation email for a new subscription.
	SendUserKey(ctx context.Context, userID, subID uuid.UUID) error

	// ResendUserKey re-delivers the manage link for an existing account.
	ResendUserKey(ctx context.Context, userID uuid.UUID) error

	// SendDeactivationNotice delivers the account deactivation email.
	SendDeactivationNotice(ctx context.Context, userID uuid.UUID) error

	// ConfirmURL builds the absolute confirmation link for a subscription.
	ConfirmURL(ctx context.Context, userID, subID uuid.UUID) (string, error)

	// ManageURL builds the absolute manage link for the user.
	ManageURL(ctx context.Context, userID uuid.UUID) (string, error)

	// UnsubscribeURL builds the absolute unsubscribe link for the user.
	UnsubscribeURL(ctx context.Context, userID uuid.UUID) (string, error)
}

// ActionLinks bundles the URLs embedded in transactional mail.
type ActionLinks struct {
	Confirm     string
	Manage      string
	Unsubscribe string
}

// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"time"

	"zonewatch/internal/domain/entity"
	"zonewatch/internal/errors"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Domain-specific errors for subscription persistence.
var (
	// ErrSubscriptionNotFound is returned when a subscription is not found.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// SubscriptionRepository defines the interface for subscription-related database operations.
type SubscriptionRepository interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, subscription *entity.Subscription) error

	// UpdateSubscription persists changes to an existing subscription.
	UpdateSubscription(ctx context.Context, subscription *entity.Subscription) error

	// FindSubscriptionByID retrieves a subscription by its unique ID.
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)

	// FindSubscriptionsByUser retrieves all subscriptions for a specific user,
	// newest first.
	FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)

	// FindActiveSubscriptionsByUser retrieves the user's confirmed subscriptions.
	FindActiveSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)

	// DeactivateOthers clears the active timestamp on every confirmed
	// subscription of the user except keepID, returning the affected IDs.
	DeactivateOthers(ctx context.Context, userID, keepID uuid.UUID) ([]uuid.UUID, error)

	// DeactivateAllForUser clears the active timestamp on every confirmed
	// subscription of the user, returning the affected IDs.
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// FindDue retrieves active subscriptions owed a digest as of the given
	// cutoff: never notified and created at or before the cutoff, or last
	// notified before the cutoff.
	FindDue(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error)

	// FindDueForUpdate is FindDue with row locks, skipping rows already
	// locked by a concurrent digest run. Must be called inside a transaction.
	FindDueForUpdate(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error)

	// FindStale retrieves subscriptions that were never confirmed nor
	// notified and were created before the cutoff.
	FindStale(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error)

	// MarkSent stamps last_notified on the given subscriptions in bulk.
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error

	// FindContaining performs a PostGIS geographic query for the active
	// subscriptions whose area contains the given point.
	FindContaining(ctx context.Context, point orb.Point) ([]*entity.Subscription, error)

	// DeleteSubscription removes a subscription by its ID.
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
}

// Package usecase defines the application's use case interfaces.
// These interfaces describe the operations the delivery layer can invoke.
package usecase

import (
	"context"

	"zonewatch/internal/domain/entity"

	"github.com/google/uuid"
)

// SubscribeInput carries a raw subscription request from the delivery layer.
type SubscribeInput struct {
	Email    string
	Language string
	SiteName string

	// Query holds the raw query parameters: box, center, r, region_name, address.
	Query map[string]string
}

// SubscribeResult reports what a subscribe request did.
type SubscribeResult struct {
	Subscription *entity.Subscription
	// NewUser is true when the request created the account.
	NewUser bool
	// Resent is true when an equivalent active subscription already existed
	// and the confirmation mail was re-sent instead of creating a new one.
	Resent bool
}

// SubscriptionUsecase defines the operations for creating and confirming
// subscriptions.
type SubscriptionUsecase interface {
	// Subscribe validates the query, creates the user when needed, stores
	// an unconfirmed subscription and enqueues the confirmation email job.
	Subscribe(ctx context.Context, input *SubscribeInput) (*SubscribeResult, error)

	// SetValidatedQuery parses the raw query parameters onto the
	// subscription, applies site policy and stores the query snapshot.
	SetValidatedQuery(ctx context.Context, sub *entity.Subscription, params map[string]string) error

	// ConfirmSubscription activates a subscription from an emailed link.
	// When the site disallows multiple subscriptions, the user's other
	// active subscriptions are deactivated in the same transaction.
	ConfirmSubscription(ctx context.Context, userID, subID uuid.UUID, token string) (*entity.Subscription, error)

	// ListUserSubscriptions returns the user's subscriptions, newest first.
	ListUserSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)

	// DeleteSubscription removes one of the user's subscriptions.
	DeleteSubscription(ctx context.Context, userID, subID uuid.UUID, token string) error

	// FindSimilar returns the candidates scoring at or above the
	// configured similarity threshold against sub, excluding sub itself.
	FindSimilar(sub *entity.Subscription, candidates []*entity.Subscription) []*entity.Subscription

	// MostSimilar returns the closest match among the candidates, or nil.
	MostSimilar(sub *entity.Subscription, candidates []*entity.Subscription) *entity.Subscription
}

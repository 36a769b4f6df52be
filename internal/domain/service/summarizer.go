package service

import (
	"context"
	"time"

	"zonewatch/internal/domain/entity"
)

// ChangeSummarizer defines the interface for computing what changed inside
// a subscription's area over a time window.
type ChangeSummarizer interface {
	// Summarize collects the proposal updates relevant to the subscription
	// between since and until.
	Summarize(ctx context.Context, sub *entity.Subscription, since, until time.Time) (*entity.UpdateSummary, error)
}

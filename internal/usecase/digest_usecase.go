package usecase

import (
	"context"
	"time"

	"zonewatch/internal/domain/entity"

	"github.com/paulmach/orb"
)

// DigestReport summarizes one digest run.
type DigestReport struct {
	Due    int // Subscriptions owed a digest when the run started.
	Sent   int // Digest emails delivered.
	Empty  int // Subscriptions with nothing to report, marked sent without mail.
	Failed int // Subscriptions left unmarked for the next run.
}

// DigestUsecase drives the periodic notification pipeline.
type DigestUsecase interface {
	// Run processes every subscription due a digest as of now, inside one
	// transaction with row locks so concurrent runs never double-send.
	Run(ctx context.Context, now time.Time) (*DigestReport, error)

	// StaleSweep finds subscriptions that were never confirmed and are old
	// enough to discard, and removes them. Returns how many were swept.
	StaleSweep(ctx context.Context, now time.Time) (int, error)

	// FindContaining returns the active subscriptions whose area contains
	// the point, for ad-hoc "who would hear about this" queries.
	FindContaining(ctx context.Context, point orb.Point) ([]*entity.Subscription, error)
}

package impl

import (
	"context"
	"log/slog"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/entity"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/usecase"
	"zonewatch/internal/util"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// digestService implements the DigestUsecase interface.
type digestService struct {
	txManager  repository.TransactionManager
	summarizer service.ChangeSummarizer
	mailer     service.Mailer
	cfg        *config.Config
	logger     *slog.Logger
}

// NewDigestService is the constructor for digestService.
func NewDigestService(
	txManager repository.TransactionManager,
	summarizer service.ChangeSummarizer,
	mailer service.Mailer,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.DigestUsecase {
	return &digestService{
		txManager:  txManager,
		summarizer: summarizer,
		mailer:     mailer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes every subscription due a digest as of now. The due rows are
// selected FOR UPDATE SKIP LOCKED inside one transaction, so a concurrent
// run simply sees an empty set instead of double-sending. A subscription
// whose summary or mail fails is left unmarked and retried next cycle.
func (srv *digestService) Run(ctx context.Context, now time.Time) (*usecase.DigestReport, error) {
	report := &usecase.DigestReport{}
	cutoff := now.Add(-srv.cfg.Digest.Interval)
	started := time.Now()

	srv.logger.Info("Starting digest run", "cutoff", cutoff)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		subRepo := repoFactory.NewSubscriptionRepository()
		userRepo := repoFactory.NewUserRepository()

		due, err := subRepo.FindDueForUpdate(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to select due subscriptions")
		}
		report.Due = len(due)

		var processed []uuid.UUID
		for _, sub := range due {
			sent, err := srv.process(ctx, userRepo, sub, now)
			if err != nil {
				report.Failed++
				srv.logger.Error("Digest failed for subscription",
					"error", err, "subID", sub.ID, "userID", sub.UserID)

				continue
			}
			if sent {
				report.Sent++
			} else {
				report.Empty++
			}
			processed = append(processed, sub.ID)
		}

		if len(processed) > 0 {
			if err := subRepo.MarkSent(ctx, processed, now); err != nil {
				return errors.Wrap(err, "failed to mark subscriptions sent")
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "digest run failed")
	}

	srv.logger.Info("Digest run finished",
		"due", report.Due, "sent", report.Sent, "empty", report.Empty, "failed", report.Failed,
		"elapsed", util.FormatDuration(time.Since(started)))

	return report, nil
}

// process summarizes and mails one subscription. Returns false when the
// summary was empty and no mail was sent.
func (srv *digestService) process(ctx context.Context, userRepo repository.UserRepository, sub *entity.Subscription, now time.Time) (bool, error) {
	summary, err := srv.summarizer.Summarize(ctx, sub, sub.UpdatesStartDate(now), now)
	if err != nil {
		return false, errors.Wrap(err, "summarize failed")
	}
	if summary.Empty() {
		return false, nil
	}

	user, err := userRepo.FindByID(ctx, sub.UserID)
	if err != nil {
		return false, errors.Wrap(err, "failed to find user")
	}
	profile, err := userRepo.FindProfile(ctx, sub.UserID)
	if err != nil {
		return false, errors.Wrap(err, "failed to find user profile")
	}

	params := map[string]string{"token": profile.Token, "uid": sub.UserID.String()}
	templateCtx := map[string]any{
		"addressal":       profile.Addressal(user),
		"summary":         summary,
		"manage_url":      buildActionURL(srv.cfg, sub.SiteName, "manage", params),
		"unsubscribe_url": buildActionURL(srv.cfg, sub.SiteName, "unsubscribe", params),
	}
	to := service.Identity{Email: user.Email, Name: profile.Addressal(user)}

	if err := srv.mailer.Send(ctx, to, "Zoning updates near you", "digest", templateCtx); err != nil {
		return false, errors.Wrap(err, "mail send failed")
	}

	return true, nil
}

// StaleSweep removes subscriptions that were never confirmed and have aged
// past the configured window.
func (srv *digestService) StaleSweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-srv.cfg.Digest.StaleAfter)
	swept := 0

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		subRepo := repoFactory.NewSubscriptionRepository()

		stale, err := subRepo.FindStale(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to select stale subscriptions")
		}

		for _, sub := range stale {
			if err := subRepo.DeleteSubscription(ctx, sub.ID); err != nil {
				return errors.Wrap(err, "failed to delete stale subscription")
			}
			swept++
		}

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "stale sweep failed")
	}

	if swept > 0 {
		srv.logger.Info("Swept stale subscriptions", "count", swept, "cutoff", cutoff)
	}

	return swept, nil
}

// FindContaining returns the active subscriptions whose area contains the point.
func (srv *digestService) FindContaining(ctx context.Context, point orb.Point) ([]*entity.Subscription, error) {
	var subs []*entity.Subscription

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewSubscriptionRepository().FindContaining(ctx, point)
		if err != nil {
			return errors.Wrap(err, "failed to query containing subscriptions")
		}
		subs = found

		return nil
	})
	if err != nil {
		return nil, err
	}

	return subs, nil
}

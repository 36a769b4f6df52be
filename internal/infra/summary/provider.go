package summary

import (
	"context"
	"log/slog"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/entity"
	"zonewatch/internal/domain/service"
)

// noopSummarizer reports no changes. Used when no proposal data service is
// configured; digests then mark subscriptions as notified without mailing.
type noopSummarizer struct {
	logger *slog.Logger
}

func (s *noopSummarizer) Summarize(_ context.Context, sub *entity.Subscription, since, until time.Time) (*entity.UpdateSummary, error) {
	s.logger.Debug("summary service disabled, reporting no changes",
		slog.String("subscription_id", sub.ID.String()))

	return &entity.UpdateSummary{Since: since, Until: until}, nil
}

// New creates a ChangeSummarizer based on configuration.
func New(cfg *config.Config, logger *slog.Logger) (service.ChangeSummarizer, error) {
	if cfg.Summary == nil || cfg.Summary.Endpoint == "" {
		logger.Info("Summary service not configured, using no-op summarizer")

		return &noopSummarizer{logger: logger}, nil
	}

	return NewHTTPSummarizer(cfg.Summary, logger)
}

package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"zonewatch/config"
	"zonewatch/internal/domain/entity"
	"zonewatch/internal/errors"
)

// HTTPSummarizer asks the proposal data service what changed inside a
// subscription's area over a time window.
type HTTPSummarizer struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPSummarizer creates a ChangeSummarizer backed by the proposal data
// service.
func NewHTTPSummarizer(cfg *config.SummaryConfig, logger *slog.Logger) (*HTTPSummarizer, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("summarizer requires summary.endpoint")
	}

	return &HTTPSummarizer{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

// summaryRequest is the wire form of one summary query.
type summaryRequest struct {
	Query  *entity.SubscriptionQuery `json:"query"`
	Region string                    `json:"region,omitempty"`
	Events bool                      `json:"events,omitempty"`
	Since  time.Time                 `json:"since"`
	Until  time.Time                 `json:"until"`
}

// Summarize collects the proposal updates relevant to the subscription
// between since and until.
func (s *HTTPSummarizer) Summarize(ctx context.Context, sub *entity.Subscription, since, until time.Time) (*entity.UpdateSummary, error) {
	payload, err := json.Marshal(summaryRequest{
		Query:  sub.Query,
		Region: sub.RegionName,
		Events: sub.IncludeEvents,
		Since:  since,
		Until:  until,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode summary request")
	}

	var result entity.UpdateSummary

	err = retry.Do(
		func() error {
			return s.fetch(ctx, payload, &result)
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(15*time.Second),
		retry.MaxJitter(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("summary request failed, retrying",
				slog.Uint64("attempt", uint64(n)+1),
				slog.String("subscription_id", sub.ID.String()),
				slog.Any("error", err))
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "summarize subscription %s", sub.ID)
	}

	return &result, nil
}

func (s *HTTPSummarizer) fetch(ctx context.Context, payload []byte, out *entity.UpdateSummary) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build summary request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "summary request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return errors.Errorf("summary request returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode summary response")
	}

	return nil
}

package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zonewatch/config"
	deliverycontext "zonewatch/internal/delivery/context"
	"zonewatch/internal/domain/constants"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// newRetryableError wraps an error as retryable
func newRetryableError(err error) error {
	return &retryableError{err: err}
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// JobHandler handles Pub/Sub push messages carrying background jobs
type JobHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	profileSvc     usecase.ProfileUsecase
	digestSvc      usecase.DigestUsecase
}

// JobHandlerParams holds dependencies for the JobHandler
type JobHandlerParams struct {
	fx.In

	Config     *config.Config
	Logger     *slog.Logger
	ProfileSvc usecase.ProfileUsecase
	DigestSvc  usecase.DigestUsecase
}

// NewJobHandler creates a new Pub/Sub push handler
func NewJobHandler(params JobHandlerParams) *JobHandler {
	// Push auth only applies to Google-delivered pushes outside development
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvDevelop

	return &JobHandler{
		verifyPushAuth: verifyPushAuth,
		logger:         params.Logger,
		profileSvc:     params.ProfileSvc,
		digestSvc:      params.DigestSvc,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *JobHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.JobEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse job event", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))

	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	reqLogger.Info("[Worker] Processing job event",
		slog.String("job", event.Job),
		slog.String("user_id", event.UserID),
	)

	if err := h.processJob(ctx, &event); err != nil {
		reqLogger.Error("[Worker] Failed to process job",
			slog.String("job", event.Job),
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		// 503 triggers a Pub/Sub redelivery; 200 acknowledges messages
		// that would fail the same way every time
		if isRetryableError(err) {
			return c.NoContent(http.StatusServiceUnavailable)
		}

		return c.NoContent(http.StatusOK)
	}

	reqLogger.Info("[Worker] Job processed successfully",
		slog.String("job", event.Job),
	)

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *JobHandler) extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.JobEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	if event.RequestID != "" {
		return event.RequestID
	}

	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// processJob dispatches one job event to the owning usecase
func (h *JobHandler) processJob(ctx context.Context, event *service.JobEvent) error {
	switch event.Job {
	case constants.JobSendUserKey:
		userID, subID, err := parseEventIDs(event.UserID, event.SubID)
		if err != nil {
			return err
		}

		if err := h.profileSvc.SendUserKey(ctx, userID, subID); err != nil {
			return newRetryableError(err)
		}

	case constants.JobResendUserKey:
		userID, err := uuid.Parse(event.UserID)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := h.profileSvc.ResendUserKey(ctx, userID); err != nil {
			return newRetryableError(err)
		}

	case constants.JobSendDeactivated:
		userID, err := uuid.Parse(event.UserID)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := h.profileSvc.SendDeactivationNotice(ctx, userID); err != nil {
			return newRetryableError(err)
		}

	case constants.JobRunDigest:
		report, err := h.digestSvc.Run(ctx, time.Now())
		if err != nil {
			return newRetryableError(err)
		}

		h.logger.Info("[Worker] Digest run finished",
			slog.Int("due", report.Due),
			slog.Int("sent", report.Sent),
			slog.Int("empty", report.Empty),
			slog.Int("failed", report.Failed),
		)

	case constants.JobStaleSweep:
		swept, err := h.digestSvc.StaleSweep(ctx, time.Now())
		if err != nil {
			return newRetryableError(err)
		}

		h.logger.Info("[Worker] Stale sweep finished", slog.Int("swept", swept))

	default:
		return errors.Errorf("unknown job: %s", event.Job)
	}

	return nil
}

// parseEventIDs parses the user and subscription IDs carried by a job event
func parseEventIDs(userID, subID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.WithStack(err)
	}

	sid, err := uuid.Parse(subID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.WithStack(err)
	}

	return uid, sid, nil
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience must match the push endpoint URL
	scheme := "https"
	if req.TLS == nil {
		scheme = "http" // For local development
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	ctx := req.Context()
	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}

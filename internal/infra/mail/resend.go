package mail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/resend/resend-go/v2"

	"zonewatch/config"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/errors"
)

// ResendMailer delivers templated mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   service.Identity
	logger *slog.Logger
}

// NewResendMailer creates a Resend-backed Mailer.
func NewResendMailer(cfg *config.MailConfig, logger *slog.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend mailer requires mail.apiKey")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("resend mailer requires mail.fromEmail")
	}

	return &ResendMailer{
		client: resend.NewClient(cfg.APIKey),
		from:   service.Identity{Email: cfg.FromEmail, Name: cfg.FromName},
		logger: logger,
	}, nil
}

// Send renders the named template and delivers it, retrying transient API
// failures. The idempotency key is derived from recipient, template and
// subject so a retried digest run cannot double-send the same mail.
func (m *ResendMailer) Send(ctx context.Context, to service.Identity, subject, tmplName string, templateCtx map[string]any) error {
	html, err := render(tmplName, templateCtx)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    m.from.String(),
		To:      []string{to.Email},
		Subject: subject,
		Html:    html,
	}
	options := &resend.SendEmailOptions{
		IdempotencyKey: idempotencyKey(to.Email, tmplName, subject),
	}

	err = retry.Do(
		func() error {
			_, sendErr := m.client.Emails.SendWithOptions(ctx, params, options)

			return sendErr
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Warn("mail send failed, retrying",
				slog.Uint64("attempt", uint64(n)+1),
				slog.String("template", tmplName),
				slog.Any("error", err))
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "send %q mail to %s", tmplName, to.Email)
	}

	m.logger.Debug("mail sent",
		slog.String("template", tmplName),
		slog.String("to", to.Email))

	return nil
}

// idempotencyKey buckets sends by recipient, template, subject and hour.
func idempotencyKey(email, tmplName, subject string) string {
	hour := time.Now().UTC().Format("2006010215")
	sum := sha256.Sum256([]byte(email + "\x00" + tmplName + "\x00" + subject + "\x00" + hour))

	return hex.EncodeToString(sum[:16])
}

package mail

import (
	"log/slog"

	"zonewatch/config"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/errors"
)

// New creates a Mailer from configuration.
func New(cfg *config.Config, logger *slog.Logger) (service.Mailer, error) {
	if cfg.Mail == nil {
		return NewNoopMailer(logger), nil
	}

	switch cfg.Mail.Provider {
	case "resend":
		return NewResendMailer(cfg.Mail, logger)
	case "noop", "":
		return NewNoopMailer(logger), nil
	default:
		return nil, errors.Errorf("unknown mail provider: %s", cfg.Mail.Provider)
	}
}

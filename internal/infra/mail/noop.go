package mail

import (
	"context"
	"log/slog"

	"zonewatch/internal/domain/service"
	"zonewatch/internal/util"
)

// NoopMailer renders mail and logs it instead of delivering. Used in
// development and as the default when no provider is configured.
type NoopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer creates a log-only Mailer.
func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

// Send renders the template so template errors still surface, then logs.
func (m *NoopMailer) Send(_ context.Context, to service.Identity, subject, tmplName string, templateCtx map[string]any) error {
	html, err := render(tmplName, templateCtx)
	if err != nil {
		return err
	}

	m.logger.Info("mail suppressed (noop provider)",
		slog.String("to", to.String()),
		slog.String("subject", subject),
		slog.String("template", tmplName),
		slog.String("body_size", util.FormatBytes(int64(len(html)))))

	return nil
}

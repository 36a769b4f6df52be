package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/infra/geocode"
	logs "zonewatch/internal/infra/log"
	"zonewatch/internal/infra/mail"
	"zonewatch/internal/infra/persistence/postgres"
	"zonewatch/internal/infra/pubsub"
	"zonewatch/internal/infra/qrcode"
	"zonewatch/internal/infra/summary"
	"zonewatch/internal/sitecfg"
	"zonewatch/internal/usecase"
	"zonewatch/internal/usecase/impl"

	"go.uber.org/fx"
)

// runParams holds everything one batch run needs.
type runParams struct {
	fx.In
	fx.Shutdowner

	Logger    *slog.Logger
	DigestSvc usecase.DigestUsecase
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		fx.Invoke(runOnce),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			postgres.NewTransactionManager,
			sitecfg.NewDefault,
			mail.New,
			geocode.New,
			summary.New,
			func(cfg *config.Config) service.QRCodeService {
				if cfg.QRCode == nil {
					return qrcode.NewQRCodeService(0, "")
				}

				return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
			},
		),
		pubsub.Module,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSubscriptionService,
			impl.NewProfileService,
			impl.NewDigestService,
			impl.NewCommentService,
		),
	)
}

// runOnce runs the digest pipeline and the stale sweep once, then shuts the
// application down. Exit status reflects whether the run succeeded.
func runOnce(ctx context.Context, params runParams) {
	go func() {
		now := time.Now()
		failed := false

		report, err := params.DigestSvc.Run(ctx, now)
		if err != nil {
			params.Logger.Error("Digest run failed", slog.Any("error", err))
			failed = true
		} else {
			params.Logger.Info("Digest run finished",
				slog.Int("due", report.Due),
				slog.Int("sent", report.Sent),
				slog.Int("empty", report.Empty),
				slog.Int("failed", report.Failed),
			)
		}

		swept, err := params.DigestSvc.StaleSweep(ctx, now)
		if err != nil {
			params.Logger.Error("Stale sweep failed", slog.Any("error", err))
			failed = true
		} else {
			params.Logger.Info("Stale sweep finished", slog.Int("swept", swept))
		}

		exitCode := 0
		if failed {
			exitCode = 1
		}
		if err := params.Shutdown(fx.ExitCode(exitCode)); err != nil {
			params.Logger.Error("Failed to shutdown gracefully", slog.Any("error", err))
			os.Exit(1)
		}
	}()
}

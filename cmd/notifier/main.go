package main

import (
	"context"
	"log/slog"
	"os"

	"zonewatch/config"
	"zonewatch/internal/delivery"
	"zonewatch/internal/delivery/worker"
	"zonewatch/internal/delivery/worker/handler"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/infra/geocode"
	logs "zonewatch/internal/infra/log"
	"zonewatch/internal/infra/mail"
	"zonewatch/internal/infra/persistence/postgres"
	"zonewatch/internal/infra/pubsub"
	"zonewatch/internal/infra/qrcode"
	"zonewatch/internal/infra/summary"
	"zonewatch/internal/sitecfg"
	"zonewatch/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
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

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTransactionManager,
		),
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

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewJobHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}

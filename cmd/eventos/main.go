package main

import (
	"context"
	"log/slog"
	"os"

	"eventos/config"
	"eventos/internal/delivery"
	"eventos/internal/delivery/api"
	"eventos/internal/delivery/api/middleware"
	"eventos/internal/delivery/api/router/handler"
	"eventos/internal/delivery/worker"
	workerhandler "eventos/internal/delivery/worker/handler"
	"eventos/internal/infra/auth"
	"eventos/internal/infra/cache"
	logs "eventos/internal/infra/log"
	"eventos/internal/infra/mail"
	"eventos/internal/infra/persistence/postgres"
	"eventos/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			impl.RegisterAdminBootstrap,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		fx.Annotate(
			postgres.NewPinger,
			fx.As(new(handler.DatabasePinger)),
		),
		cache.NewRedisClient,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewEventRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			auth.NewRandomTokenGenerator,
			mail.NewMailDispatcher,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewSessionService,
			impl.NewUserService,
			impl.NewEventService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAccessGuard,
			middleware.NewAuthorizer,
			middleware.NewRateLimiter,
			middleware.NewHTTPMetrics,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewUserHandler,
			handler.NewEventHandler,
			handler.NewHealthHandler,
			workerhandler.NewCleanupHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
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
				os.Exit(1)
			}
		}()
	}
}

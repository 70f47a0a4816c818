// Command cleanup runs a single refresh token ledger cleanup pass and exits.
// It is meant for cron jobs when the in-process worker is disabled.
package main

import (
	"context"
	"log/slog"
	"os"

	"eventos/config"
	"eventos/internal/delivery/worker/handler"
	logs "eventos/internal/infra/log"
	"eventos/internal/infra/persistence/postgres"
	"eventos/internal/usecase/impl"

	"go.uber.org/fx"
)

func main() {
	var cleanup *handler.CleanupHandler

	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logs.New,
			postgres.New,
			postgres.NewTransactionManager,
			impl.NewSessionService,
			handler.NewCleanupHandler,
		),
		fx.Populate(&cleanup),
	)
	if err := app.Err(); err != nil {
		slog.Error("Failed to build cleanup command", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start cleanup command", slog.Any("error", err))
		os.Exit(1)
	}

	_, runErr := cleanup.Run(ctx)

	if err := app.Stop(ctx); err != nil {
		slog.Error("Failed to stop cleanup command", slog.Any("error", err))
	}
	if runErr != nil {
		os.Exit(1)
	}
}

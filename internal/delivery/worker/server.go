package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eventos/config"
	"eventos/internal/delivery"
	"eventos/internal/delivery/worker/handler"
	"eventos/internal/domain/lifecycle"
	"eventos/internal/errors"

	"go.uber.org/fx"
)

type workerServer struct {
	enabled  bool
	interval time.Duration
	logger   *slog.Logger
	cleanup  *handler.CleanupHandler

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// ServerParams holds dependencies for the worker server
type ServerParams struct {
	fx.In

	Lc             fx.Lifecycle
	Cfg            *config.Config
	Logger         *slog.Logger
	CleanupHandler *handler.CleanupHandler
}

// NewServer creates the periodic ledger cleanup worker.
func NewServer(params ServerParams) (delivery.Delivery, error) {
	interval := params.Cfg.Cleanup.Interval
	if interval <= 0 {
		return nil, errors.Errorf("cleanup interval must be positive, got %s", interval)
	}

	srv := &workerServer{
		enabled:  params.Cfg.Cleanup.Enabled,
		interval: interval,
		logger:   params.Logger,
		cleanup:  params.CleanupHandler,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// Serve runs a cleanup pass immediately and then every interval until stopped.
// It returns at once when cleanup is disabled.
func (s *workerServer) Serve(ctx context.Context) error {
	defer close(s.done)

	if !s.enabled {
		s.logger.Info("Refresh token cleanup worker disabled")

		return nil
	}

	s.logger.Info("Starting refresh token cleanup worker", slog.Duration("interval", s.interval))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// Failures are logged by the handler; the next tick retries.
		_, _ = s.cleanup.Run(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// stop signals the loop and waits for an in-flight pass to finish.
func (s *workerServer) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down refresh token cleanup worker")
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.done:
		return nil
	case <-shutdownCtx.Done():
		return errors.WithStack(shutdownCtx.Err())
	}
}

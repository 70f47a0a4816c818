package mail

import (
	"context"
	"log/slog"
	"time"

	"eventos/config"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/service"

	"go.uber.org/fx"
)

// Provider names accepted in mail.provider.
const (
	ProviderRabbitMQ = "rabbitmq"
	ProviderLog      = "log"
)

// dispatcher implements service.MailDispatcher. Publish failures are logged
// and reported as false, never returned.
type dispatcher struct {
	links     linkBuilder
	publisher publisher
	logger    *slog.Logger
	now       func() time.Time
}

// DispatcherParams holds dependencies for the mail dispatcher, injected by Fx.
type DispatcherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewMailDispatcher picks the transport from mail.provider. A rabbitmq
// provider that cannot be reached at startup degrades to logging so the API
// still boots.
func NewMailDispatcher(params DispatcherParams) service.MailDispatcher {
	cfg := params.Config.Mail
	logger := params.Logger

	var pub publisher
	switch cfg.Provider {
	case ProviderRabbitMQ:
		amqpPub, err := newAMQPPublisher(cfg.URL, cfg.Queue, logger)
		if err != nil {
			logger.Error("RabbitMQ unavailable, falling back to log mail provider", slog.Any("error", err))
			pub = &logPublisher{logger: logger}
		} else {
			logger.Info("Using RabbitMQ mail publisher", slog.String("queue", cfg.Queue))
			pub = amqpPub
		}
	default:
		logger.Info("Using log mail provider", slog.String("provider", cfg.Provider))
		pub = &logPublisher{logger: logger}
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("Closing mail publisher")

			return pub.Close()
		},
	})

	return newDispatcher(cfg, pub, logger)
}

func newDispatcher(cfg *config.MailConfig, pub publisher, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		links: linkBuilder{
			frontendURL: cfg.FrontendURL,
			brand:       cfg.BrandName,
		},
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *dispatcher) SendVerificationEmail(ctx context.Context, email, nick, token string) bool {
	return d.send(ctx, d.links.verification(email, nick, token))
}

func (d *dispatcher) SendPasswordResetEmail(ctx context.Context, email, nick, token string) bool {
	return d.send(ctx, d.links.passwordReset(email, nick, token))
}

func (d *dispatcher) SendWelcomeEmail(ctx context.Context, email, nick string) bool {
	return d.send(ctx, d.links.welcome(email, nick))
}

func (d *dispatcher) send(ctx context.Context, msg *Message) bool {
	log := deliverycontext.GetLoggerOrDefault(ctx, d.logger)

	msg.CreatedAt = d.now()
	msg.RequestID = deliverycontext.GetRequestIDFromContext(ctx)

	if err := d.publisher.Publish(ctx, msg); err != nil {
		log.Error("Failed to send mail",
			slog.String("template", msg.Template),
			slog.String("to", msg.To),
			slog.Any("error", err),
		)

		return false
	}

	log.Debug("Mail queued", slog.String("template", msg.Template), slog.String("to", msg.To))

	return true
}

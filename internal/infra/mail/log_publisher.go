package mail

import (
	"context"
	"log/slog"
)

// logPublisher only logs messages. Used in development and when no broker is configured.
type logPublisher struct {
	logger *slog.Logger
}

func (p *logPublisher) Publish(ctx context.Context, msg *Message) error {
	p.logger.InfoContext(ctx, "[LogMail] Mail not delivered, logging only",
		slog.String("to", msg.To),
		slog.String("template", msg.Template),
		slog.String("subject", msg.Subject),
	)

	return nil
}

func (p *logPublisher) Close() error {
	return nil
}

package mail

import "context"

// publisher is the outbound transport behind the dispatcher.
type publisher interface {
	Publish(ctx context.Context, msg *Message) error
	Close() error
}

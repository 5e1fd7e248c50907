package queue

import "context"

const (
	// DispatchQueue carries domain events awaiting webhook fan-out.
	DispatchQueue = "webhooks.dispatch"
	// DispatchDLQ receives rejected dispatch messages.
	DispatchDLQ = "dlq.webhooks.dispatch"
)

// Publisher publishes event messages to the dispatch queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EventMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg EventMessage) error

// Consumer consumes event messages from the dispatch queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

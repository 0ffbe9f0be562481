// Package bus provides the publish/subscribe transport between the generator
// and the simulator services.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a bus that has been closed.
var ErrClosed = errors.New("bus closed")

// Handler receives one message. Handlers run on goroutines owned by the bus,
// never on the publisher's.
type Handler func(topic string, payload []byte)

// Bus is a topic-addressed publish/subscribe transport.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, h Handler) error
	Close() error
}

package domain

import "context"

// BookMirror publishes the live book to a shared cache so processes other
// than the ingester can read it.
type BookMirror interface {
	SetSnapshot(ctx context.Context, key string, snap BookSnapshot) error
	GetSnapshot(ctx context.Context, key string) (BookSnapshot, error)
	GetBBO(ctx context.Context, key string) (bestBid, bestAsk float64, err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// Bus channel and stream names.
const (
	ChannelBook       = "ch:book"
	ChannelSimulation = "ch:simulation"
	StreamSimulations = "stream:simulations"
)

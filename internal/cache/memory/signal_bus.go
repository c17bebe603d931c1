// Package memory implements the domain bus interface in-process, for single
// binary deployments that run without Redis.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// defaultStreamMaxLen caps each stream; older entries are trimmed.
const defaultStreamMaxLen = 10000

// SignalBus is an in-process pub/sub with bounded streams. Slow subscribers
// miss messages rather than blocking publishers.
type SignalBus struct {
	mu        sync.RWMutex
	subs      map[string]map[chan []byte]struct{}
	streams   map[string][]domain.StreamMessage
	seq       uint64
	maxStream int
}

// NewSignalBus creates an empty bus. A non-positive maxLen selects 10000.
func NewSignalBus(maxLen int) *SignalBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &SignalBus{
		subs:      make(map[string]map[chan []byte]struct{}),
		streams:   make(map[string][]domain.StreamMessage),
		maxStream: maxLen,
	}
}

// Publish delivers payload to every subscriber whose pattern matches channel.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for pattern, set := range b.subs {
		if !matches(pattern, channel) {
			continue
		}
		for ch := range set {
			select {
			case ch <- payload:
			default:
			}
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. A trailing
// "*" matches any suffix. The returned channel closes when ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// StreamAppend appends payload to stream, trimming the oldest entries beyond
// the configured length.
func (b *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      fmt.Sprintf("%d-0", b.seq),
		Payload: append([]byte(nil), payload...),
	})
	if over := len(msgs) - b.maxStream; over > 0 {
		msgs = append(msgs[:0:0], msgs[over:]...)
	}
	b.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count entries after lastID. "0", "0-0" and ""
// read from the beginning.
func (b *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var after uint64
	if lastID != "" && lastID != "0" && lastID != "0-0" {
		if _, err := fmt.Sscanf(lastID, "%d-0", &after); err != nil {
			return nil, fmt.Errorf("memory: stream read %s: bad id %q", stream, lastID)
		}
	}
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		var id uint64
		fmt.Sscanf(m.ID, "%d-0", &id)
		if id <= after {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out, nil
}

func matches(pattern, channel string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(channel, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == channel
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)

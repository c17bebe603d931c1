package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrEmptyBook             = errors.New("order book is empty")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInvalidRequest        = errors.New("invalid simulation request")
	ErrMalformedLevel        = errors.New("malformed price level")
	ErrWSDisconnect          = errors.New("websocket disconnected")
	ErrDisabled              = errors.New("feature disabled")
)

// TransportError is a connection-level feed failure. The ingester recovers
// from it by reconnecting; it never reaches simulation callers.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

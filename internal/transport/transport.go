// Package transport provides byte-stream links to RTU devices.
package transport

import (
	"context"
	"errors"
)

var (
	ErrNotOpen     = errors.New("transport: not open")
	ErrAlreadyOpen = errors.New("transport: already open")
	ErrUnknownType = errors.New("transport: unknown type")
)

// Transport is an ordered byte stream without message boundaries.
type Transport interface {
	// Open establishes the link and starts delivering chunks.
	Open(ctx context.Context) error
	// Close tears the link down. Chunks is closed once the reader exits.
	Close() error
	IsOpen() bool
	Write(p []byte) (int, error)
	// Chunks delivers received bytes in arrival order. Each slice is owned by
	// the receiver.
	Chunks() <-chan []byte
}

package transport

import (
	"context"
	"sync"
)

// Memory is an in-process Transport. Bytes written are recorded; bytes
// passed to Inject are delivered as received chunks.
type Memory struct {
	mu      sync.Mutex
	open    bool
	closed  bool
	written [][]byte
	chunks  chan []byte

	// OnWrite, when set, is called with each written request. It runs with
	// no lock held and may call Inject.
	OnWrite func(p []byte)
}

func NewMemory(queue int) *Memory {
	if queue <= 0 {
		queue = 16
	}
	return &Memory{chunks: make(chan []byte, queue)}
}

func (m *Memory) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return ErrAlreadyOpen
	}
	m.open = true
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	if !m.closed {
		m.closed = true
		close(m.chunks)
	}
	return nil
}

func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return 0, ErrNotOpen
	}
	cp := append([]byte(nil), p...)
	m.written = append(m.written, cp)
	hook := m.OnWrite
	m.mu.Unlock()

	if hook != nil {
		hook(cp)
	}
	return len(p), nil
}

// Inject delivers p as one received chunk.
func (m *Memory) Inject(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	m.chunks <- append([]byte(nil), p...)
	return nil
}

// Written returns every request written so far.
func (m *Memory) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.written...)
}

func (m *Memory) Chunks() <-chan []byte {
	return m.chunks
}

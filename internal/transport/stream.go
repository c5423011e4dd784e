package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"firestige.xyz/rtuport/internal/log"
)

const defaultReadSize = 256

type dialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// stream adapts a blocking io.ReadWriteCloser into a Transport by running a
// reader goroutine that forwards each read as a chunk.
type stream struct {
	name     string
	dial     dialFunc
	readSize int

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	chunks chan []byte
	done   chan struct{}
}

func newStream(name string, dial dialFunc, readSize, queue int) *stream {
	if readSize <= 0 {
		readSize = defaultReadSize
	}
	if queue <= 0 {
		queue = 16
	}
	return &stream{
		name:     name,
		dial:     dial,
		readSize: readSize,
		chunks:   make(chan []byte, queue),
	}
}

func (s *stream) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return ErrAlreadyOpen
	}
	if s.done != nil {
		// the chunk channel of a previous session is closed
		return errors.New("transport: cannot reopen a closed transport")
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.conn = conn
	s.done = make(chan struct{})

	go s.readLoop(conn, s.done)

	log.GetLogger().WithField("transport", s.name).Info("transport opened")
	return nil
}

func (s *stream) readLoop(conn io.Reader, done chan struct{}) {
	defer close(s.chunks)
	logger := log.GetLogger().WithField("transport", s.name)

	buf := make([]byte, s.readSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case <-done:
				// closed by us
			default:
				if !isClosedErr(err) {
					logger.WithError(err).Warn("transport read failed")
				}
			}
			return
		}
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	close(s.done)
	err := s.conn.Close()
	s.conn = nil

	log.GetLogger().WithField("transport", s.name).Info("transport closed")
	return err
}

func (s *stream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return 0, ErrNotOpen
	}
	return conn.Write(p)
}

func (s *stream) Chunks() <-chan []byte {
	return s.chunks
}

// Package port couples a byte-stream transport with an RTU frame assembler.
package port

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"firestige.xyz/rtuport/internal/log"
	"firestige.xyz/rtuport/internal/metrics"
	"firestige.xyz/rtuport/internal/rtu"
	"firestige.xyz/rtuport/internal/transport"
)

var ErrClosed = errors.New("port: closed")

// Options configures a Port.
type Options struct {
	// Name labels logs and metrics.
	Name      string
	Assembler rtu.AssemblerOptions
	// IdleReset drops buffered bytes once the line has been quiet this long.
	// Zero disables it.
	IdleReset time.Duration
	// FrameQueue is the capacity of the Frames channel.
	FrameQueue int
}

// Port is a buffered RTU port. Writes record the expected response shape
// before the request reaches the transport; received bytes are assembled
// into frames and published on Frames in stream order.
type Port struct {
	name string
	tr   transport.Transport
	opts Options

	// mu guards the assembler's shape and buffer as one unit.
	mu        sync.Mutex
	assembler *rtu.Assembler

	frames chan rtu.Frame
	errs   chan error
	stop   chan struct{}
	wg     sync.WaitGroup

	stateMu sync.Mutex
	running bool
	closed  bool

	logger log.Logger
}

func New(tr transport.Transport, opts Options) *Port {
	if opts.FrameQueue <= 0 {
		opts.FrameQueue = 16
	}
	if opts.Name == "" {
		opts.Name = "rtu"
	}
	return &Port{
		name:      opts.Name,
		tr:        tr,
		opts:      opts,
		assembler: rtu.NewAssembler(opts.Assembler),
		frames:    make(chan rtu.Frame, opts.FrameQueue),
		errs:      make(chan error, 1),
		stop:      make(chan struct{}),
		logger:    log.GetLogger().WithField("port", opts.Name),
	}
}

// Open opens the transport and starts the receive loop.
func (p *Port) Open(ctx context.Context) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.running {
		return nil
	}
	if err := p.tr.Open(ctx); err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	p.running = true

	p.wg.Add(1)
	go p.receiveLoop()

	p.logger.Info("port opened")
	return nil
}

// Close stops the receive loop and closes the transport. Frames is closed
// once the loop has exited.
func (p *Port) Close() error {
	p.stateMu.Lock()
	if p.closed {
		p.stateMu.Unlock()
		return nil
	}
	p.closed = true
	wasRunning := p.running
	p.running = false
	p.stateMu.Unlock()

	close(p.stop)
	err := p.tr.Close()
	if wasRunning {
		p.wg.Wait()
	} else {
		close(p.frames)
	}

	p.logger.Info("port closed")
	return err
}

func (p *Port) IsOpen() bool {
	return p.tr.IsOpen()
}

// Write records the response shape for req and sends it. Requests shorter
// than the minimum header are rejected without being sent. Requests with an
// unknown function code are sent, but no response frame will be extracted.
func (p *Port) Write(req []byte) error {
	p.mu.Lock()
	err := p.assembler.OnRequestSent(req)
	shape := p.assembler.Shape()
	p.mu.Unlock()

	switch {
	case errors.Is(err, rtu.ErrInvalidRequest):
		metrics.RequestsTotal.WithLabelValues(p.name, "invalid").Inc()
		return err
	case errors.Is(err, rtu.ErrUnrecognizedFunction):
		metrics.RequestsTotal.WithLabelValues(p.name, "unrecognized").Inc()
		p.logger.WithError(err).Debug("response length unknown, frames will not be extracted")
	}

	if _, werr := p.tr.Write(req); werr != nil {
		metrics.RequestsTotal.WithLabelValues(p.name, "error").Inc()
		return fmt.Errorf("failed to write request: %w", werr)
	}
	if err == nil {
		metrics.RequestsTotal.WithLabelValues(p.name, "ok").Inc()
	}
	if p.logger.IsDebugEnabled() {
		p.logger.WithField("shape", shape.String()).Debugf("request written: % X", req)
	}
	return nil
}

// Shape returns the response shape pending for the last request.
func (p *Port) Shape() rtu.Shape {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assembler.Shape()
}

// Buffered returns the number of received bytes awaiting a frame.
func (p *Port) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assembler.Buffered()
}

// Reset drops buffered bytes.
func (p *Port) Reset() {
	p.mu.Lock()
	n := p.assembler.Buffered()
	p.assembler.Reset()
	p.mu.Unlock()
	metrics.BufferedBytes.WithLabelValues(p.name).Set(0)
	p.logger.Debugf("buffer reset, %d bytes dropped", n)
}

// Frames delivers validated response frames in stream order.
func (p *Port) Frames() <-chan rtu.Frame {
	return p.frames
}

// Errors delivers buffer overflow errors when the assembler is configured
// with rtu.OverflowError. Errors are dropped if nobody is reading.
func (p *Port) Errors() <-chan error {
	return p.errs
}

func (p *Port) receiveLoop() {
	defer p.wg.Done()
	defer close(p.frames)

	var idle <-chan time.Time
	var timer *time.Timer
	if p.opts.IdleReset > 0 {
		timer = time.NewTimer(p.opts.IdleReset)
		defer timer.Stop()
		idle = timer.C
	}

	chunks := p.tr.Chunks()
	for {
		select {
		case <-p.stop:
			return
		case chunk, ok := <-chunks:
			if !ok {
				p.logger.Debug("transport stopped delivering")
				return
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(p.opts.IdleReset)
			}
			if !p.handle(chunk) {
				return
			}
		case <-idle:
			if n := p.Buffered(); n > 0 {
				metrics.BytesDiscardedTotal.WithLabelValues(p.name, metrics.ReasonIdle).Add(float64(n))
				p.Reset()
			}
			timer.Reset(p.opts.IdleReset)
		}
	}
}

// handle feeds one chunk and publishes the frames found. It returns false if
// the port was stopped while publishing.
func (p *Port) handle(chunk []byte) bool {
	metrics.BytesReceivedTotal.WithLabelValues(p.name).Add(float64(len(chunk)))

	p.mu.Lock()
	before := p.assembler.Buffered() + len(chunk)
	overflows := p.assembler.Overflows()
	frames, err := p.assembler.OnBytesReceived(chunk)
	after := p.assembler.Buffered()
	overflowed := p.assembler.Overflows() != overflows
	p.mu.Unlock()

	framed := 0
	for _, f := range frames {
		framed += f.Len()
	}
	if dropped := before - after - framed; dropped > 0 {
		reason := metrics.ReasonNoise
		if overflowed {
			reason = metrics.ReasonOverflow
			p.logger.Warnf("receive buffer limit exceeded, %d bytes dropped", dropped)
		}
		metrics.BytesDiscardedTotal.WithLabelValues(p.name, reason).Add(float64(dropped))
	}
	metrics.BufferedBytes.WithLabelValues(p.name).Set(float64(after))

	if err != nil {
		select {
		case p.errs <- err:
		default:
		}
	}

	for _, f := range frames {
		kind := "normal"
		if f.IsException() {
			kind = "exception"
		}
		metrics.FramesTotal.WithLabelValues(p.name, kind).Inc()
		metrics.FrameSizeBytes.WithLabelValues(p.name).Observe(float64(f.Len()))

		select {
		case p.frames <- f:
		case <-p.stop:
			return false
		}
	}
	return true
}

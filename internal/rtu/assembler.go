package rtu

import (
	"fmt"
	"strings"
)

// OverflowPolicy decides what happens when the retained receive buffer grows
// past the configured limit.
type OverflowPolicy int

const (
	// OverflowReset silently discards the retained bytes.
	OverflowReset OverflowPolicy = iota
	// OverflowError discards the retained bytes and reports ErrBufferOverflow.
	OverflowError
)

// ParseOverflowPolicy converts the textual policy used in configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reset":
		return OverflowReset, nil
	case "error":
		return OverflowError, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

func (p OverflowPolicy) String() string {
	if p == OverflowError {
		return "error"
	}
	return "reset"
}

// AssemblerOptions bounds the receive buffer. A zero MaxBuffer means unbounded.
type AssemblerOptions struct {
	MaxBuffer int
	Overflow  OverflowPolicy
}

// Assembler extracts response frames from an unframed byte stream using the
// shape of the last request written. It is not safe for concurrent use; the
// caller must guard the shape and buffer together.
type Assembler struct {
	opts  AssemblerOptions
	buf   []byte
	shape Shape
	seq   uint64

	overflows uint64
}

func NewAssembler(opts AssemblerOptions) *Assembler {
	return &Assembler{opts: opts}
}

// OnRequestSent replaces the pending shape with the one predicted for req.
// The shape is replaced even when prediction fails, in which case nothing
// will match until the next valid request. The buffer is left untouched.
func (a *Assembler) OnRequestSent(req []byte) error {
	shape, err := Predict(req)
	a.seq++
	shape.Seq = a.seq
	a.shape = shape
	return err
}

// OnBytesReceived appends chunk to the buffer and returns every frame that
// can now be extracted, in stream order. Bytes after the last extracted
// frame stay buffered for the next call.
func (a *Assembler) OnBytesReceived(chunk []byte) ([]Frame, error) {
	a.buf = append(a.buf, chunk...)

	if !a.shape.Matchable() || len(a.buf) < ExceptionLen {
		return a.enforceLimit(nil)
	}

	var (
		frames   []Frame
		consumed int
	)
	for i := 0; i+ExceptionLen <= len(a.buf); {
		n := a.match(i)
		if n == 0 {
			i++
			continue
		}
		data := make([]byte, n)
		copy(data, a.buf[i:i+n])
		frames = append(frames, Frame{Data: data, Seq: a.shape.Seq})
		i += n
		consumed = i
	}

	if consumed > 0 {
		a.buf = append(a.buf[:0], a.buf[consumed:]...)
	}
	return a.enforceLimit(frames)
}

// match returns the length of the valid candidate starting at offset i, or 0.
func (a *Assembler) match(i int) int {
	l := a.shape.Length
	if i+l <= len(a.buf) && a.valid(a.buf[i:i+l]) {
		return l
	}
	if l != ExceptionLen && a.valid(a.buf[i:i+ExceptionLen]) {
		return ExceptionLen
	}
	return 0
}

func (a *Assembler) valid(window []byte) bool {
	return window[0] == a.shape.UnitID &&
		window[1]&0x7F == a.shape.Function &&
		validChecksum(window)
}

func (a *Assembler) enforceLimit(frames []Frame) ([]Frame, error) {
	if a.opts.MaxBuffer <= 0 || len(a.buf) <= a.opts.MaxBuffer {
		return frames, nil
	}
	n := len(a.buf)
	a.Reset()
	a.overflows++
	if a.opts.Overflow == OverflowError {
		return frames, fmt.Errorf("%w: %d bytes retained, limit %d", ErrBufferOverflow, n, a.opts.MaxBuffer)
	}
	return frames, nil
}

// Reset drops all buffered bytes. The pending shape is kept.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

// Buffered returns the number of bytes waiting for a match.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

// Overflows returns how many times the buffer limit has been hit.
func (a *Assembler) Overflows() uint64 {
	return a.overflows
}

// Shape returns the pending response shape.
func (a *Assembler) Shape() Shape {
	return a.shape
}

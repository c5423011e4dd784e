package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

const TypeTCP = "tcp"

// TCPOptions configures a raw TCP tunnel to a serial gateway. The gateway
// forwards RTU bytes unchanged, so framing is still required.
type TCPOptions struct {
	Address     string        `mapstructure:"address" yaml:"address"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadSize    int           `mapstructure:"read_size" yaml:"read_size"`
	Queue       int           `mapstructure:"queue" yaml:"queue"`
}

// NewTCP returns a Transport over a TCP connection.
func NewTCP(opts TCPOptions) (Transport, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("tcp transport requires 'address'")
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", opts.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", opts.Address, err)
		}
		return conn, nil
	}
	return newStream(TypeTCP+":"+opts.Address, dial, opts.ReadSize, opts.Queue), nil
}

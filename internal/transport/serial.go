package transport

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
)

const TypeSerial = "serial"

// SerialOptions configures a serial line. Zero values fall back to 9600 8N1.
type SerialOptions struct {
	Device   string `mapstructure:"device" yaml:"device"`
	BaudRate int    `mapstructure:"baud_rate" yaml:"baud_rate"`
	DataBits int    `mapstructure:"data_bits" yaml:"data_bits"`
	Parity   string `mapstructure:"parity" yaml:"parity"`
	StopBits int    `mapstructure:"stop_bits" yaml:"stop_bits"`
	ReadSize int    `mapstructure:"read_size" yaml:"read_size"`
	Queue    int    `mapstructure:"queue" yaml:"queue"`
}

// NewSerial returns a Transport over a local serial device.
func NewSerial(opts SerialOptions) (Transport, error) {
	if opts.Device == "" {
		return nil, fmt.Errorf("serial transport requires 'device'")
	}
	mode, err := opts.mode()
	if err != nil {
		return nil, err
	}
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		port, err := serial.Open(opts.Device, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial device %s: %w", opts.Device, err)
		}
		return port, nil
	}
	return newStream(TypeSerial+":"+opts.Device, dial, opts.ReadSize, opts.Queue), nil
}

func (o SerialOptions) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch strings.ToLower(o.Parity) {
	case "", "none", "n":
	case "even", "e":
		mode.Parity = serial.EvenParity
	case "odd", "o":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity: %s (must be none/even/odd)", o.Parity)
	}

	switch o.StopBits {
	case 0, 1:
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", o.StopBits)
	}
	return mode, nil
}

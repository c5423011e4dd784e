// Package rtu implements Modbus RTU response framing over an unframed byte stream.
package rtu

import "errors"

// Sentinel errors following the errors.Is pattern used across the module.
var (
	// Request inspection errors
	ErrInvalidRequest       = errors.New("rtu: request shorter than minimum header")
	ErrUnrecognizedFunction = errors.New("rtu: unrecognized function code")

	// Buffer errors
	ErrBufferOverflow = errors.New("rtu: receive buffer limit exceeded")
)

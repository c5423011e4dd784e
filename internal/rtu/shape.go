package rtu

import (
	"encoding/binary"
	"fmt"
)

const (
	// MinRequestLen covers unit id, function code and the four address/quantity bytes.
	MinRequestLen = 6
	// ExceptionLen is the fixed size of an exception response.
	ExceptionLen = 5
)

// Function codes with a predictable response length.
const (
	FuncReadCoils              byte = 0x01
	FuncReadDiscreteInputs     byte = 0x02
	FuncReadHoldingRegisters   byte = 0x03
	FuncReadInputRegisters     byte = 0x04
	FuncWriteSingleCoil        byte = 0x05
	FuncWriteSingleRegister    byte = 0x06
	FuncWriteMultipleCoils     byte = 0x0F
	FuncWriteMultipleRegisters byte = 0x10
)

// Shape is the predicted identity and length of the next response frame.
// The zero Shape never matches anything.
type Shape struct {
	UnitID   byte
	Function byte
	Length   int
	// Seq identifies the request the shape was derived from. Zero until a
	// request has been seen by an Assembler.
	Seq uint64
}

// Matchable reports whether scanning can find a frame for this shape.
func (s Shape) Matchable() bool {
	return s.Length >= MinRequestLen
}

func (s Shape) String() string {
	return fmt.Sprintf("unit=%d func=0x%02X len=%d seq=%d", s.UnitID, s.Function, s.Length, s.Seq)
}

// Predict derives the response shape for an outgoing request frame.
//
// Requests shorter than MinRequestLen yield ErrInvalidRequest and a zero
// Shape. Unknown function codes yield a Shape with Length 0 together with
// ErrUnrecognizedFunction.
func Predict(req []byte) (Shape, error) {
	if len(req) < MinRequestLen {
		return Shape{}, fmt.Errorf("%w: got %d bytes", ErrInvalidRequest, len(req))
	}

	s := Shape{UnitID: req[0], Function: req[1]}
	quantity := int(binary.BigEndian.Uint16(req[4:6]))

	switch s.Function {
	case FuncReadCoils, FuncReadDiscreteInputs:
		// truncating division; quantity 0 gives one data byte
		s.Length = 3 + ((quantity-1)/8 + 1) + 2
	case FuncReadHoldingRegisters, FuncReadInputRegisters:
		s.Length = 3 + 2*quantity + 2
	case FuncWriteSingleCoil, FuncWriteSingleRegister,
		FuncWriteMultipleCoils, FuncWriteMultipleRegisters:
		s.Length = 8
	default:
		return s, fmt.Errorf("%w: 0x%02X", ErrUnrecognizedFunction, s.Function)
	}
	return s, nil
}

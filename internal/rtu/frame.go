package rtu

import "encoding/hex"

// Frame is a checksum-validated response frame. Data is owned by the Frame.
type Frame struct {
	Data []byte
	// Seq is the sequence number of the request shape this frame matched.
	Seq uint64
}

func (f Frame) Len() int { return len(f.Data) }

func (f Frame) UnitID() byte { return f.Data[0] }

// Function returns the function code with the exception bit masked off.
func (f Frame) Function() byte { return f.Data[1] & 0x7F }

// IsException reports whether the device answered with an exception response.
func (f Frame) IsException() bool {
	return len(f.Data) == ExceptionLen && f.Data[1]&0x80 != 0
}

// ExceptionCode returns the exception code of an exception frame, or 0.
func (f Frame) ExceptionCode() byte {
	if !f.IsException() {
		return 0
	}
	return f.Data[2]
}

// PDU returns the frame without unit id and checksum.
func (f Frame) PDU() []byte {
	return f.Data[1 : len(f.Data)-2]
}

func (f Frame) Hex() string {
	return hex.EncodeToString(f.Data)
}

package rtu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerResponse builds a checksummed read-registers response for unit 1
// with count registers. Data bytes never equal the unit id.
func registerResponse(count int) []byte {
	resp := []byte{0x01, FuncReadHoldingRegisters, byte(2 * count)}
	for i := 0; i < 2*count; i++ {
		resp = append(resp, byte(0x10+i))
	}
	return AppendChecksum(resp)
}

func exceptionResponse(fn, code byte) []byte {
	return AppendChecksum([]byte{0x01, fn | 0x80, code})
}

func newReadAssembler(t *testing.T, opts AssemblerOptions) *Assembler {
	t.Helper()
	a := NewAssembler(opts)
	require.NoError(t, a.OnRequestSent(request(1, FuncReadHoldingRegisters, 0, 10)))
	require.Equal(t, 25, a.Shape().Length)
	return a
}

func TestAssembler_SingleFrame(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	resp := registerResponse(10)
	require.Len(t, resp, 25)

	frames, err := a.OnBytesReceived(resp)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, resp, frames[0].Data)
	assert.Equal(t, 0, a.Buffered())
	assert.False(t, frames[0].IsException())
	assert.Equal(t, byte(1), frames[0].UnitID())
	assert.Equal(t, FuncReadHoldingRegisters, frames[0].Function())
}

func TestAssembler_FrameDoesNotAliasBuffer(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	resp := registerResponse(10)

	frames, err := a.OnBytesReceived(append(resp, 0x01, 0x03))
	require.NoError(t, err)
	require.Len(t, frames, 1)

	_, err = a.OnBytesReceived([]byte{0xEE, 0xEE, 0xEE, 0xEE})
	require.NoError(t, err)
	assert.Equal(t, resp, frames[0].Data)
}

func TestAssembler_ExceptionFrame(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	exc := exceptionResponse(FuncReadHoldingRegisters, 0x02)

	frames, err := a.OnBytesReceived(exc)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, exc, frames[0].Data)
	assert.True(t, frames[0].IsException())
	assert.Equal(t, byte(0x02), frames[0].ExceptionCode())
	assert.Equal(t, FuncReadHoldingRegisters, frames[0].Function())
	assert.Equal(t, 0, a.Buffered())
}

func TestAssembler_SplitDelivery(t *testing.T) {
	resp := registerResponse(10)

	for split := 1; split < len(resp); split++ {
		a := newReadAssembler(t, AssemblerOptions{})

		frames, err := a.OnBytesReceived(resp[:split])
		require.NoError(t, err)
		if len(frames) != 0 {
			t.Fatalf("split %d: got %d frames after first chunk, expected none", split, len(frames))
		}
		assert.Equal(t, split, a.Buffered())

		frames, err = a.OnBytesReceived(resp[split:])
		require.NoError(t, err)
		require.Len(t, frames, 1, "split %d", split)
		assert.Equal(t, resp, frames[0].Data)
		assert.Equal(t, 0, a.Buffered())
	}
}

func TestAssembler_NoiseResilience(t *testing.T) {
	resp := registerResponse(10)
	pattern := []byte{0x00, 0xAA, 0x55, 0xFF}

	for n := 0; n < len(resp); n++ {
		noise := bytes.Repeat(pattern, n/len(pattern)+1)[:n]
		a := newReadAssembler(t, AssemblerOptions{})

		frames, err := a.OnBytesReceived(append(noise, resp...))
		require.NoError(t, err)
		require.Len(t, frames, 1, "noise %d", n)
		assert.Equal(t, resp, frames[0].Data)
		assert.Equal(t, 0, a.Buffered())
	}
}

func TestAssembler_MultiFrameBatch(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	first := registerResponse(10)
	second := registerResponse(10)
	second[3] = 0x7F
	second = AppendChecksum(second[:len(second)-2])

	frames, err := a.OnBytesReceived(append(append([]byte{}, first...), second...))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, first, frames[0].Data)
	assert.Equal(t, second, frames[1].Data)
	assert.Equal(t, 0, a.Buffered())
}

func TestAssembler_RetainsTrailingFragment(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	resp := registerResponse(10)

	frames, err := a.OnBytesReceived(append(append([]byte{}, resp...), resp[:7]...))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 7, a.Buffered())

	frames, err = a.OnBytesReceived(resp[7:])
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, resp, frames[0].Data)
	assert.Equal(t, 0, a.Buffered())
}

func TestAssembler_NoMatchKeepsBuffer(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	resp := registerResponse(10)
	resp[10] ^= 0xFF

	frames, err := a.OnBytesReceived(resp)
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, len(resp), a.Buffered())
}

func TestAssembler_WrongIdentity(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
	}{
		{"other unit", AppendChecksum(append([]byte{0x02}, registerResponse(10)[1:23]...))},
		{"other function", AppendChecksum(append([]byte{0x01, FuncReadInputRegisters}, registerResponse(10)[2:23]...))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newReadAssembler(t, AssemblerOptions{})
			frames, err := a.OnBytesReceived(tt.resp)
			require.NoError(t, err)
			assert.Empty(t, frames)
		})
	}
}

func TestAssembler_ShortBuffer(t *testing.T) {
	a := NewAssembler(AssemblerOptions{})
	require.NoError(t, a.OnRequestSent(request(1, FuncWriteSingleRegister, 1, 3)))

	frames, err := a.OnBytesReceived([]byte{0x01, 0x06, 0x00, 0x01})
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, 4, a.Buffered())
}

func TestAssembler_WriteEcho(t *testing.T) {
	a := NewAssembler(AssemblerOptions{})
	req := request(1, FuncWriteSingleRegister, 0x0001, 0x0003)
	require.NoError(t, a.OnRequestSent(req))

	frames, err := a.OnBytesReceived(req)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, req, frames[0].Data)
	assert.Equal(t, []byte{0x06, 0x00, 0x01, 0x00, 0x03}, frames[0].PDU())
}

func TestAssembler_NoShape(t *testing.T) {
	a := NewAssembler(AssemblerOptions{})
	resp := registerResponse(10)

	frames, err := a.OnBytesReceived(resp)
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, len(resp), a.Buffered())
}

func TestAssembler_InvalidRequestClearsShape(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})

	err := a.OnRequestSent([]byte{0x01, 0x03, 0x00})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.False(t, a.Shape().Matchable())

	frames, err := a.OnBytesReceived(registerResponse(10))
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestAssembler_UnrecognizedFunction(t *testing.T) {
	a := NewAssembler(AssemblerOptions{})
	err := a.OnRequestSent(request(1, 0x2B, 0x0E01, 0x0000))
	assert.ErrorIs(t, err, ErrUnrecognizedFunction)

	frames, err := a.OnBytesReceived(exceptionResponse(0x2B, 0x01))
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestAssembler_RequestKeepsBuffer(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{})
	resp := registerResponse(10)

	_, err := a.OnBytesReceived(resp[:12])
	require.NoError(t, err)
	require.NoError(t, a.OnRequestSent(request(1, FuncReadHoldingRegisters, 0, 10)))
	assert.Equal(t, 12, a.Buffered())

	frames, err := a.OnBytesReceived(resp[12:])
	require.NoError(t, err)
	require.Len(t, frames, 1)
}

func TestAssembler_SequenceTagging(t *testing.T) {
	a := NewAssembler(AssemblerOptions{})
	require.NoError(t, a.OnRequestSent(request(1, FuncReadHoldingRegisters, 0, 10)))
	first := a.Shape().Seq
	require.NoError(t, a.OnRequestSent(request(1, FuncReadHoldingRegisters, 0, 10)))
	second := a.Shape().Seq
	assert.Greater(t, second, first)

	frames, err := a.OnBytesReceived(registerResponse(10))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, second, frames[0].Seq)
}

func TestAssembler_OverflowReset(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{MaxBuffer: 32, Overflow: OverflowReset})

	frames, err := a.OnBytesReceived(bytes.Repeat([]byte{0xEE}, 40))
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, 0, a.Buffered())
	assert.Equal(t, uint64(1), a.Overflows())

	frames, err = a.OnBytesReceived(registerResponse(10))
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestAssembler_OverflowError(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{MaxBuffer: 32, Overflow: OverflowError})
	resp := registerResponse(10)

	chunk := append(append([]byte{}, resp...), bytes.Repeat([]byte{0xEE}, 40)...)
	frames, err := a.OnBytesReceived(chunk)
	assert.ErrorIs(t, err, ErrBufferOverflow)
	require.Len(t, frames, 1)
	assert.Equal(t, resp, frames[0].Data)
	assert.Equal(t, 0, a.Buffered())
}

func TestAssembler_WithinLimit(t *testing.T) {
	a := newReadAssembler(t, AssemblerOptions{MaxBuffer: 32, Overflow: OverflowError})

	frames, err := a.OnBytesReceived(bytes.Repeat([]byte{0xEE}, 32))
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, 32, a.Buffered())
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected OverflowPolicy
		wantErr  bool
	}{
		{"", OverflowReset, false},
		{"reset", OverflowReset, false},
		{"RESET", OverflowReset, false},
		{"error", OverflowError, false},
		{"drop", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseOverflowPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.Equal(t, tt.expected.String(), p.String())
		})
	}
}

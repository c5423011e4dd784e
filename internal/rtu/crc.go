package rtu

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the CRC-16/MODBUS of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// AppendChecksum appends the little-endian CRC of data to data.
func AppendChecksum(data []byte) []byte {
	return binary.LittleEndian.AppendUint16(data, Checksum(data))
}

// validChecksum reports whether the trailing two bytes of window hold the
// CRC of everything before them.
func validChecksum(window []byte) bool {
	n := len(window)
	if n < 3 {
		return false
	}
	return binary.LittleEndian.Uint16(window[n-2:]) == Checksum(window[:n-2])
}

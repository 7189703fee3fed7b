package hdlc

import "github.com/sigurn/crc16"

// Both check sequences use CRC-16/X-25: reflected polynomial 0x1021,
// initial value 0xFFFF, final XOR 0xFFFF. They are transmitted least
// significant byte first.
var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Checksum returns the CRC-16/X-25 checksum of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

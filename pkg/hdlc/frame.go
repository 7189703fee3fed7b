// Package hdlc frames and validates the byte stream pushed by a meter's HAN
// port: flag-delimited, byte-stuffed frames of format type 3 with a header
// check sequence and a whole-frame check sequence.
package hdlc

import (
	"errors"
	"fmt"
)

// Frame layout between the flags, after de-stuffing:
//
//	format   2 bytes   type nibble 0b1010, segmentation bit, 11-bit length
//	dest     1-4 bytes variable-length address, bit 0 marks the final byte
//	src      1-4 bytes
//	control  1 byte
//	HCS      2 bytes   check sequence over format..control
//	info     0-n bytes
//	FCS      2 bytes   check sequence over format..info
//
// The length field counts every de-stuffed byte between the flags.

const (
	formatType = 0xA
	maxAddrLen = 4
)

var (
	ErrFrameTooShort  = errors.New("hdlc: frame too short")
	ErrInvalidFormat  = errors.New("hdlc: invalid frame format")
	ErrLengthMismatch = errors.New("hdlc: frame length mismatch")
	ErrInvalidAddress = errors.New("hdlc: invalid address field")
	ErrHeaderChecksum = errors.New("hdlc: header check sequence mismatch")
	ErrFrameChecksum  = errors.New("hdlc: frame check sequence mismatch")

	// ErrFrameTooLarge and ErrInvalidEscape are the error forms of the
	// synchronizer events, for callers that decode a single buffer.
	ErrFrameTooLarge = errors.New("hdlc: frame exceeds capacity")
	ErrInvalidEscape = errors.New("hdlc: flag inside escape sequence")
)

// FrameHeader is the decoded fixed part of a frame.
type FrameHeader struct {
	Format      uint16
	Segmented   bool
	Length      int
	Destination uint32
	Source      uint32
	Control     byte
	HCS         uint16
	FCS         uint16
}

// Parse validates a candidate frame and returns its header and information
// field. The payload slice aliases frame.
func Parse(frame []byte) (FrameHeader, []byte, error) {
	var h FrameHeader
	if len(frame) < MinFrameLen {
		return h, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(frame))
	}

	h.Format = uint16(frame[0])<<8 | uint16(frame[1])
	if h.Format>>12 != formatType {
		return h, nil, fmt.Errorf("%w: type nibble %#x", ErrInvalidFormat, h.Format>>12)
	}
	h.Segmented = h.Format&0x0800 != 0
	h.Length = int(h.Format & 0x07FF)
	if h.Length != len(frame) {
		return h, nil, fmt.Errorf("%w: field says %d, captured %d", ErrLengthMismatch, h.Length, len(frame))
	}

	pos := 2
	var err error
	if h.Destination, pos, err = parseAddress(frame, pos); err != nil {
		return h, nil, err
	}
	if h.Source, pos, err = parseAddress(frame, pos); err != nil {
		return h, nil, err
	}

	// control + HCS + FCS must still fit after the addresses
	if len(frame) < pos+5 {
		return h, nil, fmt.Errorf("%w: header runs past frame end", ErrFrameTooShort)
	}
	h.Control = frame[pos]
	pos++

	h.HCS = leUint16(frame[pos:])
	if c := Checksum(frame[:pos]); c != h.HCS {
		return h, nil, fmt.Errorf("%w: computed %#04x, embedded %#04x", ErrHeaderChecksum, c, h.HCS)
	}
	pos += 2

	h.FCS = leUint16(frame[len(frame)-2:])
	if c := Checksum(frame[:len(frame)-2]); c != h.FCS {
		return h, nil, fmt.Errorf("%w: computed %#04x, embedded %#04x", ErrFrameChecksum, c, h.FCS)
	}

	return h, frame[pos : len(frame)-2], nil
}

// parseAddress reads a variable-length address starting at pos. The value is
// the concatenation of the upper seven bits of each byte; bit 0 set ends the
// field.
func parseAddress(frame []byte, pos int) (uint32, int, error) {
	var v uint32
	for n := 0; ; n++ {
		if n == maxAddrLen || pos >= len(frame) {
			return 0, pos, ErrInvalidAddress
		}
		b := frame[pos]
		pos++
		v = v<<7 | uint32(b>>1)
		if b&1 == 1 {
			return v, pos, nil
		}
	}
}

package hdlc

// FrameBuilder assembles complete frames around an information payload:
// length field, both check sequences, stuffing, and the flag delimiters.
// The meter is the only producer on a real link; this side exists for
// loopback tests and capture tooling.
type FrameBuilder struct {
	Destination uint32
	Source      uint32
	Control     byte
	Segmented   bool
}

// Encode returns a fully framed, stuffed copy of payload including both
// flags. The payload must be small enough for the resulting frame to fit
// the 11-bit length field; oversized frames will not parse back.
func (fb FrameBuilder) Encode(payload []byte) []byte {
	dest := appendAddress(nil, fb.Destination)
	src := appendAddress(nil, fb.Source)

	length := 2 + len(dest) + len(src) + 1 + 2 + len(payload) + 2
	format := uint16(formatType)<<12 | uint16(length)&0x07FF
	if fb.Segmented {
		format |= 0x0800
	}

	inner := make([]byte, 0, length)
	inner = append(inner, byte(format>>8), byte(format))
	inner = append(inner, dest...)
	inner = append(inner, src...)
	inner = append(inner, fb.Control)
	hcs := Checksum(inner)
	inner = append(inner, byte(hcs), byte(hcs>>8))
	inner = append(inner, payload...)
	fcs := Checksum(inner)
	inner = append(inner, byte(fcs), byte(fcs>>8))

	out := make([]byte, 0, len(inner)+8)
	out = append(out, Flag)
	for _, b := range inner {
		if b == Flag || b == Escape {
			out = append(out, Escape, b^EscapeXor)
		} else {
			out = append(out, b)
		}
	}
	return append(out, Flag)
}

// appendAddress emits v in the variable-length encoding parseAddress reads:
// seven bits per byte, bit 0 set on the final byte.
func appendAddress(dst []byte, v uint32) []byte {
	switch {
	case v < 1<<7:
		return append(dst, byte(v&0x7F)<<1|1)
	case v < 1<<14:
		return append(dst, byte(v>>7&0x7F)<<1, byte(v&0x7F)<<1|1)
	case v < 1<<21:
		return append(dst, byte(v>>14&0x7F)<<1, byte(v>>7&0x7F)<<1, byte(v&0x7F)<<1|1)
	default:
		return append(dst, byte(v>>21&0x7F)<<1, byte(v>>14&0x7F)<<1, byte(v>>7&0x7F)<<1, byte(v&0x7F)<<1|1)
	}
}

package hdlc

const (
	// Flag delimits frames on the wire.
	Flag byte = 0x7E
	// Escape marks a stuffed byte; the byte after it is XORed with EscapeXor.
	Escape byte = 0x7D
	// EscapeXor restores a stuffed byte.
	EscapeXor byte = 0x20
)

const (
	// MaxFrameLen bounds the de-stuffed bytes accepted between two flags.
	// The 11-bit length field tops out at 2047, so no conformant frame can
	// hit this limit.
	MaxFrameLen = 2048
	// MinFrameLen is the smallest parseable frame: format field, one byte
	// per address, control, and both check sequences. Shorter flag-to-flag
	// runs are discarded without report.
	MinFrameLen = 9
)

// Event is the result of feeding one byte to a Synchronizer.
type Event uint8

const (
	// EventNone means the byte was consumed with nothing to report.
	EventNone Event = iota
	// EventFrame means a complete candidate frame is available from Frame.
	EventFrame
	// EventOverflow means accumulation exceeded MaxFrameLen; the partial
	// frame was dropped and the synchronizer is seeking a new opening flag.
	EventOverflow
	// EventInvalidEscape means a flag arrived directly after an escape
	// byte; the partial frame was dropped and the flag opened a new one.
	EventInvalidEscape
)

// Synchronizer locates frames in a raw byte stream. Bytes are fed in one at
// a time; a candidate frame is the de-stuffed run of bytes strictly between
// two flags. The accumulation buffer is a fixed array, so pushing bytes
// never allocates.
//
// A flag closes the current frame and opens the next one: back-to-back
// frames share their delimiter. Runs shorter than MinFrameLen, including
// the empty run between repeated flags, restart accumulation silently.
type Synchronizer struct {
	buf      [MaxFrameLen]byte
	n        int
	frameLen int
	inFrame  bool
	escaped  bool
}

// Push consumes a single byte and reports what it produced.
func (s *Synchronizer) Push(b byte) Event {
	if !s.inFrame {
		if b == Flag {
			s.inFrame = true
			s.n = 0
			s.escaped = false
		}
		return EventNone
	}

	if b == Flag {
		n, escaped := s.n, s.escaped
		s.n = 0
		s.escaped = false
		switch {
		case escaped:
			return EventInvalidEscape
		case n >= MinFrameLen:
			s.frameLen = n
			return EventFrame
		default:
			return EventNone
		}
	}

	if s.escaped {
		b ^= EscapeXor
		s.escaped = false
	} else if b == Escape {
		s.escaped = true
		return EventNone
	}

	if s.n == len(s.buf) {
		s.inFrame = false
		s.n = 0
		s.escaped = false
		return EventOverflow
	}
	s.buf[s.n] = b
	s.n++
	return EventNone
}

// Frame returns the most recent complete candidate frame. The slice aliases
// the internal buffer and is only valid until the next Push or Reset.
func (s *Synchronizer) Frame() []byte {
	return s.buf[:s.frameLen]
}

// Reset returns the synchronizer to its initial seeking state.
func (s *Synchronizer) Reset() {
	s.inFrame = false
	s.escaped = false
	s.n = 0
	s.frameLen = 0
}

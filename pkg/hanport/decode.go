package hanport

import "github.com/sognelys/hanport/pkg/hdlc"

// Decode decodes exactly one telegram from an already captured buffer. The
// first complete flag-to-flag candidate gets one verdict: the most specific
// framing or APDU error, or the telegram. There is no resynchronization
// past a bad frame; that is the streaming Reader's job.
func Decode(buf []byte) (*Telegram, error) {
	var s hdlc.Synchronizer
	for _, b := range buf {
		switch s.Push(b) {
		case hdlc.EventFrame:
			frame := s.Frame()
			h, payload, err := hdlc.Parse(frame)
			if err != nil {
				return nil, err
			}
			return assemble(h, frame, payload)
		case hdlc.EventOverflow:
			return nil, hdlc.ErrFrameTooLarge
		case hdlc.EventInvalidEscape:
			return nil, hdlc.ErrInvalidEscape
		}
	}
	return nil, ErrNoFrame
}

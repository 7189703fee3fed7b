package hdlc

import (
	"bytes"
	"errors"
	"testing"
)

// rawFrame builds a de-stuffed frame image with a correct length field and
// check sequences, ready for Parse.
func rawFrame(dest, src []byte, control byte, payload []byte) []byte {
	length := 2 + len(dest) + len(src) + 1 + 2 + len(payload) + 2
	f := make([]byte, 0, length)
	f = append(f, byte(0xA0|length>>8), byte(length))
	f = append(f, dest...)
	f = append(f, src...)
	f = append(f, control)
	hcs := Checksum(f)
	f = append(f, byte(hcs), byte(hcs>>8))
	f = append(f, payload...)
	fcs := Checksum(f)
	f = append(f, byte(fcs), byte(fcs>>8))
	return f
}

func TestParseValid(t *testing.T) {
	payload := []byte("notification")
	frame := rawFrame([]byte{0x21}, []byte{0x03}, 0x13, payload)

	h, got, err := Parse(frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Destination != 16 || h.Source != 1 {
		t.Errorf("addresses = %d/%d, want 16/1", h.Destination, h.Source)
	}
	if h.Control != 0x13 {
		t.Errorf("control = %#02x, want 0x13", h.Control)
	}
	if h.Segmented {
		t.Error("segmented bit set on a plain frame")
	}
	if h.Length != len(frame) {
		t.Errorf("length = %d, want %d", h.Length, len(frame))
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestParseEmptyPayload(t *testing.T) {
	frame := rawFrame([]byte{0x21}, []byte{0x03}, 0x13, nil)
	_, got, err := Parse(frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("payload = %x, want empty", got)
	}
}

func TestParseAddressForms(t *testing.T) {
	cases := []struct {
		name string
		dest []byte
		want uint32
	}{
		{"one byte", []byte{0x21}, 16},
		{"two bytes", []byte{0x2C, 0x21}, 2832},
		{"four bytes", []byte{0x02, 0x04, 0x06, 0x09}, 2130308},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame := rawFrame(c.dest, []byte{0x03}, 0x10, []byte("xx"))
			h, _, err := Parse(frame)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if h.Destination != c.want {
				t.Errorf("destination = %d, want %d", h.Destination, c.want)
			}
		})
	}

	// No terminating byte within four.
	frame := rawFrame([]byte{0x02, 0x02, 0x02, 0x02, 0x03}, []byte{0x03}, 0x10, nil)
	if _, _, err := Parse(frame); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("five-byte address: err = %v, want ErrInvalidAddress", err)
	}
}

func TestParseErrors(t *testing.T) {
	base := rawFrame([]byte{0x21}, []byte{0x03}, 0x13, []byte("payload"))

	cases := []struct {
		name   string
		mutate func(f []byte) []byte
		want   error
	}{
		{"too short", func(f []byte) []byte { return f[:8] }, ErrFrameTooShort},
		{"bad type nibble", func(f []byte) []byte {
			f[0] = 0x50 | f[0]&0x0F
			return f
		}, ErrInvalidFormat},
		{"length mismatch", func(f []byte) []byte {
			f[1]++
			return f
		}, ErrLengthMismatch},
		{"header checksum", func(f []byte) []byte {
			f[5] ^= 0xFF
			return f
		}, ErrHeaderChecksum},
		{"control corrupted", func(f []byte) []byte {
			f[4] ^= 0x20
			return f
		}, ErrHeaderChecksum},
		{"frame checksum", func(f []byte) []byte {
			f[len(f)-3] ^= 0x01
			return f
		}, ErrFrameChecksum},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame := c.mutate(append([]byte(nil), base...))
			if _, _, err := Parse(frame); !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, Flag, Escape, 0xFF, 0x00}
	fb := FrameBuilder{Destination: 2832, Source: 577, Control: 0x13}
	wire := fb.Encode(payload)

	if i := bytes.IndexByte(wire[1:len(wire)-1], Flag); i != -1 {
		t.Fatalf("unescaped flag at offset %d inside frame body", i+1)
	}

	var s Synchronizer
	frames, _, _ := feed(&s, wire)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	h, got, err := Parse(frames[0])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Destination != 2832 || h.Source != 577 || h.Control != 0x13 {
		t.Errorf("header = %d/%d/%#02x, want 2832/577/0x13", h.Destination, h.Source, h.Control)
	}
	if h.Length != len(frames[0]) {
		t.Errorf("length field = %d, want %d", h.Length, len(frames[0]))
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %x, want %x", got, payload)
	}
}

func TestEncodeSegmented(t *testing.T) {
	wire := FrameBuilder{Destination: 1, Source: 1, Control: 0x10, Segmented: true}.Encode([]byte("abc"))

	var s Synchronizer
	frames, _, _ := feed(&s, wire)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	h, _, err := Parse(frames[0])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !h.Segmented {
		t.Error("segmented bit lost in round trip")
	}
}

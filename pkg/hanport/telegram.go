// Package hanport reads COSEM data-notification telegrams from a HAN P1
// port byte stream: HDLC frame synchronization and validation, APDU
// decoding, and a streaming Reader that survives line noise.
package hanport

import (
	"encoding/json"
	"errors"

	"github.com/sognelys/hanport/pkg/cosem"
	"github.com/sognelys/hanport/pkg/hdlc"
)

var (
	// ErrNoFrame means the buffer held no complete flag-to-flag candidate.
	ErrNoFrame = errors.New("hanport: no complete frame in buffer")
	// ErrSegmentedFrame means the frame carries a partial APDU; segment
	// reassembly is not supported, P1 pushes fit a single frame.
	ErrSegmentedFrame = errors.New("hanport: segmented frame")
)

// Telegram is one validated, decoded meter push. Immutable once returned;
// entries keep their APDU order.
type Telegram struct {
	Header    hdlc.FrameHeader
	InvokeID  uint32
	Timestamp cosem.Timestamp
	HasTime   bool
	Entries   []cosem.Entry

	// Raw is the de-stuffed frame the telegram was decoded from, kept for
	// capture and debug outputs.
	Raw []byte
}

// Degraded returns the number of entries that failed to decode.
func (t *Telegram) Degraded() int {
	n := 0
	for _, e := range t.Entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// Entry returns the first entry carrying code.
func (t *Telegram) Entry(code cosem.Obis) (cosem.Entry, bool) {
	for _, e := range t.Entries {
		if e.Err == nil && e.Code == code {
			return e, true
		}
	}
	return cosem.Entry{}, false
}

// MarshalJSON renders the telegram the way the collector publishes it: flat
// header fields, the display-form timestamp, and the entry list.
func (t *Telegram) MarshalJSON() ([]byte, error) {
	out := struct {
		Destination uint32        `json:"destination"`
		Source      uint32        `json:"source"`
		InvokeID    uint32        `json:"invoke_id"`
		Time        string        `json:"time,omitempty"`
		Entries     []cosem.Entry `json:"entries"`
		Degraded    int           `json:"degraded,omitempty"`
	}{
		Destination: t.Header.Destination,
		Source:      t.Header.Source,
		InvokeID:    t.InvokeID,
		Entries:     t.Entries,
		Degraded:    t.Degraded(),
	}
	if t.HasTime {
		out.Time = t.Timestamp.String()
	}
	return json.Marshal(out)
}

// assemble turns a validated frame into a Telegram. Frame is copied; the
// payload slice may alias a synchronizer buffer that the next push reuses.
func assemble(h hdlc.FrameHeader, frame, payload []byte) (*Telegram, error) {
	if h.Segmented {
		return nil, ErrSegmentedFrame
	}
	n, err := cosem.DecodeNotification(payload)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		Header:    h,
		InvokeID:  n.InvokeID,
		Timestamp: n.Timestamp,
		HasTime:   n.HasTime,
		Entries:   n.Entries,
		Raw:       append([]byte(nil), frame...),
	}, nil
}

package cosem

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// llcPrefix is the LLC header some meters put in front of the APDU.
var llcPrefix = [3]byte{0xE6, 0xE7, 0x00}

const tagDataNotification = 0x0F

// DataNotification is a decoded push APDU: the invoke id, the optional
// capture timestamp, and the flattened notification body.
type DataNotification struct {
	InvokeID  uint32
	Timestamp Timestamp
	HasTime   bool
	Entries   []Entry
}

// Entry is one (code, value) element of a notification body. Err is set
// when the element could not be decoded; the other fields are then zero.
// Entries keep the order they had in the APDU.
type Entry struct {
	Code          Obis
	Value         Value
	Scaler        int8
	Unit          Unit
	HasScalerUnit bool
	Err           error
}

// DecodeNotification decodes a data-notification APDU, with or without the
// LLC prefix. Failures in the invoke id, the date-time field or the body
// root fail the whole APDU; a failure inside a single body element is
// recorded on that entry and its predecessors are kept.
func DecodeNotification(payload []byte) (*DataNotification, error) {
	if len(payload) >= 3 &&
		payload[0] == llcPrefix[0] && payload[1] == llcPrefix[1] && payload[2] == llcPrefix[2] {
		payload = payload[3:]
	}
	d := &decoder{buf: payload}

	tag, err := d.byte()
	if err != nil {
		return nil, fmt.Errorf("APDU tag: %w", err)
	}
	if tag != tagDataNotification {
		return nil, fmt.Errorf("%w: APDU tag %#02x", ErrNotNotification, tag)
	}

	n := &DataNotification{}

	id, err := d.bytes(4)
	if err != nil {
		return nil, fmt.Errorf("long-invoke-id: %w", err)
	}
	n.InvokeID = binary.BigEndian.Uint32(id)

	if err := d.dateTimeField(n); err != nil {
		return nil, fmt.Errorf("date-time: %w", err)
	}

	rb, err := d.byte()
	if err != nil {
		return nil, fmt.Errorf("notification body: %w", err)
	}
	if Tag(rb) != TagArray && Tag(rb) != TagStructure {
		return nil, fmt.Errorf("%w: notification body is %v", ErrUnexpectedTag, Tag(rb))
	}
	count, err := d.length()
	if err != nil {
		return nil, fmt.Errorf("notification body: %w", err)
	}
	if count > MaxEntries {
		return nil, fmt.Errorf("%w: %d", ErrTooManyEntries, count)
	}

	n.Entries = make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		elem, err := d.value(1)
		if err != nil {
			// The cursor cannot find the next element once one fails to
			// decode. Entries before this one stand.
			n.Entries = append(n.Entries, Entry{Err: fmt.Errorf("entry %d: %w", i, err)})
			break
		}
		n.Entries = append(n.Entries, newEntry(i, elem))
	}
	return n, nil
}

// The capture timestamp is a raw length byte (0x00 absent, 0x0C followed by
// the packed date-time); some firmwares wrap it in an octet-string tag,
// which is tolerated.
func (d *decoder) dateTimeField(n *DataNotification) error {
	b, err := d.byte()
	if err != nil {
		return err
	}
	if Tag(b) == TagOctetString {
		if b, err = d.byte(); err != nil {
			return err
		}
	}
	switch b {
	case 0:
		return nil
	case timestampLen:
		raw, err := d.bytes(timestampLen)
		if err != nil {
			return err
		}
		ts, err := DecodeTimestamp(raw)
		if err != nil {
			return err
		}
		n.Timestamp = ts
		n.HasTime = true
		return nil
	default:
		return fmt.Errorf("%w: date-time length %d", ErrUnexpectedTag, b)
	}
}

func newEntry(i int, elem Value) Entry {
	if elem.Tag != TagStructure {
		return Entry{Err: fmt.Errorf("%w %d: element is %v, want structure", ErrMalformedEntry, i, elem.Tag)}
	}
	if len(elem.Items) != 2 && len(elem.Items) != 3 {
		return Entry{Err: fmt.Errorf("%w %d: structure has %d members", ErrMalformedEntry, i, len(elem.Items))}
	}
	code := elem.Items[0]
	if code.Tag != TagOctetString || len(code.Bytes) != len(Obis{}) {
		return Entry{Err: fmt.Errorf("%w %d: code is not a six-byte octet-string", ErrMalformedEntry, i)}
	}

	e := Entry{Value: elem.Items[1]}
	copy(e.Code[:], code.Bytes)

	if len(elem.Items) == 3 {
		su := elem.Items[2]
		if su.Tag != TagStructure || len(su.Items) != 2 {
			return Entry{Err: fmt.Errorf("%w %d: scaler-unit is not a two-member structure", ErrMalformedEntry, i)}
		}
		sv, ok := su.Items[0].AsInt64()
		if !ok || sv < math.MinInt8 || sv > math.MaxInt8 {
			return Entry{Err: fmt.Errorf("%w %d: scaler out of range", ErrMalformedEntry, i)}
		}
		unit := su.Items[1]
		if unit.Tag != TagEnum && unit.Tag != TagUnsigned {
			return Entry{Err: fmt.Errorf("%w %d: unit is %v, want enum", ErrMalformedEntry, i, unit.Tag)}
		}
		e.Scaler = int8(sv)
		e.Unit = Unit(unit.Uint)
		e.HasScalerUnit = true
	}
	return e
}

// Scaled returns the reading as value x 10^scaler for numeric values.
func (e Entry) Scaled() (float64, bool) {
	if e.Err != nil {
		return 0, false
	}
	f, ok := e.Value.AsFloat64()
	if !ok {
		return 0, false
	}
	if e.HasScalerUnit && e.Scaler != 0 {
		f *= math.Pow10(int(e.Scaler))
	}
	return f, true
}

// MarshalJSON renders a decoded entry as an object and a failed one as its
// error text.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Err.Error()})
	}
	out := struct {
		Code   Obis   `json:"code"`
		Value  Value  `json:"value"`
		Scaler *int8  `json:"scaler,omitempty"`
		Unit   string `json:"unit,omitempty"`
	}{Code: e.Code, Value: e.Value}
	if e.HasScalerUnit {
		out.Scaler = &e.Scaler
		out.Unit = e.Unit.String()
	}
	return json.Marshal(out)
}

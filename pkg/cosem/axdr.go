// Package cosem decodes the COSEM data-notification APDUs a meter pushes
// over its HAN port: A-XDR encoded value trees carrying OBIS-coded register
// readings.
package cosem

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Tag identifies an A-XDR data kind.
type Tag uint8

const (
	TagNull           Tag = 0
	TagArray          Tag = 1
	TagStructure      Tag = 2
	TagBoolean        Tag = 3
	TagDoubleLong     Tag = 5
	TagDoubleLongUns  Tag = 6
	TagOctetString    Tag = 9
	TagVisibleString  Tag = 10
	TagUTF8String     Tag = 12
	TagInteger        Tag = 15
	TagLong           Tag = 16
	TagUnsigned       Tag = 17
	TagLongUnsigned   Tag = 18
	TagLong64         Tag = 20
	TagLong64Unsigned Tag = 21
	TagEnum           Tag = 22
	TagFloat32        Tag = 23
	TagFloat64        Tag = 24
	TagDateTime       Tag = 25
)

var tagNames = map[Tag]string{
	TagNull:           "null",
	TagArray:          "array",
	TagStructure:      "structure",
	TagBoolean:        "boolean",
	TagDoubleLong:     "double-long",
	TagDoubleLongUns:  "double-long-unsigned",
	TagOctetString:    "octet-string",
	TagVisibleString:  "visible-string",
	TagUTF8String:     "utf8-string",
	TagInteger:        "integer",
	TagLong:           "long",
	TagUnsigned:       "unsigned",
	TagLongUnsigned:   "long-unsigned",
	TagLong64:         "long64",
	TagLong64Unsigned: "long64-unsigned",
	TagEnum:           "enum",
	TagFloat32:        "float32",
	TagFloat64:        "float64",
	TagDateTime:       "date-time",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

const (
	// MaxDepth bounds array/structure nesting in a decoded value tree.
	MaxDepth = 8
	// MaxEntries bounds the number of root elements in a notification body.
	MaxEntries = 64
)

var (
	ErrTruncated       = errors.New("cosem: truncated data")
	ErrUnexpectedTag   = errors.New("cosem: unexpected tag")
	ErrTooDeep         = errors.New("cosem: structure nested too deeply")
	ErrTooManyEntries  = errors.New("cosem: too many notification entries")
	ErrNotNotification = errors.New("cosem: not a data-notification APDU")
	ErrMalformedEntry  = errors.New("cosem: malformed notification entry")
)

// Value is one node of a decoded A-XDR tree. Only the fields matching Tag
// carry meaning; string kinds are copied out of the source buffer.
type Value struct {
	Tag   Tag
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Bytes []byte
	Items []Value
	Time  Timestamp
}

// DecodeValue decodes a single value from the front of buf and returns it
// with the number of bytes consumed.
func DecodeValue(buf []byte) (Value, int, error) {
	d := decoder{buf: buf}
	v, err := d.value(0)
	if err != nil {
		return Value{}, d.pos, err
	}
	return v, d.pos, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrTruncated
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// length reads an A-XDR length: a single byte below 0x80, or 0x81/0x82
// followed by that many length bytes.
func (d *decoder) length() (int, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	if b < 0x80 {
		return int(b), nil
	}
	n := int(b & 0x7F)
	if n == 0 || n > 2 {
		return 0, fmt.Errorf("cosem: unsupported length encoding %#02x", b)
	}
	lb, err := d.bytes(n)
	if err != nil {
		return 0, err
	}
	v := 0
	for _, x := range lb {
		v = v<<8 | int(x)
	}
	return v, nil
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrTooDeep
	}
	tb, err := d.byte()
	if err != nil {
		return Value{}, err
	}
	v := Value{Tag: Tag(tb)}

	switch v.Tag {
	case TagNull:

	case TagArray, TagStructure:
		count, err := d.length()
		if err != nil {
			return Value{}, err
		}
		// Every element takes at least one byte.
		if count > d.remaining() {
			return Value{}, fmt.Errorf("%w: %d elements in %d bytes", ErrTruncated, count, d.remaining())
		}
		v.Items = make([]Value, 0, count)
		for i := 0; i < count; i++ {
			item, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			v.Items = append(v.Items, item)
		}

	case TagBoolean:
		b, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		v.Bool = b != 0

	case TagDoubleLong:
		b, err := d.bytes(4)
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(int32(binary.BigEndian.Uint32(b)))

	case TagDoubleLongUns:
		b, err := d.bytes(4)
		if err != nil {
			return Value{}, err
		}
		v.Uint = uint64(binary.BigEndian.Uint32(b))

	case TagOctetString, TagVisibleString, TagUTF8String:
		n, err := d.length()
		if err != nil {
			return Value{}, err
		}
		b, err := d.bytes(n)
		if err != nil {
			return Value{}, err
		}
		v.Bytes = append([]byte(nil), b...)

	case TagInteger:
		b, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(int8(b))

	case TagLong:
		b, err := d.bytes(2)
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(int16(binary.BigEndian.Uint16(b)))

	case TagUnsigned, TagEnum:
		b, err := d.byte()
		if err != nil {
			return Value{}, err
		}
		v.Uint = uint64(b)

	case TagLongUnsigned:
		b, err := d.bytes(2)
		if err != nil {
			return Value{}, err
		}
		v.Uint = uint64(binary.BigEndian.Uint16(b))

	case TagLong64:
		b, err := d.bytes(8)
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(binary.BigEndian.Uint64(b))

	case TagLong64Unsigned:
		b, err := d.bytes(8)
		if err != nil {
			return Value{}, err
		}
		v.Uint = binary.BigEndian.Uint64(b)

	case TagFloat32:
		b, err := d.bytes(4)
		if err != nil {
			return Value{}, err
		}
		v.Float = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))

	case TagFloat64:
		b, err := d.bytes(8)
		if err != nil {
			return Value{}, err
		}
		v.Float = math.Float64frombits(binary.BigEndian.Uint64(b))

	case TagDateTime:
		b, err := d.bytes(timestampLen)
		if err != nil {
			return Value{}, err
		}
		v.Time, err = DecodeTimestamp(b)
		if err != nil {
			return Value{}, err
		}

	default:
		return Value{}, fmt.Errorf("%w: %#02x", ErrUnexpectedTag, tb)
	}
	return v, nil
}

// AsInt64 returns the numeric value of any integer or enum kind.
func (v Value) AsInt64() (int64, bool) {
	switch v.Tag {
	case TagInteger, TagLong, TagDoubleLong, TagLong64:
		return v.Int, true
	case TagUnsigned, TagLongUnsigned, TagDoubleLongUns, TagLong64Unsigned, TagEnum:
		if v.Uint > math.MaxInt64 {
			return 0, false
		}
		return int64(v.Uint), true
	}
	return 0, false
}

// AsFloat64 returns the numeric value of any integer, enum or float kind.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Tag {
	case TagFloat32, TagFloat64:
		return v.Float, true
	case TagUnsigned, TagLongUnsigned, TagDoubleLongUns, TagLong64Unsigned, TagEnum:
		return float64(v.Uint), true
	}
	if n, ok := v.AsInt64(); ok {
		return float64(n), true
	}
	return 0, false
}

// AsString returns the text of a string kind.
func (v Value) AsString() (string, bool) {
	switch v.Tag {
	case TagVisibleString, TagUTF8String, TagOctetString:
		return string(v.Bytes), true
	}
	return "", false
}

// MarshalJSON renders scalars as JSON numbers, strings and booleans, octet
// strings as hex, date-times as their display form, and containers as
// arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Tag {
	case TagNull:
		return []byte("null"), nil
	case TagBoolean:
		return strconv.AppendBool(nil, v.Bool), nil
	case TagArray, TagStructure:
		return json.Marshal(v.Items)
	case TagVisibleString, TagUTF8String:
		return json.Marshal(string(v.Bytes))
	case TagOctetString:
		return json.Marshal(hex.EncodeToString(v.Bytes))
	case TagDateTime:
		return json.Marshal(v.Time.String())
	case TagInteger, TagLong, TagDoubleLong, TagLong64:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case TagUnsigned, TagLongUnsigned, TagDoubleLongUns, TagLong64Unsigned, TagEnum:
		return strconv.AppendUint(nil, v.Uint, 10), nil
	case TagFloat32, TagFloat64:
		return json.Marshal(v.Float)
	}
	return json.Marshal(v.Tag.String())
}

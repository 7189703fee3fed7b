package cosem

import (
	"fmt"
	"strconv"
	"strings"
)

// Obis is a six-byte OBIS object code, value groups A through F.
type Obis [6]byte

// String renders the reduced form A-B:C.D.E, appending group F only when it
// is not the 255 wildcard.
func (o Obis) String() string {
	s := fmt.Sprintf("%d-%d:%d.%d.%d", o[0], o[1], o[2], o[3], o[4])
	if o[5] != 255 {
		s += "." + strconv.Itoa(int(o[5]))
	}
	return s
}

// ParseObis parses the five- or six-group display form. Separator positions
// are not enforced beyond splitting on '-', ':' and '.'.
func ParseObis(s string) (Obis, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ':' || r == '.'
	})
	if len(fields) != 5 && len(fields) != 6 {
		return Obis{}, fmt.Errorf("cosem: malformed OBIS code %q", s)
	}
	var o Obis
	o[5] = 255
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return Obis{}, fmt.Errorf("cosem: malformed OBIS code %q: group %d", s, i)
		}
		o[i] = byte(n)
	}
	return o, nil
}

// MarshalText implements encoding.TextMarshaler.
func (o Obis) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Obis) UnmarshalText(text []byte) error {
	parsed, err := ParseObis(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

package cosem

import (
	"fmt"
	"strings"
	"time"
)

// Packed date-time layout (12 bytes):
//
//	0-1   year, big endian, 0xFFFF when not specified
//	2     month
//	3     day of month
//	4     day of week, 1 = Monday
//	5-7   hour, minute, second
//	8     hundredths of a second
//	9-10  deviation of UTC from local time in minutes, big endian signed,
//	      0x8000 when not specified (UTC = local time + deviation)
//	11    clock status bits
//
// Single-byte fields use 0xFF when not specified.
const timestampLen = 12

const (
	YearNotSpecified      uint16 = 0xFFFF
	NotSpecified          uint8  = 0xFF
	DeviationNotSpecified int16  = -0x8000
)

// ClockStatus is the status byte trailing a date-time.
type ClockStatus uint8

const (
	ClockInvalidValue ClockStatus = 1 << iota
	ClockDoubtfulValue
	ClockDifferentBase
	ClockInvalidStatus
	_
	_
	_
	ClockDaylightSaving
)

// Timestamp is a decoded meter clock reading. Fields keep their raw
// not-specified sentinels; use Time to convert.
type Timestamp struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Weekday    uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	Hundredths uint8
	Deviation  int16
	Status     ClockStatus
}

// DecodeTimestamp unpacks a 12-byte date-time.
func DecodeTimestamp(b []byte) (Timestamp, error) {
	if len(b) != timestampLen {
		return Timestamp{}, fmt.Errorf("%w: date-time is %d bytes, want %d", ErrTruncated, len(b), timestampLen)
	}
	return Timestamp{
		Year:       uint16(b[0])<<8 | uint16(b[1]),
		Month:      b[2],
		Day:        b[3],
		Weekday:    b[4],
		Hour:       b[5],
		Minute:     b[6],
		Second:     b[7],
		Hundredths: b[8],
		Deviation:  int16(uint16(b[9])<<8 | uint16(b[10])),
		Status:     ClockStatus(b[11]),
	}, nil
}

// Specified reports whether the date and time of day all carry real values.
func (t Timestamp) Specified() bool {
	return t.Year != YearNotSpecified &&
		t.Month != NotSpecified && t.Day != NotSpecified &&
		t.Hour != NotSpecified && t.Minute != NotSpecified && t.Second != NotSpecified
}

// Time converts the reading to a time.Time. A specified deviation fixes the
// zone; otherwise the wall-clock fields are interpreted in loc. The second
// return is false when the date or time of day is unspecified or out of
// range.
func (t Timestamp) Time(loc *time.Location) (time.Time, bool) {
	if !t.Specified() {
		return time.Time{}, false
	}
	if t.Month < 1 || t.Month > 12 || t.Day < 1 || t.Day > 31 ||
		t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return time.Time{}, false
	}
	nsec := 0
	if t.Hundredths != NotSpecified {
		if t.Hundredths > 99 {
			return time.Time{}, false
		}
		nsec = int(t.Hundredths) * int(10*time.Millisecond)
	}
	zone := loc
	if t.Deviation != DeviationNotSpecified {
		zone = time.FixedZone("", -int(t.Deviation)*60)
	}
	if zone == nil {
		zone = time.UTC
	}
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), nsec, zone), true
}

// String renders the reading with ? placeholders for unspecified fields,
// e.g. "2023-01-15 10:30:00 UTC+01:00".
func (t Timestamp) String() string {
	var b strings.Builder
	if t.Year == YearNotSpecified {
		b.WriteString("????")
	} else {
		fmt.Fprintf(&b, "%04d", t.Year)
	}
	b.WriteByte('-')
	writeClockField(&b, t.Month)
	b.WriteByte('-')
	writeClockField(&b, t.Day)
	b.WriteByte(' ')
	writeClockField(&b, t.Hour)
	b.WriteByte(':')
	writeClockField(&b, t.Minute)
	b.WriteByte(':')
	writeClockField(&b, t.Second)
	if t.Hundredths != NotSpecified {
		fmt.Fprintf(&b, ".%02d", t.Hundredths)
	}
	if t.Deviation != DeviationNotSpecified {
		off := -int(t.Deviation)
		sign := '+'
		if off < 0 {
			sign = '-'
			off = -off
		}
		fmt.Fprintf(&b, " UTC%c%02d:%02d", sign, off/60, off%60)
	}
	if t.Status&ClockDaylightSaving != 0 {
		b.WriteString(" DST")
	}
	return b.String()
}

func writeClockField(b *strings.Builder, v uint8) {
	if v == NotSpecified {
		b.WriteString("??")
	} else {
		fmt.Fprintf(b, "%02d", v)
	}
}

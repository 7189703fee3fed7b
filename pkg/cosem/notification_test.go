package cosem

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Single-entry notification: invoke id 1, captured 2023-01-15 10:30:00 UTC,
// active power import 1-0:1.7.0 = 450 with scaler -1 and unit W.
const samplePayload = "0f" + "00000001" +
	"0c" + "07e7010f070a1e0000000000" +
	"0101" +
	"0203" + "09060100010700ff" + "06000001c2" + "02020fff161b"

func TestDecodeNotification(t *testing.T) {
	n, err := DecodeNotification(decodeHex(t, samplePayload))
	require.NoError(t, err)
	require.Equal(t, uint32(1), n.InvokeID)

	require.True(t, n.HasTime)
	got, ok := n.Timestamp.Time(nil)
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)))

	require.Len(t, n.Entries, 1)
	e := n.Entries[0]
	require.NoError(t, e.Err)
	require.Equal(t, "1-0:1.7.0", e.Code.String())
	require.Equal(t, uint64(450), e.Value.Uint)
	require.True(t, e.HasScalerUnit)
	require.Equal(t, int8(-1), e.Scaler)
	require.Equal(t, UnitWatt, e.Unit)

	scaled, ok := e.Scaled()
	require.True(t, ok)
	require.InDelta(t, 45.0, scaled, 1e-9)
}

func TestDecodeNotificationLLCPrefix(t *testing.T) {
	n, err := DecodeNotification(decodeHex(t, "e6e700"+samplePayload))
	require.NoError(t, err)
	require.Len(t, n.Entries, 1)
}

func TestDecodeNotificationNoTimestamp(t *testing.T) {
	payload := "0f" + "00000001" + "00" +
		"0101" + "0202" + "09060100010800ff" + "0600001000"
	n, err := DecodeNotification(decodeHex(t, payload))
	require.NoError(t, err)
	require.False(t, n.HasTime)

	require.Len(t, n.Entries, 1)
	e := n.Entries[0]
	require.NoError(t, e.Err)
	require.False(t, e.HasScalerUnit)
	require.Equal(t, int8(0), e.Scaler)
	require.Equal(t, UnitNone, e.Unit)
}

func TestDecodeNotificationOctetStringTime(t *testing.T) {
	// Some firmwares tag the capture time as an octet-string.
	payload := "0f" + "00000001" +
		"090c" + "07e7010f070a1e0000000000" +
		"0101" + "0202" + "09060100010700ff" + "06000001c2"
	n, err := DecodeNotification(decodeHex(t, payload))
	require.NoError(t, err)
	require.True(t, n.HasTime)
	require.Equal(t, uint16(2023), n.Timestamp.Year)
}

func TestDecodeNotificationPartialFailure(t *testing.T) {
	// Three entries; the middle one carries a five-byte code. Its shape is
	// still valid A-XDR, so its siblings decode cleanly around it.
	payload := "0f" + "00000001" + "00" + "0103" +
		"0203" + "09060100010700ff" + "06000001c2" + "02020fff161b" +
		"0203" + "09050100020700" + "0600000000" + "02020fff161b" +
		"0203" + "09060100030700ff" + "060000000a" + "02020fff161d"

	n, err := DecodeNotification(decodeHex(t, payload))
	require.NoError(t, err)
	require.Len(t, n.Entries, 3)

	require.NoError(t, n.Entries[0].Err)
	require.Equal(t, "1-0:1.7.0", n.Entries[0].Code.String())

	require.ErrorIs(t, n.Entries[1].Err, ErrMalformedEntry)

	require.NoError(t, n.Entries[2].Err)
	require.Equal(t, "1-0:3.7.0", n.Entries[2].Code.String())
	require.Equal(t, UnitVar, n.Entries[2].Unit)
}

func TestDecodeNotificationTruncatedEntryStopsWalk(t *testing.T) {
	// Second of three entries is cut mid-value: its error is recorded, the
	// cursor cannot recover, the first entry stands.
	payload := "0f" + "00000001" + "00" + "0103" +
		"0203" + "09060100010700ff" + "06000001c2" + "02020fff161b" +
		"0203" + "09060100020700ff" + "0600"

	n, err := DecodeNotification(decodeHex(t, payload))
	require.NoError(t, err)
	require.Len(t, n.Entries, 2)
	require.NoError(t, n.Entries[0].Err)
	require.ErrorIs(t, n.Entries[1].Err, ErrTruncated)
}

func TestDecodeNotificationEntryShapes(t *testing.T) {
	cases := []struct {
		name string
		elem string
	}{
		{"not a structure", "09060100010700ff"},
		{"one member", "0201" + "09060100010700ff"},
		{"four members", "0204" + "09060100010700ff" + "0600000000" + "0600000000" + "0600000000"},
		{"code not octet-string", "0202" + "0a0431323334" + "0600000000"},
		{"scaler-unit not structure", "0203" + "09060100010700ff" + "0600000000" + "161b"},
		{"scaler out of range", "0203" + "09060100010700ff" + "0600000000" + "0202" + "120100" + "161b"},
		{"unit wrong kind", "0203" + "09060100010700ff" + "0600000000" + "0202" + "0f01" + "0600000001"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := "0f" + "00000001" + "00" + "0101" + c.elem
			n, err := DecodeNotification(decodeHex(t, payload))
			require.NoError(t, err)
			require.Len(t, n.Entries, 1)
			require.ErrorIs(t, n.Entries[0].Err, ErrMalformedEntry)
		})
	}
}

func TestDecodeNotificationFatalErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrTruncated},
		{"wrong apdu tag", "c0" + "00000001", ErrNotNotification},
		{"truncated invoke id", "0f" + "0000", ErrTruncated},
		{"bad date-time length", "0f" + "00000001" + "05" + "0000000000", ErrUnexpectedTag},
		{"truncated date-time", "0f" + "00000001" + "0c" + "07e701", ErrTruncated},
		{"missing body", "0f" + "00000001" + "00", ErrTruncated},
		{"scalar body", "0f" + "00000001" + "00" + "0600000001", ErrUnexpectedTag},
		{"too many entries", "0f" + "00000001" + "00" + "0141", ErrTooManyEntries},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeNotification(decodeHex(t, c.in))
			require.ErrorIs(t, err, c.want)
		})
	}
}

func FuzzDecodeNotification(f *testing.F) {
	seed, err := hex.DecodeString(samplePayload)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{0x0F})
	f.Add([]byte{0xE6, 0xE7, 0x00, 0x0F, 0, 0, 0, 1, 0, 0x01, 0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		// Must never panic; errors are fine.
		n, err := DecodeNotification(data)
		if err == nil && n == nil {
			t.Fatal("nil notification without error")
		}
	})
}

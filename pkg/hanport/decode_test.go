package hanport

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sognelys/hanport/pkg/cosem"
	"github.com/sognelys/hanport/pkg/hdlc"
)

// samplePayload is a data-notification APDU: invoke id 1, captured
// 2023-01-15 10:30:00 UTC, one entry 1-0:1.7.0 = 450, scaler -1, unit W.
const samplePayload = "0f" + "00000001" +
	"0c" + "07e7010f070a1e0000000000" +
	"0101" +
	"0203" + "09060100010700ff" + "06000001c2" + "02020fff161b"

func decodeHexString(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func samplePayloadBytes(t testing.TB) []byte {
	return decodeHexString(t, samplePayload)
}

// sampleWire frames samplePayload for the stock client/server addresses.
func sampleWire(t testing.TB) []byte {
	t.Helper()
	fb := hdlc.FrameBuilder{Destination: 0x10, Source: 0x01, Control: 0x13}
	return fb.Encode(samplePayloadBytes(t))
}

func TestDecodeEndToEnd(t *testing.T) {
	tg, err := Decode(sampleWire(t))
	require.NoError(t, err)

	require.Equal(t, uint32(0x10), tg.Header.Destination)
	require.Equal(t, uint32(0x01), tg.Header.Source)
	require.Equal(t, uint32(1), tg.InvokeID)

	require.True(t, tg.HasTime)
	got, ok := tg.Timestamp.Time(nil)
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)))

	require.Len(t, tg.Entries, 1)
	require.Equal(t, 0, tg.Degraded())

	code, err := cosem.ParseObis("1-0:1.7.0")
	require.NoError(t, err)
	e, ok := tg.Entry(code)
	require.True(t, ok)
	require.Equal(t, uint64(450), e.Value.Uint)
	require.Equal(t, int8(-1), e.Scaler)
	require.Equal(t, cosem.UnitWatt, e.Unit)

	scaled, ok := e.Scaled()
	require.True(t, ok)
	require.InDelta(t, 45.0, scaled, 1e-9)
}

func TestDecodeLeadingNoise(t *testing.T) {
	stream := append([]byte{0x00, 0x55, 0xAA}, sampleWire(t)...)
	tg, err := Decode(stream)
	require.NoError(t, err)
	require.Len(t, tg.Entries, 1)
}

func TestDecodeNoFrame(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrNoFrame)

	// An opening flag without a closing one never completes.
	wire := sampleWire(t)
	_, err = Decode(wire[:len(wire)-1])
	require.ErrorIs(t, err, ErrNoFrame)
}

func TestDecodeChecksumError(t *testing.T) {
	wire := sampleWire(t)
	// Flip a bit in the last 0xC2 on the wire: the value byte, or an FCS
	// byte that happens to share it. Either way the frame check must catch
	// it, and the flipped byte stays clear of the flag and escape values.
	i := bytes.LastIndexByte(wire, 0xC2)
	require.GreaterOrEqual(t, i, 0)
	wire[i] ^= 0x01

	_, err := Decode(wire)
	require.ErrorIs(t, err, hdlc.ErrFrameChecksum)
}

func TestDecodeSegmentedFrame(t *testing.T) {
	fb := hdlc.FrameBuilder{Destination: 0x10, Source: 0x01, Control: 0x13, Segmented: true}
	_, err := Decode(fb.Encode(samplePayloadBytes(t)))
	require.ErrorIs(t, err, ErrSegmentedFrame)
}

func TestDecodeBadAPDU(t *testing.T) {
	fb := hdlc.FrameBuilder{Destination: 0x10, Source: 0x01, Control: 0x13}
	_, err := Decode(fb.Encode(nil))
	require.ErrorIs(t, err, cosem.ErrTruncated)

	_, err = Decode(fb.Encode([]byte{0xC0, 0, 0, 0, 1}))
	require.ErrorIs(t, err, cosem.ErrNotNotification)
}

func TestDecodeOversizedFrame(t *testing.T) {
	stream := append([]byte{hdlc.Flag}, bytes.Repeat([]byte{0x42}, hdlc.MaxFrameLen+1)...)
	_, err := Decode(stream)
	require.ErrorIs(t, err, hdlc.ErrFrameTooLarge)
}

func TestTelegramJSON(t *testing.T) {
	tg, err := Decode(sampleWire(t))
	require.NoError(t, err)

	out, err := tg.MarshalJSON()
	require.NoError(t, err)
	require.Contains(t, string(out), `"invoke_id":1`)
	require.Contains(t, string(out), `"1-0:1.7.0"`)
	require.Contains(t, string(out), `2023-01-15 10:30:00`)
	require.NotContains(t, string(out), `"degraded"`)
}

func FuzzDecode(f *testing.F) {
	f.Add(sampleWire(f))
	f.Add([]byte{hdlc.Flag, 1, 2, 3, 4, 5, 6, 7, 8, 9, hdlc.Flag})
	f.Add([]byte{hdlc.Flag, hdlc.Escape, hdlc.Flag})
	f.Fuzz(func(t *testing.T, data []byte) {
		tg, err := Decode(data)
		if err == nil && tg == nil {
			t.Fatal("nil telegram without error")
		}
	})
}

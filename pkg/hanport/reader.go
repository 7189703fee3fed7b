package hanport

import (
	"context"
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"

	"github.com/sognelys/hanport/pkg/cosem"
	"github.com/sognelys/hanport/pkg/hanport/source"
	"github.com/sognelys/hanport/pkg/hdlc"
	"github.com/sognelys/hanport/pkg/util"
)

const defaultChunkSize = 256

// Reader pulls bytes from a source and yields one Telegram per valid frame.
// Corrupt frames are dropped and counted; the synchronizer reacquires at
// the next flag byte, so line noise costs at most the frame it landed in.
// Not safe for concurrent Next calls; Stats may be read from any goroutine.
type Reader struct {
	src  source.Source
	sync hdlc.Synchronizer

	chunk   []byte
	pending []byte
	srcErr  error

	logger      zerolog.Logger
	writeAPI    api.WriteAPI
	measurement string
	sourceKind  string
	stats       counters
}

// NewReader returns a Reader over src. Without options it logs nothing and
// writes metrics to a mock sink.
func NewReader(src source.Source, opts ...Option) *Reader {
	r := &Reader{
		src:         src,
		chunk:       make([]byte, defaultChunkSize),
		logger:      zerolog.Nop(),
		writeAPI:    &util.MockWriteAPI{}, // overwritten with option
		measurement: "han",
		sourceKind:  "unknown",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next blocks until one telegram has been decoded, the source fails, or a
// well-framed frame turns out unintelligible. Framing corruption (bad
// checksums, overflow, short or malformed headers) is line noise and is
// recovered internally; a frame that passes both check sequences but whose
// APDU breaks in a mandatory field (invoke id, date-time, body root) means
// the meter speaks something we cannot parse, and that error is surfaced.
// A later Next call resumes the stream past the bad frame.
func (r *Reader) Next(ctx context.Context) (*Telegram, error) {
	for {
		for len(r.pending) > 0 {
			b := r.pending[0]
			r.pending = r.pending[1:]
			t, err := r.push(b)
			if err != nil {
				return nil, err
			}
			if t != nil {
				return t, nil
			}
		}
		if r.srcErr != nil {
			return nil, r.srcErr
		}

		n, err := r.src.Read(ctx, r.chunk)
		if n > 0 {
			r.stats.bytesRead.Add(uint64(n))
			r.pending = r.chunk[:n]
		}
		if err != nil {
			// Drain what arrived with the error before surfacing it.
			r.srcErr = err
		}
	}
}

// Stats returns a snapshot of the reader's counters.
func (r *Reader) Stats() Stats {
	return r.stats.snapshot()
}

// IsDecodeError reports whether err from Next is a whole-frame decode
// failure rather than a source error, so stream consumers can choose to
// keep reading.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrSegmentedFrame) ||
		errors.Is(err, cosem.ErrTruncated) ||
		errors.Is(err, cosem.ErrUnexpectedTag) ||
		errors.Is(err, cosem.ErrTooDeep) ||
		errors.Is(err, cosem.ErrTooManyEntries) ||
		errors.Is(err, cosem.ErrNotNotification)
}

func (r *Reader) push(b byte) (*Telegram, error) {
	switch r.sync.Push(b) {
	case hdlc.EventOverflow:
		r.stats.syncOverflows.Add(1)
		r.stats.framesRejected.Add(1)
		r.logger.Debug().Str("event", "sync_overflow").Msg("dropped oversized frame")
	case hdlc.EventInvalidEscape:
		r.stats.invalidEscapes.Add(1)
		r.stats.framesRejected.Add(1)
		r.logger.Debug().Str("event", "invalid_escape").Msg("dropped frame with flag inside escape")
	case hdlc.EventFrame:
		return r.handleFrame(r.sync.Frame())
	}
	return nil, nil
}

func (r *Reader) handleFrame(frame []byte) (*Telegram, error) {
	var (
		t        *Telegram
		parseErr error
		apduErr  error
	)
	micros := util.TimeOperationMicroseconds(func() {
		h, payload, err := hdlc.Parse(frame)
		if err != nil {
			parseErr = err
			return
		}
		t, apduErr = assemble(h, frame, payload)
	})

	if parseErr != nil {
		r.stats.framesRejected.Add(1)
		switch {
		case errors.Is(parseErr, hdlc.ErrHeaderChecksum), errors.Is(parseErr, hdlc.ErrFrameChecksum):
			r.stats.checksumErrors.Add(1)
		default:
			r.stats.decodeErrors.Add(1)
		}
		r.logger.Debug().Err(parseErr).
			Str("event", "frame_rejected").
			Int("frame_len", len(frame)).
			Msg("dropped invalid frame")
		return nil, nil
	}

	if apduErr != nil {
		// Both check sequences verified, so this is not line noise: a
		// mandatory APDU field is broken and the caller must hear about it.
		r.stats.framesRejected.Add(1)
		r.stats.decodeErrors.Add(1)
		r.logger.Debug().Err(apduErr).
			Str("event", "apdu_failed").
			Int("frame_len", len(frame)).
			Msg("valid frame with undecodable APDU")
		return nil, apduErr
	}

	degraded := t.Degraded()
	r.stats.framesAccepted.Add(1)
	r.stats.entriesDecoded.Add(uint64(len(t.Entries) - degraded))
	r.stats.entriesDegraded.Add(uint64(degraded))
	if degraded > 0 {
		r.logger.Debug().
			Str("event", "entries_degraded").
			Int("degraded", degraded).
			Msg("telegram decoded with failed entries")
	}

	go r.writeAPI.WritePoint(influxdb2.NewPoint(r.measurement,
		map[string]string{
			"source": r.sourceKind,
		},
		map[string]interface{}{
			"entries":       len(t.Entries),
			"degraded":      degraded,
			"frame_bytes":   len(frame),
			"decode_micros": micros,
		}, time.Now()))

	return t, nil
}

// ReadTelegram drives a throwaway Reader until one telegram arrives; a
// convenience for callers that do not need stats or options.
func ReadTelegram(ctx context.Context, src source.Source) (*Telegram, error) {
	return NewReader(src).Next(ctx)
}

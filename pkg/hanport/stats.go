package hanport

import "sync/atomic"

// Stats is a snapshot of a Reader's counters.
type Stats struct {
	BytesRead       uint64 `json:"bytes_read"`
	FramesAccepted  uint64 `json:"frames_accepted"`
	FramesRejected  uint64 `json:"frames_rejected"`
	SyncOverflows   uint64 `json:"sync_overflows"`
	InvalidEscapes  uint64 `json:"invalid_escapes"`
	ChecksumErrors  uint64 `json:"checksum_errors"`
	DecodeErrors    uint64 `json:"decode_errors"`
	EntriesDecoded  uint64 `json:"entries_decoded"`
	EntriesDegraded uint64 `json:"entries_degraded"`
}

// counters is the live form; the Reader bumps these from its read loop and
// Stats readers snapshot concurrently.
type counters struct {
	bytesRead       atomic.Uint64
	framesAccepted  atomic.Uint64
	framesRejected  atomic.Uint64
	syncOverflows   atomic.Uint64
	invalidEscapes  atomic.Uint64
	checksumErrors  atomic.Uint64
	decodeErrors    atomic.Uint64
	entriesDecoded  atomic.Uint64
	entriesDegraded atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BytesRead:       c.bytesRead.Load(),
		FramesAccepted:  c.framesAccepted.Load(),
		FramesRejected:  c.framesRejected.Load(),
		SyncOverflows:   c.syncOverflows.Load(),
		InvalidEscapes:  c.invalidEscapes.Load(),
		ChecksumErrors:  c.checksumErrors.Load(),
		DecodeErrors:    c.decodeErrors.Load(),
		EntriesDecoded:  c.entriesDecoded.Load(),
		EntriesDegraded: c.entriesDegraded.Load(),
	}
}

package hanport

import (
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
)

// Option configures a Reader.
type Option func(r *Reader)

// WithLogger attaches a logger for debug-level decode events. Without it
// the Reader is silent; logging never changes decode outcomes.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger.With().Str("system", "hanport").Logger()
	}
}

// WithInfluxDB writes one point per accepted telegram to writeAPI under
// measurement.
func WithInfluxDB(writeAPI api.WriteAPI, measurement string) Option {
	return func(r *Reader) {
		r.writeAPI = writeAPI
		r.measurement = measurement
	}
}

// WithChunkSize sets how many bytes the Reader requests from its source per
// read.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunk = make([]byte, n)
		}
	}
}

// WithSourceKind tags metric points with the source backing the Reader
// ("serial", "file", "buffer").
func WithSourceKind(kind string) Option {
	return func(r *Reader) {
		r.sourceKind = kind
	}
}

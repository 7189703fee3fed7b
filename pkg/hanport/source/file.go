package source

import (
	"context"
	"os"
	"time"
)

// File replays a binary capture from disk, one chunk per delay tick, so a
// recorded session drives the pipeline at roughly the cadence a meter
// would. A zero delay replays as fast as Read is called.
type File struct {
	f         *os.File
	chunkSize int
	delay     time.Duration
}

// NewFile opens path for paced playback.
func NewFile(path string, chunkSize int, delay time.Duration) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 64
	}
	return &File{f: f, chunkSize: chunkSize, delay: delay}, nil
}

func (s *File) Read(ctx context.Context, p []byte) (int, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.delay):
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) > s.chunkSize {
		p = p[:s.chunkSize]
	}
	return s.f.Read(p)
}

func (s *File) Close() error {
	return s.f.Close()
}

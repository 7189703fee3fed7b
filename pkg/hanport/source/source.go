// Package source provides the byte sources a Reader pulls frames from: the
// meter's serial port, capture files for playback, and an in-memory buffer
// for tests and offline tooling.
package source

import (
	"context"
	"io"
)

// Source delivers raw bytes from a HAN port or a stand-in. Read fills p
// with at least one byte, blocking until data is available, the context is
// cancelled, or the source fails. Chunking is unspecified: a source may
// deliver one byte at a time or whole frames at once, and consumers must
// behave identically either way.
type Source interface {
	Read(ctx context.Context, p []byte) (int, error)
}

// Buffer replays an in-memory byte sequence and then reports io.EOF.
// ChunkSize caps how many bytes a single Read returns; zero means fill p.
type Buffer struct {
	Data      []byte
	ChunkSize int
	off       int
}

// NewBuffer returns a Buffer over data delivering up to chunk bytes per
// Read.
func NewBuffer(data []byte, chunk int) *Buffer {
	return &Buffer{Data: data, ChunkSize: chunk}
}

func (b *Buffer) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.off >= len(b.Data) {
		return 0, io.EOF
	}
	n := len(b.Data) - b.off
	if n > len(p) {
		n = len(p)
	}
	if b.ChunkSize > 0 && n > b.ChunkSize {
		n = b.ChunkSize
	}
	copy(p, b.Data[b.off:b.off+n])
	b.off += n
	return n, nil
}

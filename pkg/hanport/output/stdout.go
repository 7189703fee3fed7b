package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sognelys/hanport/pkg/hanport"
)

// Writer prints one JSON line per telegram to an io.Writer, usually stdout.
type Writer struct {
	w        io.Writer
	recvChan chan *hanport.Telegram
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:        w,
		recvChan: make(chan *hanport.Telegram, receiveDepth),
	}
}

func (o *Writer) Receive() chan<- *hanport.Telegram {
	return o.recvChan
}

func (o *Writer) Start(ctx context.Context) error {
	enc := json.NewEncoder(o.w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-o.recvChan:
			if err := enc.Encode(t); err != nil {
				log.Warn().Err(err).Msg("error writing telegram")
			}
		}
	}
}

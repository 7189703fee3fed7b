package output

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/sognelys/hanport/pkg/hanport"
)

// NATS publishes each telegram as JSON on a subject.
type NATS struct {
	nc       *nats.Conn
	subject  string
	recvChan chan *hanport.Telegram
}

func NewNATS(nc *nats.Conn, subject string) *NATS {
	return &NATS{
		nc:       nc,
		subject:  subject,
		recvChan: make(chan *hanport.Telegram, receiveDepth),
	}
}

func (o *NATS) Receive() chan<- *hanport.Telegram {
	return o.recvChan
}

func (o *NATS) Start(ctx context.Context) error {
	log.Info().Str("subject", o.subject).Msg("nats output starting")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-o.recvChan:
			data, err := json.Marshal(t)
			if err != nil {
				log.Warn().Err(err).Msg("error marshaling telegram")
				continue
			}
			if err := o.nc.Publish(o.subject, data); err != nil {
				log.Warn().Err(err).Str("subject", o.subject).Msg("error publishing telegram")
			}
		}
	}
}

// Package output fans decoded telegrams out to their consumers: stdout for
// interactive use, NATS for downstream services.
package output

import (
	"context"

	"github.com/sognelys/hanport/pkg/hanport"
)

// Output handles incoming decoded telegrams.
type Output interface {
	// Start runs the output loop, terminating when ctx closes or on any
	// error.
	Start(ctx context.Context) error
	// Receive returns the channel telegrams are delivered on. Senders must
	// not block on a slow output; skip instead.
	Receive() chan<- *hanport.Telegram
}

const receiveDepth = 8

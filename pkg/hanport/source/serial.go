package source

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// The read timeout is short so the poll loop notices context cancellation
// between attempts; a meter pushes a frame every few seconds at most.
const serialReadTimeout = 300 * time.Millisecond

// Serial reads from the meter's P1 port. HAN ports speak 8N1; 115200 baud
// is the rate the Swedish/Norwegian rollouts use.
type Serial struct {
	port serial.Port
	name string
}

// OpenSerial opens the named port. A baud of zero selects 115200.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return &Serial{port: port, name: name}, nil
}

func (s *Serial) Read(ctx context.Context, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := s.port.Read(p)
		if err != nil {
			return 0, fmt.Errorf("read %q: %w", s.name, err)
		}
		if n > 0 {
			return n, nil
		}
		// n == 0 means the read timed out with nothing buffered.
	}
}

func (s *Serial) Close() error {
	return s.port.Close()
}

package transport

import (
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Frame is an inbound or outbound AVDECC control frame. Payload holds the
// complete PDU starting at the AVTP control header.
type Frame struct {
	Source      wire.MacAddress
	Destination wire.MacAddress
	Payload     []byte
}

// FrameSender is the outbound half of a transport.
// Implemented by Endpoint.
type FrameSender interface {
	// SendFrame transmits an encoded PDU to the destination MAC.
	SendFrame(dst wire.MacAddress, payload []byte) error
}

// FrameHandler consumes inbound frames.
type FrameHandler func(f Frame)

// Clock supplies the current time. Engines take a Clock so tests can
// drive timeouts deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Compile-time interface satisfaction checks.
var (
	_ FrameSender = (*Endpoint)(nil)
	_ Clock       = SystemClock{}
)

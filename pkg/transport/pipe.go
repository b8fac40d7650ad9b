package transport

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Pipe errors.
var (
	ErrEndpointClosed = errors.New("endpoint closed")
	ErrPipeClosed     = errors.New("pipe closed")
)

// Pipe is an in-memory Ethernet segment. Every attached Endpoint sees
// multicast frames from all others; unicast frames are delivered to the
// endpoint owning the destination MAC. Delivery is synchronous on the
// sender's goroutine.
type Pipe struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint // keyed by link ID
	closed    bool
}

// NewPipe creates an empty segment.
func NewPipe() *Pipe {
	return &Pipe{endpoints: make(map[string]*Endpoint)}
}

// Attach adds an endpoint with the given MAC and returns it. The
// endpoint's LinkID is a fresh UUID, used to tag protocol log events.
func (p *Pipe) Attach(mac wire.MacAddress) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipeClosed
	}
	ep := &Endpoint{
		pipe:   p,
		mac:    mac,
		linkID: uuid.New().String(),
	}
	p.endpoints[ep.linkID] = ep
	return ep, nil
}

// Close detaches all endpoints. Subsequent sends fail.
func (p *Pipe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.endpoints = make(map[string]*Endpoint)
}

// deliver fans a frame out to the destination endpoint(s), skipping the
// sender.
func (p *Pipe) deliver(from *Endpoint, f Frame) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPipeClosed
	}
	var targets []*Endpoint
	multicast := f.Destination[0]&0x01 != 0
	for _, ep := range p.endpoints {
		if ep == from {
			continue
		}
		if multicast || ep.mac == f.Destination {
			targets = append(targets, ep)
		}
	}
	p.mu.RUnlock()

	for _, ep := range targets {
		ep.receive(f)
	}
	return nil
}

// Endpoint is one attachment to a Pipe. It satisfies FrameSender for the
// engines; inbound frames go to the handler set with SetReceiver.
type Endpoint struct {
	pipe   *Pipe
	mac    wire.MacAddress
	linkID string

	mu      sync.RWMutex
	handler FrameHandler
	closed  bool
}

// LinkID returns the endpoint's UUID, stable for its lifetime.
func (e *Endpoint) LinkID() string { return e.linkID }

// MAC returns the endpoint's hardware address.
func (e *Endpoint) MAC() wire.MacAddress { return e.mac }

// SetReceiver installs the inbound frame handler. Frames arriving before
// a handler is set are discarded.
func (e *Endpoint) SetReceiver(h FrameHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

// SendFrame transmits a PDU onto the segment.
func (e *Endpoint) SendFrame(dst wire.MacAddress, payload []byte) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrEndpointClosed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return e.pipe.deliver(e, Frame{
		Source:      e.mac,
		Destination: dst,
		Payload:     buf,
	})
}

// Close detaches the endpoint from the segment.
func (e *Endpoint) Close() {
	e.mu.Lock()
	e.closed = true
	e.handler = nil
	e.mu.Unlock()

	e.pipe.mu.Lock()
	delete(e.pipe.endpoints, e.linkID)
	e.pipe.mu.Unlock()
}

func (e *Endpoint) receive(f Frame) {
	e.mu.RLock()
	h := e.handler
	closed := e.closed
	e.mu.RUnlock()
	if closed || h == nil {
		return
	}
	h(f)
}

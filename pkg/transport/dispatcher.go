package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Dispatcher errors.
var (
	ErrUnknownSubtype = errors.New("unknown AVTP subtype")
	ErrNoHandler      = errors.New("no handler registered for subtype")
)

// DispatcherStats counts frame dispositions. Malformed or unroutable
// frames are dropped without mutating any engine state.
type DispatcherStats struct {
	Received   uint64
	Dispatched uint64
	Dropped    uint64
}

// Dispatcher routes inbound frames to the registered per-subtype handler.
// Handlers run on the caller's goroutine; the service layer calls Dispatch
// from its single worker.
type Dispatcher struct {
	mu    sync.RWMutex
	adp   FrameHandler
	aecp  FrameHandler
	acmp  FrameHandler
	stats DispatcherStats
}

// NewDispatcher creates a Dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// HandleADP registers the discovery handler.
func (d *Dispatcher) HandleADP(h FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adp = h
}

// HandleAECP registers the command handler.
func (d *Dispatcher) HandleAECP(h FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aecp = h
}

// HandleACMP registers the connection handler.
func (d *Dispatcher) HandleACMP(h FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acmp = h
}

// Dispatch routes one frame by its AVTP subtype. Frames too short to
// carry a subtype, with an unknown subtype, or without a registered
// handler are counted as dropped and reported as an error.
func (d *Dispatcher) Dispatch(f Frame) error {
	d.mu.Lock()
	d.stats.Received++

	subtype, ok := wire.PeekSubtype(f.Payload)
	if !ok {
		d.stats.Dropped++
		d.mu.Unlock()
		return wire.ErrShortFrame
	}

	var h FrameHandler
	switch subtype {
	case wire.SubtypeADP:
		h = d.adp
	case wire.SubtypeAECP:
		h = d.aecp
	case wire.SubtypeACMP:
		h = d.acmp
	default:
		d.stats.Dropped++
		d.mu.Unlock()
		return fmt.Errorf("%w: %#02x", ErrUnknownSubtype, subtype)
	}

	if h == nil {
		d.stats.Dropped++
		d.mu.Unlock()
		return fmt.Errorf("%w: %#02x", ErrNoHandler, subtype)
	}
	d.stats.Dispatched++
	d.mu.Unlock()

	h(f)
	return nil
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

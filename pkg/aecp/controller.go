package aecp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Command timing (IEEE 1722.1 §9.2.1). A command is retransmitted with
// an identical PDU; only after the last retransmit times out does the
// caller see ErrTimedOut.
const (
	DefaultTimeout = time.Second
	DefaultRetries = 2
)

// Result is the outcome of one command.
type Result struct {
	Status  wire.AEMStatus
	Payload []byte
	Err     error
}

// Config carries the Controller's dependencies.
type Config struct {
	// ControllerID identifies this controller in outgoing commands.
	ControllerID wire.EntityID

	Sender   transport.FrameSender
	Clock    transport.Clock
	Registry *model.Registry

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
	LinkID string

	// Timeout and Retries override the defaults when nonzero.
	Timeout time.Duration
	Retries int
}

type pendingKey struct {
	target wire.EntityID
	seq    uint16
}

type classKey struct {
	target wire.EntityID
	class  CommandClass
}

type pending struct {
	key         pendingKey
	class       CommandClass
	cmd         wire.AEMCommandType
	frame       []byte
	dst         wire.MacAddress
	deadline    time.Time
	retriesLeft int
	done        chan Result
}

// ControllerStats counts response dispositions.
type ControllerStats struct {
	Sent        uint64
	Retransmits uint64
	TimedOut    uint64
	Unmatched   uint64
}

// Controller issues AEM commands and resolves their responses.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	nextSeq map[wire.EntityID]uint16
	pending map[pendingKey]*pending
	inUse   map[classKey]struct{}
	stats   ControllerStats
}

// NewController creates a command controller.
func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	return &Controller{
		cfg:     cfg,
		nextSeq: make(map[wire.EntityID]uint16),
		pending: make(map[pendingKey]*pending),
		inUse:   make(map[classKey]struct{}),
	}
}

// SendCommand issues an arbitrary AEM command and waits for its
// resolution. It returns the response status and payload; transport
// failures, timeout, eviction, and cancellation surface as errors.
func (c *Controller) SendCommand(ctx context.Context, target wire.EntityID, cmd wire.AEMCommandType, payload []byte) (Result, error) {
	ent, ok := c.cfg.Registry.Get(target)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownEntity, target)
	}

	p, err := c.enqueue(target, ent.SourceMAC, cmd, payload)
	if err != nil {
		return Result{}, err
	}

	if err := c.cfg.Sender.SendFrame(p.dst, p.frame); err != nil {
		c.abandon(p)
		return Result{}, err
	}

	select {
	case res := <-p.done:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res, nil
	case <-ctx.Done():
		c.abandon(p)
		return Result{}, ctx.Err()
	}
}

// enqueue reserves the class slot, assigns a sequence ID and registers
// the pending record.
func (c *Controller) enqueue(target wire.EntityID, dst wire.MacAddress, cmd wire.AEMCommandType, payload []byte) (*pending, error) {
	class := classOf(cmd)

	c.mu.Lock()
	ck := classKey{target: target, class: class}
	if _, busy := c.inUse[ck]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s to %s", ErrBusy, class, target)
	}

	seq := c.nextSeq[target]
	c.nextSeq[target] = seq + 1 // wraps at 65535

	d := &wire.AECPDU{
		MessageType:        wire.AECPAEMCommand,
		TargetEntityID:     target,
		ControllerEntityID: c.cfg.ControllerID,
		SequenceID:         seq,
		CommandType:        cmd,
		Payload:            payload,
	}
	frame, err := d.Marshal()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	p := &pending{
		key:         pendingKey{target: target, seq: seq},
		class:       class,
		cmd:         cmd,
		frame:       frame,
		dst:         dst,
		deadline:    c.cfg.Clock.Now().Add(c.cfg.Timeout),
		retriesLeft: c.cfg.Retries,
		done:        make(chan Result, 1),
	}
	c.pending[p.key] = p
	c.inUse[ck] = struct{}{}
	c.stats.Sent++
	c.mu.Unlock()

	c.logPDU(log.DirectionOut, d)
	return p, nil
}

// abandon drops a pending record without resolving its channel, used on
// cancellation and transport failure. A record that already resolved is
// left alone; its class slot may belong to a newer command by now.
func (c *Controller) abandon(p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.pending[p.key]; !ok || cur != p {
		return
	}
	c.release(p)
}

// release removes the record and frees the class slot. Callers hold c.mu.
func (c *Controller) release(p *pending) {
	delete(c.pending, p.key)
	delete(c.inUse, classKey{target: p.key.target, class: p.class})
}

// OnFrame handles one inbound AECP frame. Only AEM responses addressed
// to this controller are considered; everything else belongs to a
// Responder.
func (c *Controller) OnFrame(f transport.Frame) {
	d, err := wire.UnmarshalAECPDU(f.Payload)
	if err != nil {
		c.logError("decode AECPDU", err)
		return
	}
	if d.MessageType != wire.AECPAEMResponse || d.ControllerEntityID != c.cfg.ControllerID {
		return
	}
	if d.Unsolicited {
		return // unsolicited notifications carry no pending record
	}
	c.logPDU(log.DirectionIn, d)

	c.mu.Lock()
	p, ok := c.pending[pendingKey{target: d.TargetEntityID, seq: d.SequenceID}]
	if !ok || p.cmd != d.CommandType {
		c.stats.Unmatched++
		c.mu.Unlock()
		return
	}

	// IN_PROGRESS restarts the deadline without consuming a retry.
	if d.Status == wire.AEMStatusInProgress {
		p.deadline = c.cfg.Clock.Now().Add(c.cfg.Timeout)
		c.mu.Unlock()
		return
	}

	c.release(p)
	c.mu.Unlock()

	p.done <- Result{Status: d.Status, Payload: d.Payload}
}

// Sweep retransmits expired commands and fails those out of retries.
// The service worker calls it periodically.
func (c *Controller) Sweep(now time.Time) {
	c.mu.Lock()
	var resend []*pending
	var fail []*pending
	for _, p := range c.pending {
		if p.deadline.After(now) {
			continue
		}
		if p.retriesLeft > 0 {
			p.retriesLeft--
			p.deadline = now.Add(c.cfg.Timeout)
			c.stats.Retransmits++
			resend = append(resend, p)
		} else {
			c.release(p)
			c.stats.TimedOut++
			fail = append(fail, p)
		}
	}
	c.mu.Unlock()

	for _, p := range resend {
		if err := c.cfg.Sender.SendFrame(p.dst, p.frame); err != nil {
			c.logError("retransmit", err)
		}
	}
	for _, p := range fail {
		p.done <- Result{Err: fmt.Errorf("%w: %s to %s", ErrTimedOut, p.cmd, p.key.target)}
	}
}

// FailEntity resolves every pending command to an evicted entity with
// ErrEntityUnavailable. Wired to the discovery engine's eviction cascade.
func (c *Controller) FailEntity(id wire.EntityID) {
	c.mu.Lock()
	var fail []*pending
	for _, p := range c.pending {
		if p.key.target == id {
			c.release(p)
			fail = append(fail, p)
		}
	}
	c.mu.Unlock()

	for _, p := range fail {
		p.done <- Result{Err: fmt.Errorf("%w: %s", ErrEntityUnavailable, id)}
	}
}

// PendingCount returns the number of in-flight commands.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stats returns a snapshot of the controller counters.
func (c *Controller) Stats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) logPDU(dir log.Direction, d *wire.AECPDU) {
	cmd := uint16(d.CommandType)
	ev := log.Event{
		Timestamp:      c.cfg.Clock.Now(),
		LinkID:         c.cfg.LinkID,
		Direction:      dir,
		Layer:          log.LayerWire,
		Category:       log.CategoryMessage,
		LocalRole:      log.RoleController,
		LocalEntityID:  uint64(c.cfg.ControllerID),
		RemoteEntityID: uint64(d.TargetEntityID),
		PDU: &log.PDUEvent{
			Subtype:            wire.SubtypeAECP,
			MessageType:        uint8(d.MessageType),
			SequenceID:         d.SequenceID,
			TargetEntityID:     uint64(d.TargetEntityID),
			ControllerEntityID: uint64(d.ControllerEntityID),
			CommandType:        &cmd,
		},
	}
	if d.MessageType.IsResponse() {
		status := uint8(d.Status)
		ev.PDU.Status = &status
	}
	c.cfg.Logger.Log(ev)
}

func (c *Controller) logError(context string, err error) {
	c.cfg.Logger.Log(log.Event{
		Timestamp:     c.cfg.Clock.Now(),
		LinkID:        c.cfg.LinkID,
		Direction:     log.DirectionIn,
		Layer:         log.LayerWire,
		Category:      log.CategoryError,
		LocalRole:     log.RoleController,
		LocalEntityID: uint64(c.cfg.ControllerID),
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

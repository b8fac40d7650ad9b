package acmp

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

// NotificationKind classifies a connection table change.
type NotificationKind uint8

const (
	ConnectionEstablished NotificationKind = iota
	ConnectionReleased
	ConnectionFailed
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case ConnectionEstablished:
		return "ESTABLISHED"
	case ConnectionReleased:
		return "RELEASED"
	case ConnectionFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Notification reports a connection table change to subscribers.
type Notification struct {
	Kind NotificationKind
	Conn Connection
}

// BandwidthPolicy is the stream reservation gate consulted before a
// talker leg is committed. Implementations typically front MSRP.
type BandwidthPolicy interface {
	Reserve(talker wire.EntityID, talkerUnique uint16, streamFormat uint64) error
	Release(talker wire.EntityID, talkerUnique uint16)
}

// Config carries the Engine's dependencies.
type Config struct {
	// ControllerID identifies this controller in outgoing commands.
	ControllerID wire.EntityID

	Sender   transport.FrameSender
	Clock    transport.Clock
	Registry *model.Registry

	// Bandwidth gates talker legs. Nil means bandwidth is always
	// available.
	Bandwidth BandwidthPolicy

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
	LinkID string
}

type attemptKind uint8

const (
	kindConnect attemptKind = iota
	kindDisconnect
	kindQuery
)

// attempt is one in-flight command saga. Connect and disconnect span two
// legs; the attempt is re-armed with a fresh sequence ID between them.
type attempt struct {
	kind attemptKind
	key  ConnKey

	talker       wire.EntityID
	talkerUnique uint16
	talkerMAC    wire.MacAddress
	listenerMAC  wire.MacAddress

	seq         uint16
	msgType     wire.ACMPMessageType
	frame       []byte
	dst         wire.MacAddress
	deadline    time.Time
	retriesLeft int

	// txEstablished marks a successful talker leg that must be unwound
	// if the listener leg fails.
	txEstablished bool

	// txTornDown marks an accepted DISCONNECT_TX: the talker binding is
	// gone even if the listener leg never resolves.
	txTornDown bool

	reserved bool

	done chan attemptResult
}

type attemptResult struct {
	conn Connection
	resp *wire.ACMPDU
	err  error
}

// EngineStats counts command dispositions.
type EngineStats struct {
	Sent        uint64
	Retransmits uint64
	TimedOut    uint64
	Unmatched   uint64
}

// Engine is the controller-side connection manager.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	conns   map[ConnKey]*Connection
	pending map[uint16]*attempt
	busy    map[ConnKey]*attempt
	nextSeq uint16
	subs    []func(Notification)
	stats   EngineStats
}

// NewEngine creates a connection engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	return &Engine{
		cfg:     cfg,
		conns:   make(map[ConnKey]*Connection),
		pending: make(map[uint16]*attempt),
		busy:    make(map[ConnKey]*attempt),
	}
}

// Subscribe registers a connection change callback. Callbacks run on the
// worker and must not block.
func (e *Engine) Subscribe(fn func(Notification)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// Connect establishes a stream from a talker output to a listener input.
// It returns the resulting connection row, or the existing one when the
// identical binding is already in place. The listener leg is only
// attempted after the talker leg succeeds; a listener failure unwinds
// the talker binding before the error surfaces.
func (e *Engine) Connect(ctx context.Context, talker wire.EntityID, talkerUnique uint16, listener wire.EntityID, listenerUnique uint16) (Connection, error) {
	tEnt, ok := e.cfg.Registry.Get(talker)
	if !ok {
		return Connection{}, fmt.Errorf("%w: talker %s", ErrUnknownEntity, talker)
	}
	lEnt, ok := e.cfg.Registry.Get(listener)
	if !ok {
		return Connection{}, fmt.Errorf("%w: listener %s", ErrUnknownEntity, listener)
	}
	key := ConnKey{ListenerEntityID: listener, ListenerUniqueID: listenerUnique}

	e.mu.Lock()
	if _, inFlight := e.busy[key]; inFlight {
		e.mu.Unlock()
		return Connection{}, fmt.Errorf("%w: %s[%d]", ErrBusy, listener, listenerUnique)
	}
	if row, exists := e.conns[key]; exists && row.State != StateIdle {
		if row.State == StateConnected {
			if row.TalkerEntityID == talker && row.TalkerUniqueID == talkerUnique {
				snapshot := *row
				e.mu.Unlock()
				return snapshot, nil
			}
			e.mu.Unlock()
			return Connection{}, statusErr(wire.ACMPStatusListenerExclusive)
		}
		e.mu.Unlock()
		return Connection{}, fmt.Errorf("%w: %s[%d] is %s", ErrBusy, listener, listenerUnique, row.State)
	}

	streamFormat, err := e.checkFormat(talker, talkerUnique, listener, listenerUnique)
	if err != nil {
		e.mu.Unlock()
		return Connection{}, err
	}

	reserved := false
	if e.cfg.Bandwidth != nil {
		if err := e.cfg.Bandwidth.Reserve(talker, talkerUnique, streamFormat); err != nil {
			e.mu.Unlock()
			return Connection{}, statusErr(wire.ACMPStatusTalkerNoBandwidth)
		}
		reserved = true
	}

	row := &Connection{
		ConnKey:        key,
		State:          StateConnecting,
		TalkerEntityID: talker,
		TalkerUniqueID: talkerUnique,
	}
	e.conns[key] = row

	a := &attempt{
		kind:         kindConnect,
		key:          key,
		talker:       talker,
		talkerUnique: talkerUnique,
		talkerMAC:    tEnt.SourceMAC,
		listenerMAC:  lEnt.SourceMAC,
		reserved:     reserved,
		done:         make(chan attemptResult, 1),
	}
	d := e.commandPDU(wire.ACMPConnectTxCommand, a)
	if err := e.armLocked(a, d, a.talkerMAC); err != nil {
		e.rollbackLocked(a)
		e.mu.Unlock()
		return Connection{}, err
	}
	e.busy[key] = a
	frame, dst := a.frame, a.dst
	e.mu.Unlock()

	if err := e.send(dst, frame); err != nil {
		e.mu.Lock()
		e.dropAttemptLocked(a)
		e.rollbackLocked(a)
		e.mu.Unlock()
		return Connection{}, err
	}

	res, err := e.wait(ctx, a)
	if err != nil {
		return Connection{}, err
	}
	return res.conn, nil
}

// Disconnect tears a stream connection down. An already idle or unknown
// binding is reported as success.
func (e *Engine) Disconnect(ctx context.Context, listener wire.EntityID, listenerUnique uint16) error {
	key := ConnKey{ListenerEntityID: listener, ListenerUniqueID: listenerUnique}

	e.mu.Lock()
	if _, inFlight := e.busy[key]; inFlight {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s[%d]", ErrBusy, listener, listenerUnique)
	}
	row, exists := e.conns[key]
	if !exists || row.State == StateIdle {
		e.mu.Unlock()
		return nil
	}
	if row.State != StateConnected {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s[%d] is %s", ErrBusy, listener, listenerUnique, row.State)
	}

	tEnt, ok := e.cfg.Registry.Get(row.TalkerEntityID)
	if !ok {
		// Talker gone: release the local binding without frames.
		snapshot := e.releaseRowLocked(key)
		e.mu.Unlock()
		e.notify(Notification{Kind: ConnectionReleased, Conn: snapshot})
		return nil
	}
	lEnt, _ := e.cfg.Registry.Get(listener)

	row.State = StateDisconnecting
	a := &attempt{
		kind:         kindDisconnect,
		key:          key,
		talker:       row.TalkerEntityID,
		talkerUnique: row.TalkerUniqueID,
		talkerMAC:    tEnt.SourceMAC,
		listenerMAC:  lEnt.SourceMAC,
		done:         make(chan attemptResult, 1),
	}
	d := e.commandPDU(wire.ACMPDisconnectTxCommand, a)
	if err := e.armLocked(a, d, a.talkerMAC); err != nil {
		row.State = StateConnected
		e.mu.Unlock()
		return err
	}
	e.busy[key] = a
	frame, dst := a.frame, a.dst
	e.mu.Unlock()

	if err := e.send(dst, frame); err != nil {
		e.mu.Lock()
		e.dropAttemptLocked(a)
		if r := e.conns[key]; r != nil {
			r.State = StateConnected
		}
		e.mu.Unlock()
		return err
	}

	_, err := e.wait(ctx, a)
	return err
}

// State returns the local connection table row for a listener stream.
func (e *Engine) State(listener wire.EntityID, listenerUnique uint16) (Connection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	row, ok := e.conns[ConnKey{ListenerEntityID: listener, ListenerUniqueID: listenerUnique}]
	if !ok {
		return Connection{}, false
	}
	return *row, true
}

// Connections returns a snapshot of all non-idle connection rows.
func (e *Engine) Connections() []Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Connection, 0, len(e.conns))
	for _, row := range e.conns {
		if row.State != StateIdle {
			out = append(out, *row)
		}
	}
	return out
}

// QueryRxState asks a listener for its current sink binding.
func (e *Engine) QueryRxState(ctx context.Context, listener wire.EntityID, listenerUnique uint16) (*wire.ACMPDU, error) {
	ent, ok := e.cfg.Registry.Get(listener)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, listener)
	}
	d := &wire.ACMPDU{
		MessageType:        wire.ACMPGetRxStateCommand,
		ControllerEntityID: e.cfg.ControllerID,
		ListenerEntityID:   listener,
		ListenerUniqueID:   listenerUnique,
	}
	return e.query(ctx, d, ent.SourceMAC)
}

// QueryTxState asks a talker for its source state and connection count.
func (e *Engine) QueryTxState(ctx context.Context, talker wire.EntityID, talkerUnique uint16) (*wire.ACMPDU, error) {
	ent, ok := e.cfg.Registry.Get(talker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, talker)
	}
	d := &wire.ACMPDU{
		MessageType:        wire.ACMPGetTxStateCommand,
		ControllerEntityID: e.cfg.ControllerID,
		TalkerEntityID:     talker,
		TalkerUniqueID:     talkerUnique,
	}
	return e.query(ctx, d, ent.SourceMAC)
}

func (e *Engine) query(ctx context.Context, d *wire.ACMPDU, dst wire.MacAddress) (*wire.ACMPDU, error) {
	a := &attempt{kind: kindQuery, done: make(chan attemptResult, 1)}

	e.mu.Lock()
	if err := e.armLocked(a, d, dst); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	frame := a.frame
	e.mu.Unlock()

	if err := e.send(dst, frame); err != nil {
		e.mu.Lock()
		e.dropAttemptLocked(a)
		e.mu.Unlock()
		return nil, err
	}

	res, err := e.wait(ctx, a)
	if err != nil {
		return nil, err
	}
	return res.resp, nil
}

// commandPDU builds a command PDU carrying the attempt's addressing.
func (e *Engine) commandPDU(t wire.ACMPMessageType, a *attempt) *wire.ACMPDU {
	return &wire.ACMPDU{
		MessageType:        t,
		ControllerEntityID: e.cfg.ControllerID,
		TalkerEntityID:     a.talker,
		TalkerUniqueID:     a.talkerUnique,
		ListenerEntityID:   a.key.ListenerEntityID,
		ListenerUniqueID:   a.key.ListenerUniqueID,
	}
}

// armLocked assigns a sequence ID, encodes the frame and registers the
// attempt for its next leg. Callers hold e.mu.
func (e *Engine) armLocked(a *attempt, d *wire.ACMPDU, dst wire.MacAddress) error {
	seq := e.nextSeq
	e.nextSeq++ // wraps at 65535
	d.SequenceID = seq

	frame, err := d.Marshal()
	if err != nil {
		return err
	}
	a.seq = seq
	a.msgType = d.MessageType
	a.frame = frame
	a.dst = dst
	a.deadline = e.cfg.Clock.Now().Add(timeoutFor(d.MessageType))
	a.retriesLeft = commandRetries
	e.pending[seq] = a
	e.stats.Sent++
	e.logPDU(log.DirectionOut, d)
	return nil
}

func (e *Engine) dropAttemptLocked(a *attempt) {
	delete(e.pending, a.seq)
	delete(e.busy, a.key)
}

// rollbackLocked returns the row to IDLE and releases any bandwidth
// reservation. Callers hold e.mu.
func (e *Engine) rollbackLocked(a *attempt) {
	if a.reserved && e.cfg.Bandwidth != nil {
		e.cfg.Bandwidth.Release(a.talker, a.talkerUnique)
		a.reserved = false
	}
	delete(e.conns, a.key)
}

// releaseRowLocked clears a row after disconnect and returns its final
// snapshot. Callers hold e.mu.
func (e *Engine) releaseRowLocked(key ConnKey) Connection {
	row := e.conns[key]
	snapshot := *row
	snapshot.State = StateIdle
	if e.cfg.Bandwidth != nil {
		e.cfg.Bandwidth.Release(row.TalkerEntityID, row.TalkerUniqueID)
	}
	delete(e.conns, key)
	return snapshot
}

// wait parks the caller until the worker resolves the attempt or the
// context is cancelled.
func (e *Engine) wait(ctx context.Context, a *attempt) (attemptResult, error) {
	select {
	case res := <-a.done:
		return res, res.err
	case <-ctx.Done():
		e.cancel(a)
		return attemptResult{}, ctx.Err()
	}
}

// cancel abandons an attempt on caller cancellation, unwinding an
// already established talker leg.
func (e *Engine) cancel(a *attempt) {
	e.mu.Lock()
	if _, still := e.pending[a.seq]; !still {
		e.mu.Unlock()
		return
	}
	e.dropAttemptLocked(a)
	var compensate []byte
	var released *Connection
	if a.kind == kindConnect {
		if a.txEstablished {
			compensate = e.compensationFrameLocked(a)
		}
		e.rollbackLocked(a)
	}
	if a.kind == kindDisconnect {
		if row := e.conns[a.key]; row != nil {
			if a.txTornDown {
				snapshot := e.releaseRowLocked(a.key)
				released = &snapshot
			} else {
				row.State = StateConnected
			}
		}
	}
	e.mu.Unlock()

	if compensate != nil {
		if err := e.send(a.talkerMAC, compensate); err != nil {
			e.logError("compensating disconnect", err)
		}
	}
	if released != nil {
		e.notify(Notification{Kind: ConnectionReleased, Conn: *released})
	}
}

// compensationFrameLocked builds the DISCONNECT_TX that unwinds a talker
// leg. It is fire-and-forget: the row is already rolling back to IDLE
// and nothing waits for the response. Callers hold e.mu.
func (e *Engine) compensationFrameLocked(a *attempt) []byte {
	d := e.commandPDU(wire.ACMPDisconnectTxCommand, a)
	d.SequenceID = e.nextSeq
	e.nextSeq++
	frame, err := d.Marshal()
	if err != nil {
		return nil
	}
	e.logPDU(log.DirectionOut, d)
	return frame
}

// OnFrame handles one inbound ACMP frame. Only responses addressed to
// this controller are considered; commands belong to a Responder.
func (e *Engine) OnFrame(f transport.Frame) {
	d, err := wire.UnmarshalACMPDU(f.Payload)
	if err != nil {
		e.logError("decode ACMPDU", err)
		return
	}
	if !d.MessageType.IsResponse() || d.ControllerEntityID != e.cfg.ControllerID {
		return
	}
	e.logPDU(log.DirectionIn, d)

	e.mu.Lock()
	a, ok := e.pending[d.SequenceID]
	if !ok || a.msgType.Response() != d.MessageType {
		e.stats.Unmatched++
		e.mu.Unlock()
		return
	}
	delete(e.pending, d.SequenceID)
	acts := e.advanceLocked(a, d, nil)
	e.mu.Unlock()

	e.perform(acts)
}

// actions carries the sends, resolutions and notifications decided under
// the lock, executed outside it.
type actions struct {
	sends   []outFrame
	resolve *attempt
	result  attemptResult
	notifs  []Notification
}

type outFrame struct {
	dst   wire.MacAddress
	frame []byte
}

func (e *Engine) perform(acts actions) {
	for _, s := range acts.sends {
		if err := e.send(s.dst, s.frame); err != nil {
			e.logError("send", err)
		}
	}
	if acts.resolve != nil {
		acts.resolve.done <- acts.result
	}
	for _, n := range acts.notifs {
		e.notify(n)
	}
}

// advanceLocked moves an attempt's saga forward on a response (or, when
// failure is non-nil, on timeout). Callers hold e.mu; the attempt has
// already been removed from e.pending.
func (e *Engine) advanceLocked(a *attempt, d *wire.ACMPDU, failure error) actions {
	var acts actions
	fail := func(err error) {
		delete(e.busy, a.key)
		switch a.kind {
		case kindConnect:
			if a.txEstablished {
				if frame := e.compensationFrameLocked(a); frame != nil {
					acts.sends = append(acts.sends, outFrame{dst: a.talkerMAC, frame: frame})
				}
			}
			e.rollbackLocked(a)
		case kindDisconnect:
			if row := e.conns[a.key]; row != nil {
				if a.txTornDown {
					// The talker already dropped the binding; keeping the
					// row CONNECTED would overstate the table.
					snapshot := e.releaseRowLocked(a.key)
					acts.notifs = append(acts.notifs, Notification{Kind: ConnectionReleased, Conn: snapshot})
				} else {
					row.State = StateConnected
				}
			}
		}
		acts.resolve = a
		acts.result = attemptResult{err: err}
	}

	if failure != nil {
		fail(failure)
		return acts
	}

	switch a.msgType {
	case wire.ACMPConnectTxCommand:
		if d.Status != wire.ACMPStatusSuccess {
			fail(statusErr(d.Status))
			return acts
		}
		a.txEstablished = true
		row := e.conns[a.key]
		row.StreamID = d.StreamID
		row.StreamDestMAC = d.StreamDestMAC
		row.StreamVlanID = d.StreamVlanID
		row.Flags = d.Flags
		row.ConnectionCount = d.ConnectionCount

		next := e.commandPDU(wire.ACMPConnectRxCommand, a)
		next.StreamID = d.StreamID
		next.StreamDestMAC = d.StreamDestMAC
		next.StreamVlanID = d.StreamVlanID
		next.Flags = d.Flags
		if err := e.armLocked(a, next, a.listenerMAC); err != nil {
			fail(err)
			return acts
		}
		acts.sends = append(acts.sends, outFrame{dst: a.dst, frame: a.frame})

	case wire.ACMPConnectRxCommand:
		if d.Status != wire.ACMPStatusSuccess {
			fail(statusErr(d.Status))
			return acts
		}
		delete(e.busy, a.key)
		row := e.conns[a.key]
		row.State = StateConnected
		acts.resolve = a
		acts.result = attemptResult{conn: *row, resp: d}
		acts.notifs = append(acts.notifs, Notification{Kind: ConnectionEstablished, Conn: *row})

	case wire.ACMPDisconnectTxCommand:
		if !disconnectOK(d.Status) {
			fail(statusErr(d.Status))
			return acts
		}
		a.txTornDown = true
		next := e.commandPDU(wire.ACMPDisconnectRxCommand, a)
		if err := e.armLocked(a, next, a.listenerMAC); err != nil {
			fail(err)
			return acts
		}
		acts.sends = append(acts.sends, outFrame{dst: a.dst, frame: a.frame})

	case wire.ACMPDisconnectRxCommand:
		if !disconnectOK(d.Status) {
			fail(statusErr(d.Status))
			return acts
		}
		delete(e.busy, a.key)
		snapshot := e.releaseRowLocked(a.key)
		acts.resolve = a
		acts.result = attemptResult{conn: snapshot, resp: d}
		acts.notifs = append(acts.notifs, Notification{Kind: ConnectionReleased, Conn: snapshot})

	default: // queries
		if d.Status != wire.ACMPStatusSuccess {
			acts.resolve = a
			acts.result = attemptResult{err: statusErr(d.Status)}
			return acts
		}
		acts.resolve = a
		acts.result = attemptResult{resp: d}
	}
	return acts
}

// disconnectOK accepts the statuses that mean "nothing is connected",
// which a teardown treats as already done.
func disconnectOK(s wire.ACMPStatus) bool {
	return s == wire.ACMPStatusSuccess ||
		s == wire.ACMPStatusNotConnected ||
		s == wire.ACMPStatusNoSuchConnection
}

// Sweep retransmits expired legs and fails attempts out of retries. The
// service worker calls it periodically.
func (e *Engine) Sweep(now time.Time) {
	e.mu.Lock()
	var resend []outFrame
	var all []actions
	for seq, a := range e.pending {
		if a.deadline.After(now) {
			continue
		}
		if a.retriesLeft > 0 {
			a.retriesLeft--
			a.deadline = now.Add(timeoutFor(a.msgType))
			e.stats.Retransmits++
			resend = append(resend, outFrame{dst: a.dst, frame: a.frame})
			continue
		}
		delete(e.pending, seq)
		e.stats.TimedOut++
		all = append(all, e.advanceLocked(a, nil, fmt.Errorf("%w: %s", ErrTimedOut, a.msgType)))
	}
	e.mu.Unlock()

	for _, s := range resend {
		if err := e.send(s.dst, s.frame); err != nil {
			e.logError("retransmit", err)
		}
	}
	for _, acts := range all {
		e.perform(acts)
	}
}

// FailEntity fails every attempt and drops every connection involving an
// evicted entity. Wired to the discovery engine's eviction cascade.
func (e *Engine) FailEntity(id wire.EntityID) {
	e.mu.Lock()
	var all []actions
	for seq, a := range e.pending {
		if a.kind == kindQuery {
			continue
		}
		if a.talker != id && a.key.ListenerEntityID != id {
			continue
		}
		delete(e.pending, seq)
		all = append(all, e.advanceLocked(a, nil, fmt.Errorf("%w: %s", ErrEntityUnavailable, id)))
	}
	var dropped []Connection
	for key, row := range e.conns {
		if row.TalkerEntityID != id && key.ListenerEntityID != id {
			continue
		}
		if _, inFlight := e.busy[key]; inFlight {
			continue
		}
		snapshot := *row
		snapshot.State = StateIdle
		if e.cfg.Bandwidth != nil {
			e.cfg.Bandwidth.Release(row.TalkerEntityID, row.TalkerUniqueID)
		}
		delete(e.conns, key)
		dropped = append(dropped, snapshot)
	}
	e.mu.Unlock()

	for _, acts := range all {
		e.perform(acts)
	}
	for _, c := range dropped {
		e.notify(Notification{Kind: ConnectionFailed, Conn: c})
	}
}

// PendingCount returns the number of in-flight command legs.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// checkFormat fails fast on a talker/listener stream format mismatch.
// The check uses cached descriptors; when either side has not been
// enumerated the formats cannot be compared and the connect proceeds.
// It returns the talker's format for the bandwidth reservation.
func (e *Engine) checkFormat(talker wire.EntityID, talkerUnique uint16, listener wire.EntityID, listenerUnique uint16) (uint64, error) {
	tDesc, tOK := e.cfg.Registry.CachedDescriptor(talker, wire.DescriptorStreamOutput, talkerUnique)
	lDesc, lOK := e.cfg.Registry.CachedDescriptor(listener, wire.DescriptorStreamInput, listenerUnique)
	var format uint64
	if tOK {
		format = tDesc.StreamFormat
	}
	if tOK && lOK && tDesc.StreamFormat != 0 && lDesc.StreamFormat != 0 &&
		tDesc.StreamFormat != lDesc.StreamFormat {
		return 0, statusErr(wire.ACMPStatusIncompatibleRequest)
	}
	return format, nil
}

func (e *Engine) send(dst wire.MacAddress, frame []byte) error {
	return e.cfg.Sender.SendFrame(dst, frame)
}

func (e *Engine) notify(n Notification) {
	e.mu.Lock()
	subs := make([]func(Notification), len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

func (e *Engine) logPDU(dir log.Direction, d *wire.ACMPDU) {
	e.cfg.Logger.Log(log.Event{
		Timestamp:      e.cfg.Clock.Now(),
		LinkID:         e.cfg.LinkID,
		Direction:      dir,
		Layer:          log.LayerWire,
		Category:       log.CategoryMessage,
		LocalRole:      log.RoleController,
		LocalEntityID:  uint64(e.cfg.ControllerID),
		RemoteEntityID: uint64(d.TalkerEntityID),
		PDU: &log.PDUEvent{
			Subtype:            wire.SubtypeACMP,
			MessageType:        uint8(d.MessageType),
			SequenceID:         d.SequenceID,
			ControllerEntityID: uint64(d.ControllerEntityID),
		},
	})
}

func (e *Engine) logError(context string, err error) {
	e.cfg.Logger.Log(log.Event{
		Timestamp:     e.cfg.Clock.Now(),
		LinkID:        e.cfg.LinkID,
		Direction:     log.DirectionIn,
		Layer:         log.LayerWire,
		Category:      log.CategoryError,
		LocalRole:     log.RoleController,
		LocalEntityID: uint64(e.cfg.ControllerID),
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

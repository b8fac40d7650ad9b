package adp

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Engine errors.
var (
	ErrNotAdvertised     = errors.New("entity not advertised")
	ErrAlreadyAdvertised = errors.New("entity already advertised")
)

// Timing constants. The advertise interval derives from the entity's
// valid_time; discover responses are jittered to avoid synchronized
// bursts on a shared segment.
const (
	minAdvertiseInterval = time.Second
	discoverJitterMax    = 200 * time.Millisecond
)

// NotificationKind classifies a registry change.
type NotificationKind uint8

const (
	EntityAdded NotificationKind = iota
	EntityUpdated
	EntityRestarted
	EntityDeparted
	EntityExpired
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case EntityAdded:
		return "ADDED"
	case EntityUpdated:
		return "UPDATED"
	case EntityRestarted:
		return "RESTARTED"
	case EntityDeparted:
		return "DEPARTED"
	case EntityExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Notification reports a change in the remote entity registry.
type Notification struct {
	Kind   NotificationKind
	Entity model.Entity
}

// Config carries the Engine's dependencies.
type Config struct {
	Sender   transport.FrameSender
	Clock    transport.Clock
	Registry *model.Registry
	Tracker  *compat.Tracker

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger

	// LinkID tags log events with the transport attachment.
	LinkID string

	// Jitter overrides the discover-response delay, for tests.
	// Nil uses a uniform random delay in [0, max).
	Jitter func(max time.Duration) time.Duration
}

type localAdvert struct {
	entity *model.LocalEntity
	gen    compat.Generation
	next   time.Time

	// discoverDue is the deadline for a pending jittered re-advertise,
	// zero when none is pending.
	discoverDue time.Time
}

// Engine runs discovery for any number of local entities and maintains
// the registry of remote ones.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	locals map[wire.EntityID]*localAdvert
	subs   []func(Notification)

	// onEvict runs after a remote entity is removed for any reason, so
	// dependent engines can fail in-flight state.
	onEvict func(id wire.EntityID)
}

// NewEngine creates a discovery engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.Jitter == nil {
		cfg.Jitter = func(max time.Duration) time.Duration {
			return time.Duration(rand.Int63n(int64(max)))
		}
	}
	return &Engine{
		cfg:    cfg,
		locals: make(map[wire.EntityID]*localAdvert),
	}
}

// Subscribe registers a registry change callback. Callbacks run on the
// worker goroutine and must not block.
func (e *Engine) Subscribe(fn func(Notification)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// OnEvict registers the eviction cascade callback.
func (e *Engine) OnEvict(fn func(id wire.EntityID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEvict = fn
}

// advertiseInterval derives the re-advertise period from valid_time.
// A quarter of the validity period keeps three advertisements in flight
// before a peer would expire us.
func advertiseInterval(validTime uint8) time.Duration {
	iv := time.Duration(validTime) * 2 * time.Second / 4
	if iv < minAdvertiseInterval {
		iv = minAdvertiseInterval
	}
	return iv
}

// Advertise registers a local entity and multicasts its first
// ENTITY_AVAILABLE. gen selects the wire layout peers will see.
func (e *Engine) Advertise(entity *model.LocalEntity, gen compat.Generation) error {
	e.mu.Lock()
	if _, ok := e.locals[entity.EntityID]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyAdvertised, entity.EntityID)
	}
	la := &localAdvert{entity: entity, gen: gen}
	e.locals[entity.EntityID] = la
	e.mu.Unlock()

	return e.sendAvailable(la)
}

// Readvertise multicasts ENTITY_AVAILABLE ahead of schedule, after a
// state change the entity's available_index now reflects.
func (e *Engine) Readvertise(id wire.EntityID) error {
	e.mu.Lock()
	la, ok := e.locals[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAdvertised, id)
	}
	return e.sendAvailable(la)
}

// Depart multicasts ENTITY_DEPARTING and withdraws the entity.
func (e *Engine) Depart(id wire.EntityID) error {
	e.mu.Lock()
	la, ok := e.locals[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAdvertised, id)
	}
	delete(e.locals, id)
	e.mu.Unlock()

	d := la.entity.ADPDU()
	d.MessageType = wire.ADPEntityDeparting
	return e.send(la.gen, d)
}

// Discover multicasts an ENTITY_DISCOVER. A zero target asks every
// entity on the segment to re-advertise.
func (e *Engine) Discover(target wire.EntityID) error {
	d := &wire.ADPDU{
		MessageType: wire.ADPEntityDiscover,
		EntityID:    target,
	}
	return e.send(compat.Gen2021, d)
}

// OnFrame handles one inbound ADP frame. Malformed frames are logged and
// dropped without touching the registry.
func (e *Engine) OnFrame(f transport.Frame) {
	raw, err := wire.UnmarshalADPDU(f.Payload)
	if err != nil {
		e.logError("decode ADPDU", err)
		return
	}

	switch raw.MessageType {
	case wire.ADPEntityAvailable:
		e.handleAvailable(raw, f)
	case wire.ADPEntityDeparting:
		e.handleDeparting(raw)
	case wire.ADPEntityDiscover:
		e.handleDiscover(raw)
	}
}

func (e *Engine) handleAvailable(raw *wire.ADPDU, f transport.Frame) {
	e.mu.Lock()
	_, isLocal := e.locals[raw.EntityID]
	e.mu.Unlock()
	if isLocal {
		return // our own multicast reflected back
	}

	gen := e.cfg.Tracker.Observe(raw)
	d, err := compat.ForGeneration(gen).DecodeADPDU(f.Payload)
	if err != nil {
		e.logError("decode ADPDU", err)
		return
	}

	now := e.cfg.Clock.Now()
	switch e.cfg.Registry.Upsert(d, gen, f.Source, now) {
	case model.EntityAdded:
		e.notifyChange(EntityAdded, d.EntityID, log.DiscoveryAdded, d.AvailableIndex)
	case model.EntityUpdated:
		e.notifyChange(EntityUpdated, d.EntityID, log.DiscoveryUpdated, d.AvailableIndex)
	case model.EntityRestarted:
		e.notifyChange(EntityRestarted, d.EntityID, log.DiscoveryRestarted, d.AvailableIndex)
	}
}

func (e *Engine) handleDeparting(raw *wire.ADPDU) {
	ent, known := e.cfg.Registry.Get(raw.EntityID)
	if !known {
		return
	}
	e.cfg.Registry.Remove(raw.EntityID)
	e.cfg.Tracker.Forget(raw.EntityID)
	e.notify(Notification{Kind: EntityDeparted, Entity: ent})
	e.logDiscovery(log.DiscoveryDeparted, uint64(raw.EntityID), raw.AvailableIndex)
	e.evict(raw.EntityID)
}

func (e *Engine) handleDiscover(raw *wire.ADPDU) {
	now := e.cfg.Clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, la := range e.locals {
		if !raw.EntityID.IsUniversal() && raw.EntityID != id {
			continue
		}
		due := now.Add(e.cfg.Jitter(discoverJitterMax))
		if la.discoverDue.IsZero() || due.Before(la.discoverDue) {
			la.discoverDue = due
		}
	}
}

// Sweep drives the engine's timers: due advertisements, pending discover
// responses, and liveness expiry of remote entities. The service worker
// calls it periodically.
func (e *Engine) Sweep(now time.Time) {
	// Expire remote entities first so a re-advertise in the same tick
	// re-adds instead of refreshing stale state.
	for _, ent := range e.cfg.Registry.ExpiredBefore(now) {
		e.cfg.Registry.Remove(ent.EntityID)
		e.cfg.Tracker.Forget(ent.EntityID)
		e.notify(Notification{Kind: EntityExpired, Entity: ent})
		e.logDiscovery(log.DiscoveryExpired, uint64(ent.EntityID), ent.AvailableIndex)
		e.evict(ent.EntityID)
	}

	e.mu.Lock()
	var due []*localAdvert
	for _, la := range e.locals {
		if !la.next.After(now) {
			due = append(due, la)
			continue
		}
		if !la.discoverDue.IsZero() && !la.discoverDue.After(now) {
			due = append(due, la)
		}
	}
	e.mu.Unlock()

	for _, la := range due {
		if err := e.sendAvailable(la); err != nil {
			e.logError("advertise", err)
		}
	}
}

// sendAvailable multicasts ENTITY_AVAILABLE and reschedules.
func (e *Engine) sendAvailable(la *localAdvert) error {
	d := la.entity.ADPDU()
	err := e.send(la.gen, d)

	e.mu.Lock()
	la.next = e.cfg.Clock.Now().Add(advertiseInterval(d.ValidTime))
	la.discoverDue = time.Time{}
	e.mu.Unlock()
	return err
}

func (e *Engine) send(gen compat.Generation, d *wire.ADPDU) error {
	data, err := compat.ForGeneration(gen).EncodeADPDU(d)
	if err != nil {
		return err
	}
	e.cfg.Logger.Log(log.Event{
		Timestamp: e.cfg.Clock.Now(),
		LinkID:    e.cfg.LinkID,
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		PDU: &log.PDUEvent{
			Subtype:        wire.SubtypeADP,
			MessageType:    uint8(d.MessageType),
			TargetEntityID: uint64(d.EntityID),
		},
	})
	return e.cfg.Sender.SendFrame(wire.AVDECCMulticast, data)
}

func (e *Engine) notifyChange(kind NotificationKind, id wire.EntityID, change log.DiscoveryChange, availIdx uint32) {
	if ent, ok := e.cfg.Registry.Get(id); ok {
		e.notify(Notification{Kind: kind, Entity: ent})
	}
	e.logDiscovery(change, uint64(id), availIdx)
	if kind == EntityRestarted {
		e.evict(id)
	}
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

func (e *Engine) evict(id wire.EntityID) {
	e.mu.Lock()
	fn := e.onEvict
	e.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func (e *Engine) logDiscovery(change log.DiscoveryChange, id uint64, availIdx uint32) {
	e.cfg.Logger.Log(log.Event{
		Timestamp:      e.cfg.Clock.Now(),
		LinkID:         e.cfg.LinkID,
		Direction:      log.DirectionIn,
		Layer:          log.LayerService,
		Category:       log.CategoryDiscovery,
		RemoteEntityID: id,
		Discovery: &log.DiscoveryEvent{
			Change:         change,
			EntityID:       id,
			AvailableIndex: availIdx,
		},
	})
}

func (e *Engine) logError(context string, err error) {
	e.cfg.Logger.Log(log.Event{
		Timestamp: e.cfg.Clock.Now(),
		LinkID:    e.cfg.LinkID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

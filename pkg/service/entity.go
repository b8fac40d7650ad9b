package service

import (
	"context"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/acmp"
	"github.com/avb-protocol/avdecc-go/pkg/adp"
	"github.com/avb-protocol/avdecc-go/pkg/aecp"
	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/persistence"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// EntityService runs one or more local AVDECC entities: it advertises
// them, answers enumeration and control commands, and serves stream
// connection requests.
type EntityService struct {
	mu    sync.RWMutex
	state ServiceState

	cfg      EntityConfig
	registry *model.Registry
	tracker  *compat.Tracker

	discovery *adp.Engine
	commands  *aecp.Responder
	streams   *acmp.Responder
	dispatch  *transport.Dispatcher

	served map[wire.EntityID]*model.LocalEntity
	saved  map[wire.EntityID]persistence.EntityRecord

	frames  chan transport.Frame
	dropped uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEntityService creates an entity service.
func NewEntityService(cfg EntityConfig) (*EntityService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Clock = clockOrSystem(cfg.Clock)
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}

	registry := model.NewRegistry()
	tracker := compat.NewTracker()

	svc := &EntityService{
		state:    StateIdle,
		cfg:      cfg,
		registry: registry,
		tracker:  tracker,
		served:   make(map[wire.EntityID]*model.LocalEntity),
		saved:    make(map[wire.EntityID]persistence.EntityRecord),
		frames:   make(chan transport.Frame, queueSize(cfg.QueueSize)),
	}

	svc.discovery = adp.NewEngine(adp.Config{
		Sender:   cfg.Sender,
		Clock:    cfg.Clock,
		Registry: registry,
		Tracker:  tracker,
		Logger:   cfg.Logger,
		LinkID:   cfg.LinkID,
	})
	svc.commands = aecp.NewResponder(aecp.ResponderConfig{
		Sender:  cfg.Sender,
		Clock:   cfg.Clock,
		Tracker: tracker,
		Logger:  cfg.Logger,
		LinkID:  cfg.LinkID,
		// A mutating command bumps the entity's available_index; the
		// immediate re-advertisement carries it to peer registries.
		OnMutate: func(id wire.EntityID) {
			if err := svc.discovery.Readvertise(id); err != nil {
				svc.logError("readvertise", err)
			}
		},
	})
	svc.streams = acmp.NewResponder(acmp.ResponderConfig{
		Sender: cfg.Sender,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
		LinkID: cfg.LinkID,
	})

	// A controller that departs or times out forfeits its acquisitions
	// and locks on every served entity.
	svc.discovery.Subscribe(func(n adp.Notification) {
		switch n.Kind {
		case adp.EntityDeparted, adp.EntityExpired:
			svc.commands.DropController(n.Entity.EntityID)
		}
	})

	d := transport.NewDispatcher()
	d.HandleADP(svc.discovery.OnFrame)
	d.HandleAECP(svc.commands.OnFrame)
	d.HandleACMP(svc.streams.OnFrame)
	svc.dispatch = d

	return svc, nil
}

// State returns the current service state.
func (s *EntityService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Serve registers a local entity, restores its persisted state and
// starts advertising it. The restored available_index keeps remote
// controllers from mistaking this process start for a restart loop.
func (s *EntityService) Serve(entity *model.LocalEntity, gen compat.Generation) error {
	if s.cfg.Store != nil {
		rec, ok, err := s.cfg.Store.Lookup(entity.EntityID)
		if err != nil {
			return err
		}
		if ok {
			entity.RestoreAvailableIndex(rec.AvailableIndex + 1)
			// A configuration index from an older entity definition may
			// no longer exist; keep the default then.
			_ = entity.SetConfiguration(rec.CurrentConfiguration)
		}
	}

	s.mu.Lock()
	s.served[entity.EntityID] = entity
	s.mu.Unlock()

	s.commands.Serve(entity)
	s.streams.Serve(entity)
	return s.discovery.Advertise(entity, gen)
}

// Depart sends ENTITY_DEPARTING, withdraws the entity from all
// responders and persists its final state.
func (s *EntityService) Depart(id wire.EntityID) error {
	s.mu.Lock()
	entity, ok := s.served[id]
	delete(s.served, id)
	s.mu.Unlock()

	s.commands.Remove(id)
	s.streams.Remove(id)
	err := s.discovery.Depart(id)
	if ok {
		s.persist(id, entity)
	}
	return err
}

// ServedEntity returns a served local entity by ID.
func (s *EntityService) ServedEntity(id wire.EntityID) (*model.LocalEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.served[id]
	return e, ok
}

// Start launches the worker goroutine.
func (s *EntityService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	go s.run(ctx)
	return nil
}

// Stop shuts the worker down, waits for it to exit and persists the
// state of every served entity.
func (s *EntityService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopped
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.persistAll()
	return nil
}

func (s *EntityService) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(sweepInterval(s.cfg.SweepInterval))
	defer ticker.Stop()

	for {
		select {
		case f := <-s.frames:
			_ = s.dispatch.Dispatch(f)
		case <-ticker.C:
			s.discovery.Sweep(s.cfg.Clock.Now())
			s.persistAll()
		case <-ctx.Done():
			return
		}
	}
}

// HandleFrame hands one received frame to the worker without blocking.
func (s *EntityService) HandleFrame(f transport.Frame) {
	select {
	case s.frames <- f:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// DroppedFrames returns the number of frames dropped on queue overflow.
func (s *EntityService) DroppedFrames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *EntityService) logError(op string, err error) {
	s.cfg.Logger.Log(log.Event{
		Timestamp: s.cfg.Clock.Now(),
		LinkID:    s.cfg.LinkID,
		Direction: log.DirectionOut,
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: err.Error(),
			Context: op,
		},
	})
}

// persistAll writes the record of every served entity whose state
// changed since the last save.
func (s *EntityService) persistAll() {
	if s.cfg.Store == nil {
		return
	}
	s.mu.RLock()
	entities := make(map[wire.EntityID]*model.LocalEntity, len(s.served))
	for id, e := range s.served {
		entities[id] = e
	}
	s.mu.RUnlock()

	for id, e := range entities {
		s.persist(id, e)
	}
}

func (s *EntityService) persist(id wire.EntityID, e *model.LocalEntity) {
	if s.cfg.Store == nil {
		return
	}
	rec := persistence.EntityRecord{
		AvailableIndex:       e.AvailableIndex(),
		CurrentConfiguration: e.CurrentConfiguration(),
	}

	s.mu.Lock()
	if prev, ok := s.saved[id]; ok && prev == rec {
		s.mu.Unlock()
		return
	}
	s.saved[id] = rec
	s.mu.Unlock()

	_ = s.cfg.Store.Record(id, rec)
}

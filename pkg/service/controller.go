package service

import (
	"context"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/acmp"
	"github.com/avb-protocol/avdecc-go/pkg/adp"
	"github.com/avb-protocol/avdecc-go/pkg/aecp"
	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ControllerService orchestrates an AVDECC controller.
type ControllerService struct {
	mu    sync.RWMutex
	state ServiceState

	cfg      ControllerConfig
	registry *model.Registry
	tracker  *compat.Tracker

	discovery   *adp.Engine
	commands    *aecp.Controller
	connections *acmp.Engine
	dispatcher  *transport.Dispatcher

	frames  chan transport.Frame
	dropped uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewControllerService creates a controller service.
func NewControllerService(cfg ControllerConfig) (*ControllerService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Clock = clockOrSystem(cfg.Clock)

	registry := model.NewRegistry()
	tracker := compat.NewTracker()

	svc := &ControllerService{
		state:    StateIdle,
		cfg:      cfg,
		registry: registry,
		tracker:  tracker,
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
	svc.commands = aecp.NewController(aecp.Config{
		ControllerID: cfg.ControllerID,
		Sender:       cfg.Sender,
		Clock:        cfg.Clock,
		Registry:     registry,
		Logger:       cfg.Logger,
		LinkID:       cfg.LinkID,
	})
	svc.connections = acmp.NewEngine(acmp.Config{
		ControllerID: cfg.ControllerID,
		Sender:       cfg.Sender,
		Clock:        cfg.Clock,
		Registry:     registry,
		Bandwidth:    cfg.Bandwidth,
		Logger:       cfg.Logger,
		LinkID:       cfg.LinkID,
	})

	// An evicted entity takes its in-flight commands and connections
	// with it.
	svc.discovery.OnEvict(func(id wire.EntityID) {
		svc.commands.FailEntity(id)
		svc.connections.FailEntity(id)
	})

	d := transport.NewDispatcher()
	d.HandleADP(svc.discovery.OnFrame)
	d.HandleAECP(svc.commands.OnFrame)
	d.HandleACMP(svc.connections.OnFrame)
	svc.dispatcher = d

	return svc, nil
}

// State returns the current service state.
func (s *ControllerService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start launches the worker goroutine.
func (s *ControllerService) Start(ctx context.Context) error {
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

// Stop shuts the worker down and waits for it to exit.
func (s *ControllerService) Stop() error {
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
	return nil
}

// run is the single worker loop. All engine state mutation funnels
// through it: inbound frames, liveness expiry and retry sweeps.
func (s *ControllerService) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(sweepInterval(s.cfg.SweepInterval))
	defer ticker.Stop()

	for {
		select {
		case f := <-s.frames:
			// Malformed and unknown frames are counted by the
			// dispatcher and dropped.
			_ = s.dispatcher.Dispatch(f)
		case <-ticker.C:
			now := s.cfg.Clock.Now()
			s.discovery.Sweep(now)
			s.commands.Sweep(now)
			s.connections.Sweep(now)
		case <-ctx.Done():
			return
		}
	}
}

// HandleFrame hands one received frame to the worker. It never blocks:
// when the queue is full the frame is dropped and counted, backpressure
// a receiver thread cannot afford.
func (s *ControllerService) HandleFrame(f transport.Frame) {
	select {
	case s.frames <- f:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// DroppedFrames returns the number of frames dropped on queue overflow.
func (s *ControllerService) DroppedFrames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// AdvertiseLocalEntity starts advertising a controller-owned entity.
func (s *ControllerService) AdvertiseLocalEntity(e *model.LocalEntity, gen compat.Generation) error {
	return s.discovery.Advertise(e, gen)
}

// DepartLocalEntity sends ENTITY_DEPARTING and stops advertising.
func (s *ControllerService) DepartLocalEntity(id wire.EntityID) error {
	return s.discovery.Depart(id)
}

// Discover multicasts ENTITY_DISCOVER. A zero target asks everyone.
func (s *ControllerService) Discover(target wire.EntityID) error {
	return s.discovery.Discover(target)
}

// ListDiscoveredEntities returns a snapshot of the remote registry.
func (s *ControllerService) ListDiscoveredEntities() []model.Entity {
	return s.registry.List()
}

// DiscoveredEntity returns one remote entity by ID.
func (s *ControllerService) DiscoveredEntity(id wire.EntityID) (model.Entity, bool) {
	return s.registry.Get(id)
}

// OnEntityChange registers a discovery change callback. Callbacks run
// on the worker and must not block.
func (s *ControllerService) OnEntityChange(fn func(adp.Notification)) {
	s.discovery.Subscribe(fn)
}

// OnConnectionChange registers a connection change callback.
func (s *ControllerService) OnConnectionChange(fn func(acmp.Notification)) {
	s.connections.Subscribe(fn)
}

// ReadDescriptor reads one descriptor from a remote entity, served from
// the cache when a previous read already fetched it.
func (s *ControllerService) ReadDescriptor(ctx context.Context, target wire.EntityID, configIndex uint16, t wire.DescriptorType, index uint16) (*wire.ReadDescriptorResponse, error) {
	if desc, ok := s.registry.CachedDescriptor(target, t, index); ok {
		return &wire.ReadDescriptorResponse{
			ConfigurationIndex: configIndex,
			Descriptor:         desc.Image(),
		}, nil
	}
	resp, err := s.commands.ReadDescriptor(ctx, target, configIndex, t, index)
	if err != nil {
		return nil, err
	}
	s.registry.CacheDescriptor(target, descriptorFromImage(t, index, resp.Descriptor))
	return resp, nil
}

// AcquireEntity acquires exclusive control of a remote entity.
func (s *ControllerService) AcquireEntity(ctx context.Context, target wire.EntityID, persistent bool) error {
	return s.commands.AcquireEntity(ctx, target, persistent)
}

// ReleaseEntity releases a previously acquired entity.
func (s *ControllerService) ReleaseEntity(ctx context.Context, target wire.EntityID) error {
	return s.commands.ReleaseEntity(ctx, target)
}

// LockEntity takes the short-term atomic-operation lock.
func (s *ControllerService) LockEntity(ctx context.Context, target wire.EntityID) error {
	return s.commands.LockEntity(ctx, target)
}

// UnlockEntity releases the lock.
func (s *ControllerService) UnlockEntity(ctx context.Context, target wire.EntityID) error {
	return s.commands.UnlockEntity(ctx, target)
}

// GetControl reads a CONTROL descriptor's current value.
func (s *ControllerService) GetControl(ctx context.Context, target wire.EntityID, index uint16) ([]byte, error) {
	return s.commands.GetControl(ctx, target, index)
}

// SetControl writes a CONTROL descriptor's value.
func (s *ControllerService) SetControl(ctx context.Context, target wire.EntityID, index uint16, values []byte) error {
	return s.commands.SetControl(ctx, target, index, values)
}

// StartStreaming asks a remote stream descriptor to start.
func (s *ControllerService) StartStreaming(ctx context.Context, target wire.EntityID, t wire.DescriptorType, index uint16) error {
	return s.commands.StartStreaming(ctx, target, t, index)
}

// StopStreaming asks a remote stream descriptor to stop.
func (s *ControllerService) StopStreaming(ctx context.Context, target wire.EntityID, t wire.DescriptorType, index uint16) error {
	return s.commands.StopStreaming(ctx, target, t, index)
}

// GetConfiguration reads the remote entity's active configuration.
func (s *ControllerService) GetConfiguration(ctx context.Context, target wire.EntityID) (uint16, error) {
	return s.commands.GetConfiguration(ctx, target)
}

// SetConfiguration switches the remote entity's active configuration.
func (s *ControllerService) SetConfiguration(ctx context.Context, target wire.EntityID, index uint16) error {
	return s.commands.SetConfiguration(ctx, target, index)
}

// SendCommand issues an arbitrary AEM command, for extension commands
// the typed helpers do not cover.
func (s *ControllerService) SendCommand(ctx context.Context, target wire.EntityID, cmd wire.AEMCommandType, payload []byte) (aecp.Result, error) {
	return s.commands.SendCommand(ctx, target, cmd, payload)
}

// ConnectStream establishes a stream from a talker output to a listener
// input.
func (s *ControllerService) ConnectStream(ctx context.Context, talker wire.EntityID, talkerUnique uint16, listener wire.EntityID, listenerUnique uint16) (acmp.Connection, error) {
	return s.connections.Connect(ctx, talker, talkerUnique, listener, listenerUnique)
}

// DisconnectStream tears a stream connection down.
func (s *ControllerService) DisconnectStream(ctx context.Context, listener wire.EntityID, listenerUnique uint16) error {
	return s.connections.Disconnect(ctx, listener, listenerUnique)
}

// GetConnectionState returns the local connection table row for a
// listener stream.
func (s *ControllerService) GetConnectionState(listener wire.EntityID, listenerUnique uint16) (acmp.Connection, bool) {
	return s.connections.State(listener, listenerUnique)
}

// Connections returns a snapshot of the local connection table.
func (s *ControllerService) Connections() []acmp.Connection {
	return s.connections.Connections()
}

// QueryRxState asks a listener for its actual binding state.
func (s *ControllerService) QueryRxState(ctx context.Context, listener wire.EntityID, listenerUnique uint16) (*wire.ACMPDU, error) {
	return s.connections.QueryRxState(ctx, listener, listenerUnique)
}

// QueryTxState asks a talker for its actual stream state.
func (s *ControllerService) QueryTxState(ctx context.Context, talker wire.EntityID, talkerUnique uint16) (*wire.ACMPDU, error) {
	return s.connections.QueryTxState(ctx, talker, talkerUnique)
}

// descriptorFromImage builds a cacheable descriptor from a raw image.
func descriptorFromImage(t wire.DescriptorType, index uint16, image []byte) *model.Descriptor {
	return &model.Descriptor{Type: t, Index: index, Raw: image}
}

package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avb-protocol/avdecc-go/pkg/acmp"
	"github.com/avb-protocol/avdecc-go/pkg/adp"
	"github.com/avb-protocol/avdecc-go/pkg/aecp"
	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/persistence"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

const (
	testControllerID wire.EntityID = 0x0102030405060708
	testDeviceID     wire.EntityID = 0x1112131415161718
)

var (
	controllerMAC = wire.MacAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	deviceMAC     = wire.MacAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires a controller service and an entity service to the two
// ends of an in-memory segment.
type harness struct {
	clock  *fakeClock
	pipe   *transport.Pipe
	ctrl   *ControllerService
	entity *EntityService
	device *model.LocalEntity

	events     chan adp.Notification
	connEvents chan acmp.Notification
}

func newHarness(t *testing.T, store *persistence.StateStore) *harness {
	t.Helper()

	clock := newFakeClock()
	pipe := transport.NewPipe()
	t.Cleanup(pipe.Close)

	ctrlEP, err := pipe.Attach(controllerMAC)
	require.NoError(t, err)
	devEP, err := pipe.Attach(deviceMAC)
	require.NoError(t, err)

	ctrl, err := NewControllerService(ControllerConfig{
		ControllerID:  testControllerID,
		Sender:        ctrlEP,
		Clock:         clock,
		LinkID:        ctrlEP.LinkID(),
		SweepInterval: tick,
	})
	require.NoError(t, err)
	ctrlEP.SetReceiver(ctrl.HandleFrame)

	entity, err := NewEntityService(EntityConfig{
		Sender:        devEP,
		Clock:         clock,
		Store:         store,
		LinkID:        devEP.LinkID(),
		SweepInterval: tick,
	})
	require.NoError(t, err)
	devEP.SetReceiver(entity.HandleFrame)

	h := &harness{
		clock:      clock,
		pipe:       pipe,
		ctrl:       ctrl,
		entity:     entity,
		device:     newDevice(t),
		events:     make(chan adp.Notification, 32),
		connEvents: make(chan acmp.Notification, 32),
	}
	ctrl.OnEntityChange(func(n adp.Notification) { h.events <- n })
	ctrl.OnConnectionChange(func(n acmp.Notification) { h.connEvents <- n })

	require.NoError(t, ctrl.Start(context.Background()))
	require.NoError(t, entity.Start(context.Background()))
	t.Cleanup(func() {
		_ = ctrl.Stop()
		_ = entity.Stop()
	})
	return h
}

// newDevice builds a local entity with one stream in each direction and
// a control.
func newDevice(t *testing.T) *model.LocalEntity {
	t.Helper()
	e := model.NewLocalEntity(testDeviceID, 0x2122232425262728)
	cfg, ok := e.Configuration(0)
	require.True(t, ok)
	require.NoError(t, cfg.Add(&model.Descriptor{Type: wire.DescriptorEntity, Name: "device"}))
	require.NoError(t, cfg.Add(&model.Descriptor{
		Type:         wire.DescriptorStreamOutput,
		Name:         "out",
		StreamFormat: 0x00A0020240000800,
	}))
	require.NoError(t, cfg.Add(&model.Descriptor{
		Type:         wire.DescriptorStreamInput,
		Name:         "in",
		StreamFormat: 0x00A0020240000800,
	}))
	require.NoError(t, cfg.Add(&model.Descriptor{Type: wire.DescriptorControl, Name: "volume"}))
	return e
}

func (h *harness) serveDevice(t *testing.T) {
	t.Helper()
	require.NoError(t, h.entity.Serve(h.device, compat.Gen2021))
	h.waitEvent(t, adp.EntityAdded)
}

func (h *harness) waitEvent(t *testing.T, kind adp.NotificationKind) adp.Notification {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case n := <-h.events:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no %s notification", kind)
		}
	}
}

func (h *harness) waitConnEvent(t *testing.T, kind acmp.NotificationKind) acmp.Notification {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case n := <-h.connEvents:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("no connection notification of kind %d", kind)
		}
	}
}

func TestDiscoverEnumerateControl(t *testing.T) {
	h := newHarness(t, nil)
	h.serveDevice(t)
	ctx := context.Background()

	entities := h.ctrl.ListDiscoveredEntities()
	require.Len(t, entities, 1)
	assert.Equal(t, testDeviceID, entities[0].EntityID)
	assert.Equal(t, deviceMAC, entities[0].SourceMAC)

	resp, err := h.ctrl.ReadDescriptor(ctx, testDeviceID, 0, wire.DescriptorEntity, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(resp.Descriptor), 4)

	// A repeat read is served from the descriptor cache.
	again, err := h.ctrl.ReadDescriptor(ctx, testDeviceID, 0, wire.DescriptorEntity, 0)
	require.NoError(t, err)
	assert.Equal(t, resp.Descriptor, again.Descriptor)

	require.NoError(t, h.ctrl.AcquireEntity(ctx, testDeviceID, false))

	require.NoError(t, h.ctrl.SetControl(ctx, testDeviceID, 0, []byte{0x00, 0x7F}))
	values, err := h.ctrl.GetControl(ctx, testDeviceID, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x7F}, values)

	current, err := h.ctrl.GetConfiguration(ctx, testDeviceID)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), current)

	require.NoError(t, h.ctrl.ReleaseEntity(ctx, testDeviceID))
}

func TestSetControlReadvertisesBumpedIndex(t *testing.T) {
	h := newHarness(t, nil)
	h.serveDevice(t)
	ctx := context.Background()

	base := h.device.AvailableIndex()
	require.NoError(t, h.ctrl.SetControl(ctx, testDeviceID, 0, []byte{0x00, 0x7F}))
	assert.Equal(t, base+1, h.device.AvailableIndex())

	// The state change re-advertises immediately; the controller's
	// registry picks up the new index without waiting a full interval.
	h.waitEvent(t, adp.EntityUpdated)
	assert.Eventually(t, func() bool {
		entities := h.ctrl.ListDiscoveredEntities()
		return len(entities) == 1 && entities[0].AvailableIndex == base+1
	}, waitFor, tick)
}

func TestConnectAndDisconnectStream(t *testing.T) {
	h := newHarness(t, nil)
	h.serveDevice(t)
	ctx := context.Background()

	conn, err := h.ctrl.ConnectStream(ctx, testDeviceID, 0, testDeviceID, 0)
	require.NoError(t, err)
	assert.Equal(t, acmp.StateConnected, conn.State)
	assert.NotZero(t, conn.StreamID)

	n := h.waitConnEvent(t, acmp.ConnectionEstablished)
	assert.Equal(t, testDeviceID, n.Conn.TalkerEntityID)

	row, ok := h.ctrl.GetConnectionState(testDeviceID, 0)
	require.True(t, ok)
	assert.Equal(t, acmp.StateConnected, row.State)

	require.NoError(t, h.ctrl.DisconnectStream(ctx, testDeviceID, 0))
	h.waitConnEvent(t, acmp.ConnectionReleased)

	_, ok = h.ctrl.GetConnectionState(testDeviceID, 0)
	assert.False(t, ok)
}

func TestEntityDepartRemovesFromRegistry(t *testing.T) {
	h := newHarness(t, nil)
	h.serveDevice(t)

	require.NoError(t, h.entity.Depart(testDeviceID))
	h.waitEvent(t, adp.EntityDeparted)

	assert.Eventually(t, func() bool {
		return len(h.ctrl.ListDiscoveredEntities()) == 0
	}, waitFor, tick)
}

func TestEvictionFailsCommandsAndConnections(t *testing.T) {
	h := newHarness(t, nil)
	h.serveDevice(t)
	ctx := context.Background()

	conn, err := h.ctrl.ConnectStream(ctx, testDeviceID, 0, testDeviceID, 0)
	require.NoError(t, err)
	require.Equal(t, acmp.StateConnected, conn.State)
	h.waitConnEvent(t, acmp.ConnectionEstablished)

	// Silence the device: its worker stops responding and advertising,
	// but its frames queue still absorbs what the controller sends.
	require.NoError(t, h.entity.Stop())

	errc := make(chan error, 1)
	go func() {
		_, err := h.ctrl.GetControl(ctx, testDeviceID, 0)
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)

	// Past the 10 second validity window the next sweep evicts the
	// entity, and everything that depended on it fails with it.
	h.clock.Advance(11 * time.Second)

	h.waitEvent(t, adp.EntityExpired)

	select {
	case err := <-errc:
		require.ErrorIs(t, err, aecp.ErrEntityUnavailable)
	case <-time.After(waitFor):
		t.Fatal("pending command not resolved by eviction")
	}

	n := h.waitConnEvent(t, acmp.ConnectionFailed)
	assert.Equal(t, testDeviceID, n.Conn.ListenerEntityID)
	_, ok := h.ctrl.GetConnectionState(testDeviceID, 0)
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return len(h.ctrl.ListDiscoveredEntities()) == 0
	}, waitFor, tick)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	store := persistence.NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, store.Record(testDeviceID, persistence.EntityRecord{
		AvailableIndex:       41,
		CurrentConfiguration: 0,
	}))

	h := newHarness(t, store)
	h.serveDevice(t)

	// The restored index starts above the persisted high-water mark so
	// peers never see it move backwards.
	dev, ok := h.entity.ServedEntity(testDeviceID)
	require.True(t, ok)
	assert.Equal(t, uint32(42), dev.AvailableIndex())

	dev.BumpAvailableIndex()
	assert.Eventually(t, func() bool {
		rec, ok, err := store.Lookup(testDeviceID)
		return err == nil && ok && rec.AvailableIndex == 43
	}, waitFor, tick)
}

func TestControllerServiceLifecycle(t *testing.T) {
	pipe := transport.NewPipe()
	defer pipe.Close()
	ep, err := pipe.Attach(controllerMAC)
	require.NoError(t, err)

	_, err = NewControllerService(ControllerConfig{ControllerID: testControllerID})
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewControllerService(ControllerConfig{Sender: ep})
	require.ErrorIs(t, err, ErrInvalidConfig)

	svc, err := NewControllerService(ControllerConfig{
		ControllerID: testControllerID,
		Sender:       ep,
	})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, svc.State())

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, StateRunning, svc.State())
	require.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, svc.Stop())
	assert.Equal(t, StateStopped, svc.State())
	require.ErrorIs(t, svc.Stop(), ErrNotStarted)
}

func TestEntityServiceLifecycle(t *testing.T) {
	pipe := transport.NewPipe()
	defer pipe.Close()
	ep, err := pipe.Attach(deviceMAC)
	require.NoError(t, err)

	_, err = NewEntityService(EntityConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	svc, err := NewEntityService(EntityConfig{Sender: ep})
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	require.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, svc.Stop())
	require.ErrorIs(t, svc.Stop(), ErrNotStarted)
}

package adp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type captureSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *captureSender) SendFrame(dst wire.MacAddress, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.frames = append(s.frames, buf)
	return nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *captureSender) last(t *testing.T) *wire.ADPDU {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.frames)
	d, err := wire.UnmarshalADPDU(s.frames[len(s.frames)-1])
	require.NoError(t, err)
	return d
}

type testRig struct {
	engine *Engine
	clock  *fakeClock
	sender *captureSender
	reg    *model.Registry
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	sender := &captureSender{}
	reg := model.NewRegistry()
	engine := NewEngine(Config{
		Sender:   sender,
		Clock:    clock,
		Registry: reg,
		Tracker:  compat.NewTracker(),
		Jitter:   func(time.Duration) time.Duration { return 50 * time.Millisecond },
	})
	return &testRig{engine: engine, clock: clock, sender: sender, reg: reg}
}

func localEntity(id wire.EntityID) *model.LocalEntity {
	e := model.NewLocalEntity(id, 0x1122334455667788)
	e.ValidTime = 5 // 10 seconds, advertise every 2.5s
	return e
}

func remoteAvailable(t *testing.T, id wire.EntityID, availIdx uint32) transport.Frame {
	t.Helper()
	d := &wire.ADPDU{
		MessageType:    wire.ADPEntityAvailable,
		ValidTime:      2,
		EntityID:       id,
		AvailableIndex: availIdx,
	}
	data, err := d.Marshal()
	require.NoError(t, err)
	return transport.Frame{
		Source:      wire.MacAddress{0x02, 0, 0, 0, 0, 0x99},
		Destination: wire.AVDECCMulticast,
		Payload:     data,
	}
}

func TestAdvertisePeriodic(t *testing.T) {
	rig := newTestRig(t)
	le := localEntity(0xA1)

	require.NoError(t, rig.engine.Advertise(le, compat.Gen2021))
	assert.Equal(t, 1, rig.sender.count())

	d := rig.sender.last(t)
	assert.Equal(t, wire.ADPEntityAvailable, d.MessageType)
	assert.Equal(t, wire.EntityID(0xA1), d.EntityID)

	// Not due yet
	rig.clock.Advance(time.Second)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, 1, rig.sender.count())

	// valid_time 10s -> interval 2.5s
	rig.clock.Advance(2 * time.Second)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, 2, rig.sender.count())
}

func TestAdvertiseTwiceRejected(t *testing.T) {
	rig := newTestRig(t)
	le := localEntity(0xA1)
	require.NoError(t, rig.engine.Advertise(le, compat.Gen2021))
	assert.ErrorIs(t, rig.engine.Advertise(le, compat.Gen2021), ErrAlreadyAdvertised)
}

func TestDepartSendsDeparting(t *testing.T) {
	rig := newTestRig(t)
	le := localEntity(0xA1)
	require.NoError(t, rig.engine.Advertise(le, compat.Gen2021))

	require.NoError(t, rig.engine.Depart(0xA1))
	d := rig.sender.last(t)
	assert.Equal(t, wire.ADPEntityDeparting, d.MessageType)

	// Withdrawn: no further periodic advertisements
	n := rig.sender.count()
	rig.clock.Advance(10 * time.Second)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, n, rig.sender.count())

	assert.ErrorIs(t, rig.engine.Depart(0xA1), ErrNotAdvertised)
}

func TestReadvertiseSendsImmediately(t *testing.T) {
	rig := newTestRig(t)
	e := localEntity(0xA1)
	require.NoError(t, rig.engine.Advertise(e, compat.Gen2021))
	require.Equal(t, 1, rig.sender.count())

	e.BumpAvailableIndex()
	require.NoError(t, rig.engine.Readvertise(e.EntityID))
	require.Equal(t, 2, rig.sender.count())

	d := rig.sender.last(t)
	assert.Equal(t, wire.ADPEntityAvailable, d.MessageType)
	assert.Equal(t, uint32(1), d.AvailableIndex)

	assert.ErrorIs(t, rig.engine.Readvertise(0x99), ErrNotAdvertised)
}

func TestDiscoverTriggersJitteredReadvertise(t *testing.T) {
	rig := newTestRig(t)
	le := localEntity(0xA1)
	require.NoError(t, rig.engine.Advertise(le, compat.Gen2021))
	n := rig.sender.count()

	disc := &wire.ADPDU{MessageType: wire.ADPEntityDiscover, EntityID: wire.UniversalEntityID}
	data, err := disc.Marshal()
	require.NoError(t, err)
	rig.engine.OnFrame(transport.Frame{Payload: data})

	// Before the jitter deadline nothing is sent
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, n, rig.sender.count())

	rig.clock.Advance(60 * time.Millisecond)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, n+1, rig.sender.count())
	assert.Equal(t, wire.ADPEntityAvailable, rig.sender.last(t).MessageType)
}

func TestDiscoverTargetedOtherEntityIgnored(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Advertise(localEntity(0xA1), compat.Gen2021))
	n := rig.sender.count()

	disc := &wire.ADPDU{MessageType: wire.ADPEntityDiscover, EntityID: 0xB2}
	data, err := disc.Marshal()
	require.NoError(t, err)
	rig.engine.OnFrame(transport.Frame{Payload: data})

	rig.clock.Advance(200 * time.Millisecond)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, n, rig.sender.count())
}

func TestInboundAvailableUpdatesRegistry(t *testing.T) {
	rig := newTestRig(t)

	var notes []Notification
	rig.engine.Subscribe(func(n Notification) { notes = append(notes, n) })

	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 1))
	require.Len(t, notes, 1)
	assert.Equal(t, EntityAdded, notes[0].Kind)
	assert.Equal(t, wire.EntityID(0xB2), notes[0].Entity.EntityID)

	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 2))
	require.Len(t, notes, 2)
	assert.Equal(t, EntityUpdated, notes[1].Kind)

	// Same index refreshes liveness without a notification
	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 2))
	assert.Len(t, notes, 2)
}

func TestRestartDetectedAndCascaded(t *testing.T) {
	rig := newTestRig(t)

	var evicted []wire.EntityID
	rig.engine.OnEvict(func(id wire.EntityID) { evicted = append(evicted, id) })

	var notes []Notification
	rig.engine.Subscribe(func(n Notification) { notes = append(notes, n) })

	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 9))
	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 2))

	require.Len(t, notes, 2)
	assert.Equal(t, EntityRestarted, notes[1].Kind)
	assert.Equal(t, []wire.EntityID{0xB2}, evicted)

	// Still in the registry after restart
	_, ok := rig.reg.Get(0xB2)
	assert.True(t, ok)
}

func TestDepartingEvictsImmediately(t *testing.T) {
	rig := newTestRig(t)

	var evicted []wire.EntityID
	rig.engine.OnEvict(func(id wire.EntityID) { evicted = append(evicted, id) })

	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 1))
	require.Equal(t, 1, rig.reg.Len())

	dep := &wire.ADPDU{MessageType: wire.ADPEntityDeparting, EntityID: 0xB2, ValidTime: 2}
	data, err := dep.Marshal()
	require.NoError(t, err)
	rig.engine.OnFrame(transport.Frame{Payload: data})

	assert.Equal(t, 0, rig.reg.Len())
	assert.Equal(t, []wire.EntityID{0xB2}, evicted)
}

func TestLivenessExpiry(t *testing.T) {
	rig := newTestRig(t)

	var notes []Notification
	rig.engine.Subscribe(func(n Notification) { notes = append(notes, n) })
	var evicted []wire.EntityID
	rig.engine.OnEvict(func(id wire.EntityID) { evicted = append(evicted, id) })

	rig.engine.OnFrame(remoteAvailable(t, 0xB2, 1)) // valid_time 2 -> 4s deadline

	rig.clock.Advance(3 * time.Second)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, 1, rig.reg.Len())

	rig.clock.Advance(2 * time.Second)
	rig.engine.Sweep(rig.clock.Now())
	assert.Equal(t, 0, rig.reg.Len())
	require.Len(t, notes, 2)
	assert.Equal(t, EntityExpired, notes[1].Kind)
	assert.Equal(t, []wire.EntityID{0xB2}, evicted)
}

func TestOwnAdvertisementIgnored(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.engine.Advertise(localEntity(0xA1), compat.Gen2021))

	rig.engine.OnFrame(remoteAvailable(t, 0xA1, 1))
	assert.Equal(t, 0, rig.reg.Len())
}

func TestMalformedFrameIgnored(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.OnFrame(transport.Frame{Payload: []byte{0xFA, 0x00}})
	assert.Equal(t, 0, rig.reg.Len())
}

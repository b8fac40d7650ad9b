package aecp

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

const (
	ctrlA = wire.EntityID(0xA1)
	ctrlB = wire.EntityID(0xB2)
)

var ctrlMAC = wire.MacAddress{0x02, 0, 0, 0, 0, 0xC0}

type respRig struct {
	resp    *Responder
	sender  *chanSender
	tracker *compat.Tracker
	entity  *model.LocalEntity

	// mutated collects the entity IDs the mutation hook reported.
	mutated []wire.EntityID
}

func newRespRig(t *testing.T) *respRig {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	sender := newChanSender()
	tracker := compat.NewTracker()

	e := model.NewLocalEntity(testTargetID, 0x1122334455667788)
	cfg0, ok := e.Configuration(0)
	require.True(t, ok)
	require.NoError(t, cfg0.Add(&model.Descriptor{
		Type: wire.DescriptorEntity,
		Name: "device",
		Raw:  entityImage(),
	}))
	require.NoError(t, cfg0.Add(&model.Descriptor{
		Type:  wire.DescriptorControl,
		Index: 1,
		Name:  "gain",
	}))
	require.NoError(t, cfg0.Add(&model.Descriptor{
		Type: wire.DescriptorStreamOutput,
		Name: "out",
	}))
	require.NoError(t, cfg0.Add(&model.Descriptor{
		Type: wire.DescriptorClockDomain,
		Name: "domain",
	}))
	e.AddConfiguration(model.NewConfiguration(1, "alt"))

	rig := &respRig{sender: sender, tracker: tracker, entity: e}
	rig.resp = NewResponder(ResponderConfig{
		Sender:   sender,
		Clock:    clock,
		Tracker:  tracker,
		OnMutate: func(id wire.EntityID) { rig.mutated = append(rig.mutated, id) },
	})
	rig.resp.Serve(e)
	return rig
}

func entityImage() []byte {
	img := make([]byte, 68)
	binary.BigEndian.PutUint16(img[0:2], uint16(wire.DescriptorEntity))
	copy(img[4:], "device")
	return img
}

// command feeds one AEM command through the responder and returns the
// unicast response.
func (r *respRig) command(t *testing.T, controller wire.EntityID, cmd wire.AEMCommandType, payload []byte) *wire.AECPDU {
	t.Helper()
	d := &wire.AECPDU{
		MessageType:        wire.AECPAEMCommand,
		TargetEntityID:     testTargetID,
		ControllerEntityID: controller,
		SequenceID:         42,
		CommandType:        cmd,
		Payload:            payload,
	}
	data, err := d.Marshal()
	require.NoError(t, err)
	r.resp.OnFrame(transport.Frame{Source: ctrlMAC, Payload: data})
	return r.sender.next(t)
}

func (r *respRig) noResponse(t *testing.T) {
	t.Helper()
	select {
	case <-r.sender.frames:
		t.Fatal("unexpected response frame")
	default:
	}
}

func TestResponderEchoesHeader(t *testing.T) {
	rig := newRespRig(t)
	resp := rig.command(t, ctrlA, wire.AEMEntityAvailable, nil)

	assert.Equal(t, wire.AECPAEMResponse, resp.MessageType)
	assert.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.Equal(t, testTargetID, resp.TargetEntityID)
	assert.Equal(t, ctrlA, resp.ControllerEntityID)
	assert.Equal(t, uint16(42), resp.SequenceID)
	assert.Equal(t, wire.AEMEntityAvailable, resp.CommandType)
}

func TestResponderIgnoresOtherTargets(t *testing.T) {
	rig := newRespRig(t)
	d := &wire.AECPDU{
		MessageType:        wire.AECPAEMCommand,
		TargetEntityID:     0xDEAD,
		ControllerEntityID: ctrlA,
		CommandType:        wire.AEMEntityAvailable,
	}
	data, err := d.Marshal()
	require.NoError(t, err)
	rig.resp.OnFrame(transport.Frame{Source: ctrlMAC, Payload: data})
	rig.noResponse(t)
}

func TestResponderIgnoresResponses(t *testing.T) {
	rig := newRespRig(t)
	d := &wire.AECPDU{
		MessageType:        wire.AECPAEMResponse,
		TargetEntityID:     testTargetID,
		ControllerEntityID: ctrlA,
		CommandType:        wire.AEMEntityAvailable,
	}
	data, err := d.Marshal()
	require.NoError(t, err)
	rig.resp.OnFrame(transport.Frame{Source: ctrlMAC, Payload: data})
	rig.noResponse(t)
}

func TestReadDescriptor(t *testing.T) {
	rig := newRespRig(t)
	cmd := &wire.ReadDescriptorCommand{DescriptorType: wire.DescriptorEntity}
	resp := rig.command(t, ctrlA, wire.AEMReadDescriptor, cmd.Marshal())

	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	rd, err := wire.UnmarshalReadDescriptorResponse(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, entityImage(), rd.Descriptor)
}

func TestReadDescriptorUnknown(t *testing.T) {
	rig := newRespRig(t)
	cmd := &wire.ReadDescriptorCommand{DescriptorType: wire.DescriptorEntity, DescriptorIndex: 7}
	resp := rig.command(t, ctrlA, wire.AEMReadDescriptor, cmd.Marshal())
	assert.Equal(t, wire.AEMStatusNoSuchDescriptor, resp.Status)
}

func TestReadDescriptorLegacyNumbering(t *testing.T) {
	rig := newRespRig(t)
	// A zero-capability advertisement classifies the requester as 2013.
	rig.tracker.Observe(&wire.ADPDU{EntityID: ctrlA})

	cmd := &wire.ReadDescriptorCommand{DescriptorType: wire.DescriptorClockDomainOld}
	resp := rig.command(t, ctrlA, wire.AEMReadDescriptor, cmd.Marshal())

	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	rd, err := wire.UnmarshalReadDescriptorResponse(resp.Payload)
	require.NoError(t, err)
	got := binary.BigEndian.Uint16(rd.Descriptor[0:2])
	assert.Equal(t, uint16(wire.DescriptorClockDomainOld), got)

	// An untracked requester gets the current numbering.
	cmd = &wire.ReadDescriptorCommand{DescriptorType: wire.DescriptorClockDomain}
	resp = rig.command(t, ctrlB, wire.AEMReadDescriptor, cmd.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	rd, err = wire.UnmarshalReadDescriptorResponse(resp.Payload)
	require.NoError(t, err)
	got = binary.BigEndian.Uint16(rd.Descriptor[0:2])
	assert.Equal(t, uint16(wire.DescriptorClockDomain), got)
}

func TestAcquireConflict(t *testing.T) {
	rig := newRespRig(t)

	resp := rig.command(t, ctrlA, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	p, err := wire.UnmarshalAcquireEntityPayload(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, ctrlA, p.OwnerID)

	// Second controller is refused and told who holds the entity.
	resp = rig.command(t, ctrlB, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusEntityAcquired, resp.Status)
	p, err = wire.UnmarshalAcquireEntityPayload(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, ctrlA, p.OwnerID)

	// Release, then the second controller succeeds.
	release := &wire.AcquireEntityPayload{Flags: wire.AcquireFlagRelease}
	resp = rig.command(t, ctrlA, wire.AEMAcquireEntity, release.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	resp = rig.command(t, ctrlB, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	assert.Equal(t, wire.AEMStatusSuccess, resp.Status)
}

func TestLockConflict(t *testing.T) {
	rig := newRespRig(t)

	resp := rig.command(t, ctrlA, wire.AEMLockEntity, (&wire.LockEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	resp = rig.command(t, ctrlB, wire.AEMLockEntity, (&wire.LockEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusEntityLocked, resp.Status)
	p, err := wire.UnmarshalLockEntityPayload(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, ctrlA, p.LockedID)

	unlock := &wire.LockEntityPayload{Flags: wire.LockFlagUnlock}
	resp = rig.command(t, ctrlA, wire.AEMLockEntity, unlock.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	resp = rig.command(t, ctrlB, wire.AEMLockEntity, (&wire.LockEntityPayload{}).Marshal())
	assert.Equal(t, wire.AEMStatusSuccess, resp.Status)
}

func TestControlRoundTrip(t *testing.T) {
	rig := newRespRig(t)

	set := &wire.ControlPayload{
		DescriptorType:  wire.DescriptorControl,
		DescriptorIndex: 1,
		Values:          []byte{0x7F},
	}
	resp := rig.command(t, ctrlA, wire.AEMSetControl, set.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	get := &wire.ControlPayload{DescriptorType: wire.DescriptorControl, DescriptorIndex: 1}
	resp = rig.command(t, ctrlB, wire.AEMGetControl, get.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	p, err := wire.UnmarshalControlPayload(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7F}, p.Values)
}

func TestSetControlGatedByAcquisition(t *testing.T) {
	rig := newRespRig(t)

	resp := rig.command(t, ctrlA, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	set := &wire.ControlPayload{
		DescriptorType:  wire.DescriptorControl,
		DescriptorIndex: 1,
		Values:          []byte{0x01},
	}
	resp = rig.command(t, ctrlB, wire.AEMSetControl, set.Marshal())
	assert.Equal(t, wire.AEMStatusEntityAcquired, resp.Status)

	resp = rig.command(t, ctrlA, wire.AEMSetControl, set.Marshal())
	assert.Equal(t, wire.AEMStatusSuccess, resp.Status)
}

func TestMutationFiresHookAndBumpsIndex(t *testing.T) {
	rig := newRespRig(t)

	set := &wire.ControlPayload{
		DescriptorType:  wire.DescriptorControl,
		DescriptorIndex: 1,
		Values:          []byte{0x7F},
	}
	resp := rig.command(t, ctrlA, wire.AEMSetControl, set.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.Equal(t, []wire.EntityID{testTargetID}, rig.mutated)
	assert.Equal(t, uint32(1), rig.entity.AvailableIndex())

	// reads leave the hook alone
	get := &wire.ControlPayload{DescriptorType: wire.DescriptorControl, DescriptorIndex: 1}
	resp = rig.command(t, ctrlA, wire.AEMGetControl, get.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.Len(t, rig.mutated, 1)

	// so does a refused mutation
	resp = rig.command(t, ctrlA, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	resp = rig.command(t, ctrlB, wire.AEMSetControl, set.Marshal())
	require.Equal(t, wire.AEMStatusEntityAcquired, resp.Status)
	assert.Len(t, rig.mutated, 1)
	assert.Equal(t, uint32(1), rig.entity.AvailableIndex())
}

func TestStreamingCommands(t *testing.T) {
	rig := newRespRig(t)

	start := &wire.StreamingPayload{DescriptorType: wire.DescriptorStreamOutput}
	resp := rig.command(t, ctrlA, wire.AEMStartStreaming, start.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.True(t, rig.entity.Streaming(wire.DescriptorStreamOutput, 0))

	resp = rig.command(t, ctrlA, wire.AEMStopStreaming, start.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.False(t, rig.entity.Streaming(wire.DescriptorStreamOutput, 0))

	// Non-stream descriptor types are rejected.
	bad := &wire.StreamingPayload{DescriptorType: wire.DescriptorEntity}
	resp = rig.command(t, ctrlA, wire.AEMStartStreaming, bad.Marshal())
	assert.Equal(t, wire.AEMStatusNoSuchDescriptor, resp.Status)
}

func TestConfigurationCommands(t *testing.T) {
	rig := newRespRig(t)

	resp := rig.command(t, ctrlA, wire.AEMGetConfiguration, nil)
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	p, err := wire.UnmarshalConfigurationPayload(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), p.ConfigurationIndex)

	set := &wire.ConfigurationPayload{ConfigurationIndex: 1}
	resp = rig.command(t, ctrlA, wire.AEMSetConfiguration, set.Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)
	assert.Equal(t, uint16(1), rig.entity.CurrentConfiguration())

	set = &wire.ConfigurationPayload{ConfigurationIndex: 9}
	resp = rig.command(t, ctrlA, wire.AEMSetConfiguration, set.Marshal())
	assert.Equal(t, wire.AEMStatusNoSuchDescriptor, resp.Status)
}

func TestUnknownCommandNotImplemented(t *testing.T) {
	rig := newRespRig(t)
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	resp := rig.command(t, ctrlA, wire.AEMCommandType(0x0123), payload)
	assert.Equal(t, wire.AEMStatusNotImplemented, resp.Status)
	assert.Equal(t, payload, resp.Payload)
}

func TestDropControllerReleasesHolds(t *testing.T) {
	rig := newRespRig(t)

	resp := rig.command(t, ctrlA, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{Flags: wire.AcquireFlagPersistent}).Marshal())
	require.Equal(t, wire.AEMStatusSuccess, resp.Status)

	rig.resp.DropController(ctrlA)

	resp = rig.command(t, ctrlB, wire.AEMAcquireEntity, (&wire.AcquireEntityPayload{}).Marshal())
	assert.Equal(t, wire.AEMStatusSuccess, resp.Status)
}

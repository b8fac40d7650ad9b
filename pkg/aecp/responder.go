package aecp

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ResponderConfig carries the Responder's dependencies.
type ResponderConfig struct {
	Sender transport.FrameSender
	Clock  transport.Clock

	// Tracker supplies peer generations for descriptor-type translation.
	// Controllers that never advertise default to the canonical layout.
	Tracker *compat.Tracker

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
	LinkID string

	// OnMutate runs after a successful command changed entity state, so
	// discovery can re-advertise the bumped available_index. Nil disables
	// the hook.
	OnMutate func(id wire.EntityID)
}

// Responder serves AEM commands addressed to local entities.
type Responder struct {
	cfg ResponderConfig

	mu       sync.RWMutex
	entities map[wire.EntityID]*model.LocalEntity
}

// NewResponder creates a command responder.
func NewResponder(cfg ResponderConfig) *Responder {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	return &Responder{
		cfg:      cfg,
		entities: make(map[wire.EntityID]*model.LocalEntity),
	}
}

// Serve registers a local entity for command handling.
func (r *Responder) Serve(entity *model.LocalEntity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[entity.EntityID] = entity
}

// Remove withdraws a local entity.
func (r *Responder) Remove(id wire.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
}

// DropController releases acquisitions and locks held by a departed
// controller across all served entities.
func (r *Responder) DropController(controller wire.EntityID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entities {
		e.DropController(controller)
	}
}

// OnFrame handles one inbound AECP frame. Only AEM commands addressed
// to a served entity are answered.
func (r *Responder) OnFrame(f transport.Frame) {
	d, err := wire.UnmarshalAECPDU(f.Payload)
	if err != nil {
		r.logError("decode AECPDU", err)
		return
	}
	if d.MessageType != wire.AECPAEMCommand {
		return
	}

	r.mu.RLock()
	entity, ok := r.entities[d.TargetEntityID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	started := r.cfg.Clock.Now()
	resp := r.handle(entity, d)
	resp.MessageType = wire.AECPAEMResponse
	resp.TargetEntityID = d.TargetEntityID
	resp.ControllerEntityID = d.ControllerEntityID
	resp.SequenceID = d.SequenceID
	resp.CommandType = d.CommandType

	data, err := resp.Marshal()
	if err != nil {
		r.logError("encode response", err)
		return
	}
	if err := r.cfg.Sender.SendFrame(f.Source, data); err != nil {
		r.logError("send response", err)
		return
	}
	r.logResponse(resp, r.cfg.Clock.Now().Sub(started))

	if r.cfg.OnMutate != nil && resp.Status == wire.AEMStatusSuccess && mutatesEntityState(d.CommandType) {
		r.cfg.OnMutate(d.TargetEntityID)
	}
}

// mutatesEntityState reports whether a successful command changed state
// that peers may have cached.
func mutatesEntityState(cmd wire.AEMCommandType) bool {
	switch cmd {
	case wire.AEMSetControl, wire.AEMStartStreaming, wire.AEMStopStreaming, wire.AEMSetConfiguration:
		return true
	default:
		return false
	}
}

// handle dispatches one command against the entity model and returns the
// response status and payload. The default for unknown commands is
// NOT_IMPLEMENTED with the command payload echoed back.
func (r *Responder) handle(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	switch d.CommandType {
	case wire.AEMReadDescriptor:
		return r.readDescriptor(entity, d)
	case wire.AEMAcquireEntity:
		return r.acquire(entity, d)
	case wire.AEMLockEntity:
		return r.lock(entity, d)
	case wire.AEMGetControl:
		return r.getControl(entity, d)
	case wire.AEMSetControl:
		return r.setControl(entity, d)
	case wire.AEMStartStreaming:
		return r.streaming(entity, d, true)
	case wire.AEMStopStreaming:
		return r.streaming(entity, d, false)
	case wire.AEMGetConfiguration:
		p := &wire.ConfigurationPayload{ConfigurationIndex: entity.CurrentConfiguration()}
		return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: p.Marshal()}
	case wire.AEMSetConfiguration:
		return r.setConfiguration(entity, d)
	case wire.AEMEntityAvailable:
		return &wire.AECPDU{Status: wire.AEMStatusSuccess}
	default:
		return &wire.AECPDU{Status: wire.AEMStatusNotImplemented, Payload: d.Payload}
	}
}

func (r *Responder) peerCodec(controller wire.EntityID) compat.Codec {
	if r.cfg.Tracker != nil {
		if gen, ok := r.cfg.Tracker.Get(controller); ok {
			return compat.ForGeneration(gen)
		}
	}
	return compat.ForGeneration(compat.Gen2021)
}

func (r *Responder) readDescriptor(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalReadDescriptorCommand(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}

	codec := r.peerCodec(d.ControllerEntityID)
	canonical, err := codec.DescriptorTypeFromWire(uint16(cmd.DescriptorType))
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusNoSuchDescriptor}
	}

	desc, err := entity.Descriptor(cmd.ConfigurationIndex, canonical, cmd.DescriptorIndex)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusNoSuchDescriptor}
	}

	image := desc.Image()
	// The image's leading descriptor_type goes out in the peer's numbering.
	if len(image) >= 2 {
		wireType, terr := codec.DescriptorTypeToWire(canonical)
		if terr != nil {
			return &wire.AECPDU{Status: wire.AEMStatusNoSuchDescriptor}
		}
		binary.BigEndian.PutUint16(image[0:2], wireType)
	}

	resp := &wire.ReadDescriptorResponse{
		ConfigurationIndex: cmd.ConfigurationIndex,
		Descriptor:         image,
	}
	return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: resp.Marshal()}
}

func (r *Responder) acquire(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalAcquireEntityPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}

	controller := d.ControllerEntityID
	if cmd.Flags&wire.AcquireFlagRelease != 0 {
		if err := entity.ReleaseAcquire(controller); err != nil {
			holder, _ := entity.AcquiredBy()
			return acquireConflict(holder, cmd)
		}
		cmd.OwnerID = 0
		return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: cmd.Marshal()}
	}

	persistent := cmd.Flags&wire.AcquireFlagPersistent != 0
	owner, err := entity.Acquire(controller, persistent)
	if err != nil {
		return acquireConflict(owner, cmd)
	}
	cmd.OwnerID = owner
	return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: cmd.Marshal()}
}

func acquireConflict(holder wire.EntityID, cmd *wire.AcquireEntityPayload) *wire.AECPDU {
	cmd.OwnerID = holder
	return &wire.AECPDU{Status: wire.AEMStatusEntityAcquired, Payload: cmd.Marshal()}
}

func (r *Responder) lock(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalLockEntityPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}

	controller := d.ControllerEntityID
	if cmd.Flags&wire.LockFlagUnlock != 0 {
		if err := entity.Unlock(controller); err != nil {
			cmd.LockedID = entity.LockedBy()
			return &wire.AECPDU{Status: wire.AEMStatusEntityLocked, Payload: cmd.Marshal()}
		}
		cmd.LockedID = 0
		return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: cmd.Marshal()}
	}

	holder, err := entity.Lock(controller)
	if err != nil {
		cmd.LockedID = holder
		return &wire.AECPDU{Status: wire.AEMStatusEntityLocked, Payload: cmd.Marshal()}
	}
	cmd.LockedID = holder
	return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: cmd.Marshal()}
}

func (r *Responder) getControl(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalControlPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}
	values, err := entity.ControlValue(cmd.DescriptorIndex)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusNoSuchDescriptor}
	}
	resp := &wire.ControlPayload{
		DescriptorType:  wire.DescriptorControl,
		DescriptorIndex: cmd.DescriptorIndex,
		Values:          values,
	}
	return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: resp.Marshal()}
}

func (r *Responder) setControl(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalControlPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}
	err = entity.SetControlValue(d.ControllerEntityID, cmd.DescriptorIndex, cmd.Values)
	return &wire.AECPDU{Status: mutationStatus(err), Payload: d.Payload}
}

func (r *Responder) streaming(entity *model.LocalEntity, d *wire.AECPDU, on bool) *wire.AECPDU {
	cmd, err := wire.UnmarshalStreamingPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}
	err = entity.SetStreaming(d.ControllerEntityID, cmd.DescriptorType, cmd.DescriptorIndex, on)
	return &wire.AECPDU{Status: mutationStatus(err), Payload: d.Payload}
}

func (r *Responder) setConfiguration(entity *model.LocalEntity, d *wire.AECPDU) *wire.AECPDU {
	cmd, err := wire.UnmarshalConfigurationPayload(d.Payload)
	if err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusBadArguments}
	}
	if err := entity.SetConfiguration(cmd.ConfigurationIndex); err != nil {
		return &wire.AECPDU{Status: wire.AEMStatusNoSuchDescriptor, Payload: d.Payload}
	}
	return &wire.AECPDU{Status: wire.AEMStatusSuccess, Payload: d.Payload}
}

// mutationStatus maps model mutation errors onto AEM statuses.
func mutationStatus(err error) wire.AEMStatus {
	switch {
	case err == nil:
		return wire.AEMStatusSuccess
	case errors.Is(err, model.ErrAcquiredByOther):
		return wire.AEMStatusEntityAcquired
	case errors.Is(err, model.ErrLockedByOther):
		return wire.AEMStatusEntityLocked
	case errors.Is(err, model.ErrNoSuchDescriptor):
		return wire.AEMStatusNoSuchDescriptor
	default:
		return wire.AEMStatusBadArguments
	}
}

func (r *Responder) logResponse(d *wire.AECPDU, took time.Duration) {
	cmd := uint16(d.CommandType)
	status := uint8(d.Status)
	r.cfg.Logger.Log(log.Event{
		Timestamp:      r.cfg.Clock.Now(),
		LinkID:         r.cfg.LinkID,
		Direction:      log.DirectionOut,
		Layer:          log.LayerWire,
		Category:       log.CategoryMessage,
		LocalRole:      log.RoleEntity,
		LocalEntityID:  uint64(d.TargetEntityID),
		RemoteEntityID: uint64(d.ControllerEntityID),
		PDU: &log.PDUEvent{
			Subtype:            wire.SubtypeAECP,
			MessageType:        uint8(d.MessageType),
			SequenceID:         d.SequenceID,
			TargetEntityID:     uint64(d.TargetEntityID),
			ControllerEntityID: uint64(d.ControllerEntityID),
			CommandType:        &cmd,
			Status:             &status,
			ProcessingTime:     &took,
		},
	})
}

func (r *Responder) logError(context string, err error) {
	r.cfg.Logger.Log(log.Event{
		Timestamp: r.cfg.Clock.Now(),
		LinkID:    r.cfg.LinkID,
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		LocalRole: log.RoleEntity,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

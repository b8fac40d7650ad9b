package acmp

import (
	"sync"

	"github.com/avb-protocol/avdecc-go/pkg/log"
	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/transport"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ResponderConfig carries the Responder's dependencies.
type ResponderConfig struct {
	Sender transport.FrameSender
	Clock  transport.Clock

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
	LinkID string
}

type streamKey struct {
	entity wire.EntityID
	unique uint16
}

// sourceState is a talker output's connection bookkeeping.
type sourceState struct {
	streamID  wire.StreamID
	destMAC   wire.MacAddress
	listeners map[ConnKey]struct{}
}

// sinkState is a listener input's current binding.
type sinkState struct {
	talker       wire.EntityID
	talkerUnique uint16
	streamID     wire.StreamID
	destMAC      wire.MacAddress
	vlanID       uint16
	flags        uint16
}

// Responder answers connection management commands for locally served
// entities: CONNECT/DISCONNECT on both legs plus the state queries.
type Responder struct {
	cfg ResponderConfig

	mu       sync.Mutex
	entities map[wire.EntityID]*model.LocalEntity
	sources  map[streamKey]*sourceState
	sinks    map[streamKey]*sinkState
}

// NewResponder creates a connection responder.
func NewResponder(cfg ResponderConfig) *Responder {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	return &Responder{
		cfg:      cfg,
		entities: make(map[wire.EntityID]*model.LocalEntity),
		sources:  make(map[streamKey]*sourceState),
		sinks:    make(map[streamKey]*sinkState),
	}
}

// Serve registers a local entity for connection handling.
func (r *Responder) Serve(entity *model.LocalEntity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[entity.EntityID] = entity
}

// Remove withdraws a local entity and drops its stream state.
func (r *Responder) Remove(id wire.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	for k := range r.sources {
		if k.entity == id {
			delete(r.sources, k)
		}
	}
	for k := range r.sinks {
		if k.entity == id {
			delete(r.sinks, k)
		}
	}
}

// OnFrame handles one inbound ACMP frame. TX commands are answered when
// the talker is served locally, RX commands when the listener is; all
// other frames are ignored so other endpoints on the wire can answer.
func (r *Responder) OnFrame(f transport.Frame) {
	d, err := wire.UnmarshalACMPDU(f.Payload)
	if err != nil {
		r.logError("decode ACMPDU", err)
		return
	}
	if d.MessageType.IsResponse() {
		return
	}

	r.mu.Lock()
	var resp *wire.ACMPDU
	switch d.MessageType {
	case wire.ACMPConnectTxCommand, wire.ACMPDisconnectTxCommand, wire.ACMPGetTxStateCommand:
		entity, served := r.entities[d.TalkerEntityID]
		if !served {
			r.mu.Unlock()
			return
		}
		resp = r.handleTalker(entity, d)
	case wire.ACMPConnectRxCommand, wire.ACMPDisconnectRxCommand, wire.ACMPGetRxStateCommand:
		entity, served := r.entities[d.ListenerEntityID]
		if !served {
			r.mu.Unlock()
			return
		}
		resp = r.handleListener(entity, d)
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	data, err := resp.Marshal()
	if err != nil {
		r.logError("encode response", err)
		return
	}
	if err := r.cfg.Sender.SendFrame(f.Source, data); err != nil {
		r.logError("send response", err)
		return
	}
	r.logPDU(resp)
}

// Connected reports whether a local listener input is currently bound.
func (r *Responder) Connected(listener wire.EntityID, listenerUnique uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sinks[streamKey{entity: listener, unique: listenerUnique}]
	return ok
}

// handleTalker serves the TX leg commands. Callers hold r.mu.
func (r *Responder) handleTalker(entity *model.LocalEntity, d *wire.ACMPDU) *wire.ACMPDU {
	desc, err := entity.ActiveDescriptor(wire.DescriptorStreamOutput, d.TalkerUniqueID)
	if err != nil {
		return d.ResponseTo(wire.ACMPStatusTalkerNoStreamIndex)
	}
	key := streamKey{entity: d.TalkerEntityID, unique: d.TalkerUniqueID}
	pair := ConnKey{ListenerEntityID: d.ListenerEntityID, ListenerUniqueID: d.ListenerUniqueID}

	switch d.MessageType {
	case wire.ACMPConnectTxCommand:
		src := r.sources[key]
		if src == nil {
			src = &sourceState{
				streamID:  talkerStreamID(d.TalkerEntityID, d.TalkerUniqueID),
				destMAC:   streamDestMAC(d.TalkerUniqueID),
				listeners: make(map[ConnKey]struct{}),
			}
			r.sources[key] = src
		}
		capacity := int(desc.ConnectionCapacity)
		if capacity == 0 {
			capacity = 1
		}
		if _, already := src.listeners[pair]; !already && len(src.listeners) >= capacity {
			return d.ResponseTo(wire.ACMPStatusTalkerExclusive)
		}
		src.listeners[pair] = struct{}{}
		resp := d.ResponseTo(wire.ACMPStatusSuccess)
		resp.StreamID = src.streamID
		resp.StreamDestMAC = src.destMAC
		resp.ConnectionCount = uint16(len(src.listeners))
		return resp

	case wire.ACMPDisconnectTxCommand:
		src := r.sources[key]
		if src == nil {
			return d.ResponseTo(wire.ACMPStatusNotConnected)
		}
		if _, bound := src.listeners[pair]; !bound {
			return d.ResponseTo(wire.ACMPStatusNotConnected)
		}
		delete(src.listeners, pair)
		resp := d.ResponseTo(wire.ACMPStatusSuccess)
		resp.StreamID = src.streamID
		resp.ConnectionCount = uint16(len(src.listeners))
		return resp

	default: // GET_TX_STATE
		resp := d.ResponseTo(wire.ACMPStatusSuccess)
		if src := r.sources[key]; src != nil {
			resp.StreamID = src.streamID
			resp.StreamDestMAC = src.destMAC
			resp.ConnectionCount = uint16(len(src.listeners))
		}
		return resp
	}
}

// handleListener serves the RX leg commands. Callers hold r.mu.
func (r *Responder) handleListener(entity *model.LocalEntity, d *wire.ACMPDU) *wire.ACMPDU {
	if _, err := entity.ActiveDescriptor(wire.DescriptorStreamInput, d.ListenerUniqueID); err != nil {
		return d.ResponseTo(wire.ACMPStatusListenerUnknownID)
	}
	key := streamKey{entity: d.ListenerEntityID, unique: d.ListenerUniqueID}

	switch d.MessageType {
	case wire.ACMPConnectRxCommand:
		if sink := r.sinks[key]; sink != nil {
			if sink.talker != d.TalkerEntityID || sink.talkerUnique != d.TalkerUniqueID {
				return d.ResponseTo(wire.ACMPStatusListenerExclusive)
			}
			// Identical rebind is idempotent.
			resp := d.ResponseTo(wire.ACMPStatusSuccess)
			resp.ConnectionCount = 1
			return resp
		}
		r.sinks[key] = &sinkState{
			talker:       d.TalkerEntityID,
			talkerUnique: d.TalkerUniqueID,
			streamID:     d.StreamID,
			destMAC:      d.StreamDestMAC,
			vlanID:       d.StreamVlanID,
			flags:        d.Flags,
		}
		resp := d.ResponseTo(wire.ACMPStatusSuccess)
		resp.ConnectionCount = 1
		return resp

	case wire.ACMPDisconnectRxCommand:
		if r.sinks[key] == nil {
			return d.ResponseTo(wire.ACMPStatusNotConnected)
		}
		delete(r.sinks, key)
		return d.ResponseTo(wire.ACMPStatusSuccess)

	default: // GET_RX_STATE
		resp := d.ResponseTo(wire.ACMPStatusSuccess)
		if sink := r.sinks[key]; sink != nil {
			resp.TalkerEntityID = sink.talker
			resp.TalkerUniqueID = sink.talkerUnique
			resp.StreamID = sink.streamID
			resp.StreamDestMAC = sink.destMAC
			resp.StreamVlanID = sink.vlanID
			resp.Flags = sink.flags
			resp.ConnectionCount = 1
		}
		return resp
	}
}

// talkerStreamID derives a source's stream ID from the entity's EUI and
// the output index, the generated-ID scheme for entities that do not
// declare one.
func talkerStreamID(id wire.EntityID, unique uint16) wire.StreamID {
	return wire.StreamID((uint64(id)&0xFFFFFFFFFFFF)<<16 | uint64(unique))
}

// streamDestMAC picks a multicast destination in the MAAP dynamic range.
func streamDestMAC(unique uint16) wire.MacAddress {
	return wire.MacAddress{0x91, 0xE0, 0xF0, 0x00, uint8(unique >> 8), uint8(unique)}
}

func (r *Responder) logPDU(d *wire.ACMPDU) {
	r.cfg.Logger.Log(log.Event{
		Timestamp:      r.cfg.Clock.Now(),
		LinkID:         r.cfg.LinkID,
		Direction:      log.DirectionOut,
		Layer:          log.LayerWire,
		Category:       log.CategoryMessage,
		LocalRole:      log.RoleEntity,
		RemoteEntityID: uint64(d.ControllerEntityID),
		PDU: &log.PDUEvent{
			Subtype:            wire.SubtypeACMP,
			MessageType:        uint8(d.MessageType),
			SequenceID:         d.SequenceID,
			ControllerEntityID: uint64(d.ControllerEntityID),
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

package log

import (
	"time"
)

// Event is one record in a protocol trace. CBOR integer keys keep the
// stream compact; key numbers are part of the file format and must not
// be reused.
type Event struct {
	// Timestamp of the event, nanosecond precision.
	Timestamp time.Time `cbor:"1,keyasint"`

	// LinkID is the UUID of the network attachment the event belongs to.
	LinkID string `cbor:"2,keyasint"`

	// Direction of message flow relative to the local endpoint.
	Direction Direction `cbor:"3,keyasint"`

	// Layer that captured the event.
	Layer Layer `cbor:"4,keyasint"`

	// Category of the event.
	Category Category `cbor:"5,keyasint"`

	// LocalRole says whether the local endpoint publishes an entity or
	// acts as a controller.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// LocalEntityID of the local endpoint, when it has one.
	LocalEntityID uint64 `cbor:"7,keyasint,omitempty"`

	// RemoteEntityID is the peer the event concerns, when known.
	RemoteEntityID uint64 `cbor:"8,keyasint,omitempty"`

	// Exactly one payload is set, selected by Layer and Category.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // transport bytes
	PDU         *PDUEvent         `cbor:"11,keyasint,omitempty"` // decoded wire PDU
	Discovery   *DiscoveryEvent   `cbor:"12,keyasint,omitempty"` // registry change
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // command/connection lifecycle
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // fault at any layer
}

// Direction of message flow.
type Direction uint8

const (
	// DirectionIn marks a received message.
	DirectionIn Direction = 0
	// DirectionOut marks a sent message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer names the protocol layer an event was captured at.
type Layer uint8

const (
	// LayerTransport covers raw frame bytes.
	LayerTransport Layer = 0
	// LayerWire covers decoded PDUs.
	LayerWire Layer = 1
	// LayerService covers engine and registry activity.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category is the coarse classification of an event.
type Category uint8

const (
	// CategoryMessage covers protocol PDUs: advertisements, commands,
	// responses.
	CategoryMessage Category = 0
	// CategoryDiscovery covers remote entity registry changes.
	CategoryDiscovery Category = 1
	// CategoryState covers command and connection state transitions.
	CategoryState Category = 2
	// CategoryError covers faults.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryDiscovery:
		return "DISCOVERY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role distinguishes the two endpoint kinds.
type Role uint8

const (
	// RoleEntity publishes a local entity.
	RoleEntity Role = 0
	// RoleController drives remote entities.
	RoleController Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleEntity:
		return "ENTITY"
	case RoleController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent is the transport-layer payload: the bytes of one frame.
type FrameEvent struct {
	// Size of the full frame.
	Size int `cbor:"1,keyasint"`

	// Data holds the frame bytes, possibly truncated.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated is set when Data is shorter than Size.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// PDUEvent is the wire-layer payload: a decoded ADP/AECP/ACMP message.
type PDUEvent struct {
	// Subtype is the AVTP control subtype.
	Subtype uint8 `cbor:"1,keyasint"`

	// MessageType within the subtype.
	MessageType uint8 `cbor:"2,keyasint"`

	// SequenceID correlating command and response (AECP and ACMP).
	SequenceID uint16 `cbor:"3,keyasint,omitempty"`

	// TargetEntityID the PDU addresses.
	TargetEntityID uint64 `cbor:"4,keyasint,omitempty"`

	// ControllerEntityID that originated the exchange.
	ControllerEntityID uint64 `cbor:"5,keyasint,omitempty"`

	// CommandType for AECP AEM PDUs.
	CommandType *uint16 `cbor:"6,keyasint,omitempty"`

	// Status code, responses only.
	Status *uint8 `cbor:"7,keyasint,omitempty"`

	// ProcessingTime from command receipt to response send, responses
	// only. Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"8,keyasint,omitempty"`
}

// DiscoveryEvent is the service-layer payload for a registry change.
type DiscoveryEvent struct {
	// Change that happened to the registry entry.
	Change DiscoveryChange `cbor:"1,keyasint"`

	// EntityID of the affected entity.
	EntityID uint64 `cbor:"2,keyasint"`

	// AvailableIndex the entity advertised, when relevant.
	AvailableIndex uint32 `cbor:"3,keyasint,omitempty"`
}

// DiscoveryChange enumerates registry transitions.
type DiscoveryChange uint8

const (
	// DiscoveryAdded: first advertisement from an unknown entity.
	DiscoveryAdded DiscoveryChange = 0
	// DiscoveryUpdated: a known entity changed advertised state.
	DiscoveryUpdated DiscoveryChange = 1
	// DiscoveryRestarted: available_index went backwards.
	DiscoveryRestarted DiscoveryChange = 2
	// DiscoveryDeparted: explicit ENTITY_DEPARTING received.
	DiscoveryDeparted DiscoveryChange = 3
	// DiscoveryExpired: validity window lapsed without re-advertisement.
	DiscoveryExpired DiscoveryChange = 4
)

// String returns the change name.
func (d DiscoveryChange) String() string {
	switch d {
	case DiscoveryAdded:
		return "ADDED"
	case DiscoveryUpdated:
		return "UPDATED"
	case DiscoveryRestarted:
		return "RESTARTED"
	case DiscoveryDeparted:
		return "DEPARTED"
	case DiscoveryExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent is the service-layer payload for a lifecycle
// transition of a command, connection, or acquisition.
type StateChangeEvent struct {
	// Entity kind that changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState before the transition, empty on creation.
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState after the transition.
	NewState string `cbor:"3,keyasint"`

	// Reason for the transition, when one is known.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity names what kind of thing changed state.
type StateEntity uint8

const (
	// StateEntityCommand: an in-flight AECP command.
	StateEntityCommand StateEntity = 0
	// StateEntityConnection: a stream connection.
	StateEntityConnection StateEntity = 1
	// StateEntityAcquisition: an acquisition or lock.
	StateEntityAcquisition StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityCommand:
		return "COMMAND"
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityAcquisition:
		return "ACQUISITION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData records a fault at any layer.
type ErrorEventData struct {
	// Layer the fault occurred at.
	Layer Layer `cbor:"1,keyasint"`

	// Message describing the fault.
	Message string `cbor:"2,keyasint"`

	// Code is a protocol status code, when one applies.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names the operation that was underway.
	Context string `cbor:"4,keyasint,omitempty"`
}

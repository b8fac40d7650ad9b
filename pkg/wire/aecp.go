package wire

import (
	"encoding/binary"
	"fmt"
)

// AECPDU header size: control header plus controller_entity_id,
// sequence_id and command_type.
const aecpFixedLen = headerLen + 12

// MaxAEMPayload bounds the command-specific data so a PDU fits a single
// Ethernet frame alongside the AVTP envelope.
const MaxAEMPayload = 506

// ACQUIRE_ENTITY flags (IEEE 1722.1 Table 7.33).
const (
	AcquireFlagPersistent uint32 = 0x00000001
	AcquireFlagRelease    uint32 = 0x80000000
)

// LOCK_ENTITY flags (IEEE 1722.1 Table 7.35).
const (
	LockFlagUnlock uint32 = 0x00000001
)

// AECPDU is an AVDECC Enumeration and Control Protocol data unit carrying
// an AEM command or response (IEEE 1722.1 Figure 9.1). Payload is the
// command-specific data following command_type, already in wire form.
type AECPDU struct {
	MessageType        AECPMessageType
	Status             AEMStatus
	TargetEntityID     EntityID
	ControllerEntityID EntityID
	SequenceID         uint16

	// Unsolicited is the u bit of the command_type field, set on
	// unsolicited responses to registered controllers.
	Unsolicited bool
	CommandType AEMCommandType

	Payload []byte
}

// Validate checks field ranges prior to encoding.
func (d *AECPDU) Validate() error {
	if len(d.Payload) > MaxAEMPayload {
		return fmt.Errorf("AEM payload %d octets exceeds maximum %d", len(d.Payload), MaxAEMPayload)
	}
	if d.CommandType > 0x7FFF {
		return fmt.Errorf("command type 0x%04X exceeds 15-bit field", uint16(d.CommandType))
	}
	return nil
}

// Marshal encodes the AECPDU into wire form.
func (d *AECPDU) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, aecpFixedLen+len(d.Payload))
	putHeader(buf, ControlHeader{
		Subtype:           SubtypeAECP,
		MessageType:       uint8(d.MessageType),
		Status:            uint8(d.Status),
		ControlDataLength: uint16(12 + len(d.Payload)),
		TargetField:       uint64(d.TargetEntityID),
	})
	binary.BigEndian.PutUint64(buf[12:20], uint64(d.ControllerEntityID))
	binary.BigEndian.PutUint16(buf[20:22], d.SequenceID)
	ct := uint16(d.CommandType)
	if d.Unsolicited {
		ct |= 0x8000
	}
	binary.BigEndian.PutUint16(buf[22:24], ct)
	copy(buf[aecpFixedLen:], d.Payload)
	return buf, nil
}

// UnmarshalAECPDU decodes an AECPDU from wire form.
func UnmarshalAECPDU(data []byte) (*AECPDU, error) {
	h, err := parseHeader(data, SubtypeAECP)
	if err != nil {
		return nil, err
	}
	if len(data) < aecpFixedLen || h.ControlDataLength < 12 {
		return nil, fmt.Errorf("%w: AECPDU cdl %d", ErrLengthMismatch, h.ControlDataLength)
	}
	end := headerLen + int(h.ControlDataLength)
	ct := binary.BigEndian.Uint16(data[22:24])
	d := &AECPDU{
		MessageType:        AECPMessageType(h.MessageType),
		Status:             AEMStatus(h.Status),
		TargetEntityID:     EntityID(h.TargetField),
		ControllerEntityID: EntityID(binary.BigEndian.Uint64(data[12:20])),
		SequenceID:         binary.BigEndian.Uint16(data[20:22]),
		Unsolicited:        ct&0x8000 != 0,
		CommandType:        AEMCommandType(ct & 0x7FFF),
	}
	if end > aecpFixedLen {
		d.Payload = make([]byte, end-aecpFixedLen)
		copy(d.Payload, data[aecpFixedLen:end])
	}
	return d, nil
}

// ReadDescriptorCommand is the READ_DESCRIPTOR command payload
// (IEEE 1722.1 §7.4.5.1).
type ReadDescriptorCommand struct {
	ConfigurationIndex uint16
	DescriptorType     DescriptorType
	DescriptorIndex    uint16
}

// Marshal encodes the payload.
func (c *ReadDescriptorCommand) Marshal() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], c.ConfigurationIndex)
	// buf[2:4] reserved
	binary.BigEndian.PutUint16(buf[4:6], uint16(c.DescriptorType))
	binary.BigEndian.PutUint16(buf[6:8], c.DescriptorIndex)
	return buf
}

// UnmarshalReadDescriptorCommand decodes a READ_DESCRIPTOR command payload.
func UnmarshalReadDescriptorCommand(data []byte) (*ReadDescriptorCommand, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: READ_DESCRIPTOR command %d octets", ErrShortFrame, len(data))
	}
	return &ReadDescriptorCommand{
		ConfigurationIndex: binary.BigEndian.Uint16(data[0:2]),
		DescriptorType:     DescriptorType(binary.BigEndian.Uint16(data[4:6])),
		DescriptorIndex:    binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

// ReadDescriptorResponse is the READ_DESCRIPTOR response payload. The
// descriptor image begins with its own descriptor_type and
// descriptor_index octets.
type ReadDescriptorResponse struct {
	ConfigurationIndex uint16
	Descriptor         []byte
}

// Marshal encodes the payload.
func (r *ReadDescriptorResponse) Marshal() []byte {
	buf := make([]byte, 4+len(r.Descriptor))
	binary.BigEndian.PutUint16(buf[0:2], r.ConfigurationIndex)
	copy(buf[4:], r.Descriptor)
	return buf
}

// UnmarshalReadDescriptorResponse decodes a READ_DESCRIPTOR response payload.
func UnmarshalReadDescriptorResponse(data []byte) (*ReadDescriptorResponse, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: READ_DESCRIPTOR response %d octets", ErrShortFrame, len(data))
	}
	desc := make([]byte, len(data)-4)
	copy(desc, data[4:])
	return &ReadDescriptorResponse{
		ConfigurationIndex: binary.BigEndian.Uint16(data[0:2]),
		Descriptor:         desc,
	}, nil
}

// AcquireEntityPayload is the ACQUIRE_ENTITY command and response payload
// (IEEE 1722.1 §7.4.1). OwnerID carries the current owner on conflict
// responses.
type AcquireEntityPayload struct {
	Flags           uint32
	OwnerID         EntityID
	DescriptorType  DescriptorType
	DescriptorIndex uint16
}

// Marshal encodes the payload.
func (p *AcquireEntityPayload) Marshal() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], p.Flags)
	binary.BigEndian.PutUint64(buf[4:12], uint64(p.OwnerID))
	binary.BigEndian.PutUint16(buf[12:14], uint16(p.DescriptorType))
	binary.BigEndian.PutUint16(buf[14:16], p.DescriptorIndex)
	return buf
}

// UnmarshalAcquireEntityPayload decodes an ACQUIRE_ENTITY payload.
func UnmarshalAcquireEntityPayload(data []byte) (*AcquireEntityPayload, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: ACQUIRE_ENTITY payload %d octets", ErrShortFrame, len(data))
	}
	return &AcquireEntityPayload{
		Flags:           binary.BigEndian.Uint32(data[0:4]),
		OwnerID:         EntityID(binary.BigEndian.Uint64(data[4:12])),
		DescriptorType:  DescriptorType(binary.BigEndian.Uint16(data[12:14])),
		DescriptorIndex: binary.BigEndian.Uint16(data[14:16]),
	}, nil
}

// LockEntityPayload is the LOCK_ENTITY command and response payload
// (IEEE 1722.1 §7.4.2). LockedID carries the current holder on conflict
// responses.
type LockEntityPayload struct {
	Flags           uint32
	LockedID        EntityID
	DescriptorType  DescriptorType
	DescriptorIndex uint16
}

// Marshal encodes the payload.
func (p *LockEntityPayload) Marshal() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], p.Flags)
	binary.BigEndian.PutUint64(buf[4:12], uint64(p.LockedID))
	binary.BigEndian.PutUint16(buf[12:14], uint16(p.DescriptorType))
	binary.BigEndian.PutUint16(buf[14:16], p.DescriptorIndex)
	return buf
}

// UnmarshalLockEntityPayload decodes a LOCK_ENTITY payload.
func UnmarshalLockEntityPayload(data []byte) (*LockEntityPayload, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: LOCK_ENTITY payload %d octets", ErrShortFrame, len(data))
	}
	return &LockEntityPayload{
		Flags:           binary.BigEndian.Uint32(data[0:4]),
		LockedID:        EntityID(binary.BigEndian.Uint64(data[4:12])),
		DescriptorType:  DescriptorType(binary.BigEndian.Uint16(data[12:14])),
		DescriptorIndex: binary.BigEndian.Uint16(data[14:16]),
	}, nil
}

// ConfigurationPayload is the SET_CONFIGURATION / GET_CONFIGURATION
// response payload (IEEE 1722.1 §7.4.6/7.4.7).
type ConfigurationPayload struct {
	ConfigurationIndex uint16
}

// Marshal encodes the payload.
func (p *ConfigurationPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[2:4], p.ConfigurationIndex)
	return buf
}

// UnmarshalConfigurationPayload decodes a configuration payload.
func UnmarshalConfigurationPayload(data []byte) (*ConfigurationPayload, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: configuration payload %d octets", ErrShortFrame, len(data))
	}
	return &ConfigurationPayload{
		ConfigurationIndex: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// ControlPayload is the SET_CONTROL / GET_CONTROL payload
// (IEEE 1722.1 §7.4.32/7.4.33). Values carries the control's value blob in
// the format declared by its CONTROL descriptor.
type ControlPayload struct {
	DescriptorType  DescriptorType
	DescriptorIndex uint16
	Values          []byte
}

// Marshal encodes the payload.
func (p *ControlPayload) Marshal() []byte {
	buf := make([]byte, 4+len(p.Values))
	binary.BigEndian.PutUint16(buf[0:2], uint16(p.DescriptorType))
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	copy(buf[4:], p.Values)
	return buf
}

// UnmarshalControlPayload decodes a control payload.
func UnmarshalControlPayload(data []byte) (*ControlPayload, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: control payload %d octets", ErrShortFrame, len(data))
	}
	vals := make([]byte, len(data)-4)
	copy(vals, data[4:])
	return &ControlPayload{
		DescriptorType:  DescriptorType(binary.BigEndian.Uint16(data[0:2])),
		DescriptorIndex: binary.BigEndian.Uint16(data[2:4]),
		Values:          vals,
	}, nil
}

// StreamingPayload is the START_STREAMING / STOP_STREAMING payload
// (IEEE 1722.1 §7.4.35/7.4.36), addressing a STREAM_INPUT or
// STREAM_OUTPUT descriptor.
type StreamingPayload struct {
	DescriptorType  DescriptorType
	DescriptorIndex uint16
}

// Marshal encodes the payload.
func (p *StreamingPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(p.DescriptorType))
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	return buf
}

// UnmarshalStreamingPayload decodes a streaming payload.
func UnmarshalStreamingPayload(data []byte) (*StreamingPayload, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: streaming payload %d octets", ErrShortFrame, len(data))
	}
	return &StreamingPayload{
		DescriptorType:  DescriptorType(binary.BigEndian.Uint16(data[0:2])),
		DescriptorIndex: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

package wire

import (
	"encoding/binary"
	"fmt"
)

// ADPDU sizes. The control_data_length of an ADPDU counts the 56 payload
// octets following the entity_id field.
const (
	ADPDULen          = 68
	adpControlDataLen = 56
)

// Valid-time bounds. The wire field is 5 bits in units of 2 seconds.
const (
	MinValidTime uint8 = 1  // 2 seconds
	MaxValidTime uint8 = 31 // 62 seconds
)

// ADPDU is an AVDECC Discovery Protocol data unit (IEEE 1722.1 Figure 6.1).
//
// Capability fields use the canonical (2021) bit assignments; the compat
// package rewrites them when talking to a 2013 entity.
// CurrentConfigurationIndex occupies octets that are reserved in the 2013
// layout and is only meaningful for generation-2021 entities.
type ADPDU struct {
	MessageType ADPMessageType

	// ValidTime is the advertisement validity period in 2-second units
	// (5 bits). Zero is only meaningful for ENTITY_DISCOVER.
	ValidTime uint8

	EntityID      EntityID
	EntityModelID uint64

	EntityCapabilities     EntityCapabilities
	TalkerStreamSources    uint16
	TalkerCapabilities     TalkerCapabilities
	ListenerStreamSinks    uint16
	ListenerCapabilities   ListenerCapabilities
	ControllerCapabilities ControllerCapabilities

	AvailableIndex uint32

	GPTPGrandmasterID uint64
	GPTPDomainNumber  uint8

	CurrentConfigurationIndex uint16

	IdentifyControlIndex uint16
	InterfaceIndex       uint16
	AssociationID        EntityID
}

// Validate checks field ranges prior to encoding.
func (d *ADPDU) Validate() error {
	if !d.MessageType.IsValid() {
		return fmt.Errorf("invalid ADP message type %d", d.MessageType)
	}
	if d.ValidTime > MaxValidTime {
		return fmt.Errorf("valid_time %d exceeds 5-bit field", d.ValidTime)
	}
	return nil
}

// Marshal encodes the ADPDU into its 68-octet wire form.
func (d *ADPDU) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, ADPDULen)
	putHeader(buf, ControlHeader{
		Subtype:           SubtypeADP,
		MessageType:       uint8(d.MessageType),
		Status:            d.ValidTime,
		ControlDataLength: adpControlDataLen,
		TargetField:       uint64(d.EntityID),
	})
	p := buf[headerLen:]
	binary.BigEndian.PutUint64(p[0:8], d.EntityModelID)
	binary.BigEndian.PutUint32(p[8:12], uint32(d.EntityCapabilities))
	binary.BigEndian.PutUint16(p[12:14], d.TalkerStreamSources)
	binary.BigEndian.PutUint16(p[14:16], uint16(d.TalkerCapabilities))
	binary.BigEndian.PutUint16(p[16:18], d.ListenerStreamSinks)
	binary.BigEndian.PutUint16(p[18:20], uint16(d.ListenerCapabilities))
	binary.BigEndian.PutUint32(p[20:24], uint32(d.ControllerCapabilities))
	binary.BigEndian.PutUint32(p[24:28], d.AvailableIndex)
	binary.BigEndian.PutUint64(p[28:36], d.GPTPGrandmasterID)
	p[36] = d.GPTPDomainNumber
	// p[37] reserved
	binary.BigEndian.PutUint16(p[38:40], d.CurrentConfigurationIndex)
	binary.BigEndian.PutUint16(p[40:42], d.IdentifyControlIndex)
	binary.BigEndian.PutUint16(p[42:44], d.InterfaceIndex)
	binary.BigEndian.PutUint64(p[44:52], uint64(d.AssociationID))
	// p[52:56] reserved
	return buf, nil
}

// UnmarshalADPDU decodes an ADPDU from its wire form.
func UnmarshalADPDU(data []byte) (*ADPDU, error) {
	h, err := parseHeader(data, SubtypeADP)
	if err != nil {
		return nil, err
	}
	if len(data) < ADPDULen || h.ControlDataLength != adpControlDataLen {
		return nil, fmt.Errorf("%w: ADPDU cdl %d", ErrLengthMismatch, h.ControlDataLength)
	}
	d := &ADPDU{
		MessageType: ADPMessageType(h.MessageType),
		ValidTime:   h.Status,
		EntityID:    EntityID(h.TargetField),
	}
	if !d.MessageType.IsValid() {
		return nil, fmt.Errorf("invalid ADP message type %d", h.MessageType)
	}
	p := data[headerLen:ADPDULen]
	d.EntityModelID = binary.BigEndian.Uint64(p[0:8])
	d.EntityCapabilities = EntityCapabilities(binary.BigEndian.Uint32(p[8:12]))
	d.TalkerStreamSources = binary.BigEndian.Uint16(p[12:14])
	d.TalkerCapabilities = TalkerCapabilities(binary.BigEndian.Uint16(p[14:16]))
	d.ListenerStreamSinks = binary.BigEndian.Uint16(p[16:18])
	d.ListenerCapabilities = ListenerCapabilities(binary.BigEndian.Uint16(p[18:20]))
	d.ControllerCapabilities = ControllerCapabilities(binary.BigEndian.Uint32(p[20:24]))
	d.AvailableIndex = binary.BigEndian.Uint32(p[24:28])
	d.GPTPGrandmasterID = binary.BigEndian.Uint64(p[28:36])
	d.GPTPDomainNumber = p[36]
	d.CurrentConfigurationIndex = binary.BigEndian.Uint16(p[38:40])
	d.IdentifyControlIndex = binary.BigEndian.Uint16(p[40:42])
	d.InterfaceIndex = binary.BigEndian.Uint16(p[42:44])
	d.AssociationID = EntityID(binary.BigEndian.Uint64(p[44:52]))
	return d, nil
}

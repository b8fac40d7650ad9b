package wire

import (
	"encoding/binary"
	"fmt"
)

// ACMPDU sizes. The control_data_length counts the 44 payload octets
// following the stream_id field.
const (
	ACMPDULen          = 56
	acmpControlDataLen = 44
)

// ACMP connection flags (IEEE 1722.1 Table 8.3).
const (
	ConnFlagClassB            uint16 = 0x0001
	ConnFlagFastConnect       uint16 = 0x0002
	ConnFlagSavedState        uint16 = 0x0004
	ConnFlagStreamingWait     uint16 = 0x0008
	ConnFlagSupportsEncrypted uint16 = 0x0010
	ConnFlagEncryptedPDU      uint16 = 0x0020
	ConnFlagTalkerFailed      uint16 = 0x0040
)

// ACMPDU is an AVDECC Connection Management Protocol data unit
// (IEEE 1722.1 Figure 8.1). All message types share the layout; fields
// not used by a given type are zero on the wire.
type ACMPDU struct {
	MessageType ACMPMessageType
	Status      ACMPStatus

	StreamID           StreamID
	ControllerEntityID EntityID
	TalkerEntityID     EntityID
	ListenerEntityID   EntityID
	TalkerUniqueID     uint16
	ListenerUniqueID   uint16

	StreamDestMAC   MacAddress
	ConnectionCount uint16
	SequenceID      uint16
	Flags           uint16
	StreamVlanID    uint16
}

// Validate checks field ranges prior to encoding.
func (d *ACMPDU) Validate() error {
	if d.MessageType > ACMPGetTxConnectionResponse {
		return fmt.Errorf("invalid ACMP message type %d", d.MessageType)
	}
	return nil
}

// Marshal encodes the ACMPDU into its 56-octet wire form.
func (d *ACMPDU) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, ACMPDULen)
	putHeader(buf, ControlHeader{
		Subtype:           SubtypeACMP,
		MessageType:       uint8(d.MessageType),
		Status:            uint8(d.Status),
		ControlDataLength: acmpControlDataLen,
		TargetField:       uint64(d.StreamID),
	})
	p := buf[headerLen:]
	binary.BigEndian.PutUint64(p[0:8], uint64(d.ControllerEntityID))
	binary.BigEndian.PutUint64(p[8:16], uint64(d.TalkerEntityID))
	binary.BigEndian.PutUint64(p[16:24], uint64(d.ListenerEntityID))
	binary.BigEndian.PutUint16(p[24:26], d.TalkerUniqueID)
	binary.BigEndian.PutUint16(p[26:28], d.ListenerUniqueID)
	copy(p[28:34], d.StreamDestMAC[:])
	binary.BigEndian.PutUint16(p[34:36], d.ConnectionCount)
	binary.BigEndian.PutUint16(p[36:38], d.SequenceID)
	binary.BigEndian.PutUint16(p[38:40], d.Flags)
	binary.BigEndian.PutUint16(p[40:42], d.StreamVlanID)
	// p[42:44] reserved
	return buf, nil
}

// UnmarshalACMPDU decodes an ACMPDU from its wire form.
func UnmarshalACMPDU(data []byte) (*ACMPDU, error) {
	h, err := parseHeader(data, SubtypeACMP)
	if err != nil {
		return nil, err
	}
	if len(data) < ACMPDULen || h.ControlDataLength != acmpControlDataLen {
		return nil, fmt.Errorf("%w: ACMPDU cdl %d", ErrLengthMismatch, h.ControlDataLength)
	}
	d := &ACMPDU{
		MessageType: ACMPMessageType(h.MessageType),
		Status:      ACMPStatus(h.Status),
		StreamID:    StreamID(h.TargetField),
	}
	p := data[headerLen:ACMPDULen]
	d.ControllerEntityID = EntityID(binary.BigEndian.Uint64(p[0:8]))
	d.TalkerEntityID = EntityID(binary.BigEndian.Uint64(p[8:16]))
	d.ListenerEntityID = EntityID(binary.BigEndian.Uint64(p[16:24]))
	d.TalkerUniqueID = binary.BigEndian.Uint16(p[24:26])
	d.ListenerUniqueID = binary.BigEndian.Uint16(p[26:28])
	copy(d.StreamDestMAC[:], p[28:34])
	d.ConnectionCount = binary.BigEndian.Uint16(p[34:36])
	d.SequenceID = binary.BigEndian.Uint16(p[36:38])
	d.Flags = binary.BigEndian.Uint16(p[38:40])
	d.StreamVlanID = binary.BigEndian.Uint16(p[40:42])
	return d, nil
}

// ResponseTo builds a response ACMPDU mirroring a command's addressing
// fields, with the given status.
func (d *ACMPDU) ResponseTo(status ACMPStatus) *ACMPDU {
	resp := *d
	resp.MessageType = d.MessageType.Response()
	resp.Status = status
	return &resp
}

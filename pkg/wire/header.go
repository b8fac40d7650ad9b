package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header packing errors.
var (
	ErrShortFrame     = errors.New("frame too short")
	ErrBadSubtype     = errors.New("unexpected AVTP subtype")
	ErrBadVersion     = errors.New("unsupported AVTP version")
	ErrLengthMismatch = errors.New("control_data_length does not match payload")
)

// headerLen is the size of the IEEE 1722 control AVTPDU header shared by
// all three AVDECC PDUs: subtype, sv/version/control_data, status/cdl and
// the 64-bit entity/stream ID field.
const headerLen = 12

// ControlHeader is the common control AVTPDU header (IEEE 1722.1 Figure
// 6.1/8.1/9.1). The status field doubles as valid_time for ADP.
type ControlHeader struct {
	Subtype           uint8
	StreamValid       bool
	Version           uint8 // 3 bits, always 0 on the wire today
	MessageType       uint8 // 4 bits (control_data field)
	Status            uint8 // 5 bits; valid_time for ADP
	ControlDataLength uint16
	// TargetField is the 64-bit field at octets 4..11: entity_id for ADP,
	// target_entity_id for AECP, stream_id for ACMP.
	TargetField uint64
}

// putHeader encodes the control header into the first 12 octets of dst.
func putHeader(dst []byte, h ControlHeader) {
	dst[0] = h.Subtype
	b1 := (h.Version & 0x07) << 4
	if h.StreamValid {
		b1 |= 0x80
	}
	b1 |= h.MessageType & 0x0F
	dst[1] = b1
	dst[2] = (h.Status&0x1F)<<3 | uint8(h.ControlDataLength>>8)&0x07
	dst[3] = uint8(h.ControlDataLength)
	binary.BigEndian.PutUint64(dst[4:12], h.TargetField)
}

// parseHeader decodes the control header, validating subtype and version.
func parseHeader(data []byte, wantSubtype uint8) (ControlHeader, error) {
	if len(data) < headerLen {
		return ControlHeader{}, fmt.Errorf("%w: %d octets", ErrShortFrame, len(data))
	}
	h := ControlHeader{
		Subtype:           data[0],
		StreamValid:       data[1]&0x80 != 0,
		Version:           (data[1] >> 4) & 0x07,
		MessageType:       data[1] & 0x0F,
		Status:            data[2] >> 3,
		ControlDataLength: uint16(data[2]&0x07)<<8 | uint16(data[3]),
		TargetField:       binary.BigEndian.Uint64(data[4:12]),
	}
	if h.Subtype != wantSubtype {
		return ControlHeader{}, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrBadSubtype, h.Subtype, wantSubtype)
	}
	if h.Version != 0 {
		return ControlHeader{}, fmt.Errorf("%w: version %d", ErrBadVersion, h.Version)
	}
	if int(h.ControlDataLength)+headerLen > len(data) {
		return ControlHeader{}, fmt.Errorf("%w: cdl %d, frame %d", ErrLengthMismatch, h.ControlDataLength, len(data))
	}
	return h, nil
}

// PeekSubtype returns the AVTP subtype of a raw frame without decoding it.
// Used by the dispatcher to route frames.
func PeekSubtype(data []byte) (uint8, bool) {
	if len(data) < 1 {
		return 0, false
	}
	return data[0], true
}

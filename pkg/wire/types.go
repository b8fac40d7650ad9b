package wire

import (
	"fmt"
)

// EntityID is an EUI-64 identifying an AVDECC entity. The zero value
// addresses "all entities" in ADP ENTITY_DISCOVER messages.
type EntityID uint64

// UniversalEntityID addresses every entity on the network.
const UniversalEntityID EntityID = 0

// String returns the entity ID in the conventional EUI-64 notation.
func (id EntityID) String() string {
	return fmt.Sprintf("0x%016X", uint64(id))
}

// IsUniversal reports whether the ID addresses all entities.
func (id EntityID) IsUniversal() bool {
	return id == UniversalEntityID
}

// StreamID is an EUI-64 identifying an AVTP stream.
type StreamID uint64

// String returns the stream ID in hex notation.
func (id StreamID) String() string {
	return fmt.Sprintf("0x%016X", uint64(id))
}

// MacAddress is a 48-bit Ethernet MAC address.
type MacAddress [6]byte

// AVDECCMulticast is the destination MAC for ADP and ACMP multicast
// messages (IEEE 1722.1 Annex B).
var AVDECCMulticast = MacAddress{0x91, 0xE0, 0xF0, 0x01, 0x00, 0x00}

// String returns the MAC in colon-separated hex notation.
func (m MacAddress) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether the address is all zeroes.
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}

// Ethertype is the IEEE 1722 AVTP ethertype carrying all AVDECC PDUs.
const Ethertype uint16 = 0x22F0

// AVTP control subtypes for the three AVDECC sub-protocols.
const (
	SubtypeADP  uint8 = 0xFA
	SubtypeAECP uint8 = 0xFB
	SubtypeACMP uint8 = 0xFC
)

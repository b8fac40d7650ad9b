package wire

import "strings"

// EntityCapabilities is the canonical entity capability bitfield, using the
// IEEE 1722.1-2021 bit assignments (Table 6-10). The compat package maps
// 2013 advertisements into this layout.
type EntityCapabilities uint32

const (
	EntityCapEFUMode                      EntityCapabilities = 0x80000000
	EntityCapAddressAccessSupported       EntityCapabilities = 0x40000000
	EntityCapGatewayEntity                EntityCapabilities = 0x20000000
	EntityCapAEMSupported                 EntityCapabilities = 0x10000000
	EntityCapLegacyAVC                    EntityCapabilities = 0x08000000
	EntityCapAssociationIDSupported       EntityCapabilities = 0x04000000
	EntityCapAssociationIDValid           EntityCapabilities = 0x02000000
	EntityCapVendorUniqueSupported        EntityCapabilities = 0x01000000
	EntityCapClassASupported              EntityCapabilities = 0x00800000
	EntityCapClassBSupported              EntityCapabilities = 0x00400000
	EntityCapGPTPSupported                EntityCapabilities = 0x00200000
	EntityCapAEMAuthSupported             EntityCapabilities = 0x00100000
	EntityCapAEMAuthRequired              EntityCapabilities = 0x00080000
	EntityCapAEMPersistentAcquire         EntityCapabilities = 0x00040000
	EntityCapAEMIdentifyControlIndexValid EntityCapabilities = 0x00020000
	EntityCapAEMInterfaceIndexValid       EntityCapabilities = 0x00010000
	EntityCapGeneralControllerIgnore      EntityCapabilities = 0x00008000
	EntityCapEntityNotReady               EntityCapabilities = 0x00004000
	EntityCapACMPAcquireWithAEM           EntityCapabilities = 0x00002000
	EntityCapACMPAuthenticateWithAEM      EntityCapabilities = 0x00001000
	EntityCapSupportsUDPv4ATDECC          EntityCapabilities = 0x00000800
	EntityCapSupportsUDPv4Streaming       EntityCapabilities = 0x00000400
	EntityCapSupportsUDPv6ATDECC          EntityCapabilities = 0x00000200
	EntityCapSupportsUDPv6Streaming       EntityCapabilities = 0x00000100
	EntityCapMultiplePTPInstances         EntityCapabilities = 0x00000080
	EntityCapConfigurationIndexValid      EntityCapabilities = 0x00000040
)

// Has reports whether all of the given flags are set.
func (c EntityCapabilities) Has(flags EntityCapabilities) bool {
	return c&flags == flags
}

// String returns the set flag names, pipe-separated.
func (c EntityCapabilities) String() string {
	names := []struct {
		flag EntityCapabilities
		name string
	}{
		{EntityCapEFUMode, "EFU_MODE"},
		{EntityCapAddressAccessSupported, "ADDRESS_ACCESS"},
		{EntityCapGatewayEntity, "GATEWAY"},
		{EntityCapAEMSupported, "AEM"},
		{EntityCapLegacyAVC, "LEGACY_AVC"},
		{EntityCapAssociationIDSupported, "ASSOC_ID_SUPPORTED"},
		{EntityCapAssociationIDValid, "ASSOC_ID_VALID"},
		{EntityCapVendorUniqueSupported, "VENDOR_UNIQUE"},
		{EntityCapClassASupported, "CLASS_A"},
		{EntityCapClassBSupported, "CLASS_B"},
		{EntityCapGPTPSupported, "GPTP"},
		{EntityCapAEMPersistentAcquire, "PERSISTENT_ACQUIRE"},
		{EntityCapGeneralControllerIgnore, "CONTROLLER_IGNORE"},
		{EntityCapEntityNotReady, "NOT_READY"},
		{EntityCapConfigurationIndexValid, "CONFIG_INDEX_VALID"},
	}
	var set []string
	for _, n := range names {
		if c.Has(n.flag) {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "NONE"
	}
	return strings.Join(set, "|")
}

// TalkerCapabilities is the canonical talker capability bitfield
// (IEEE 1722.1-2021 Table 6-11).
type TalkerCapabilities uint16

const (
	TalkerCapVideoSource      TalkerCapabilities = 0x0001
	TalkerCapAudioSource      TalkerCapabilities = 0x0002
	TalkerCapMIDISource       TalkerCapabilities = 0x0004
	TalkerCapSMPTESource      TalkerCapabilities = 0x0008
	TalkerCapMediaClockSource TalkerCapabilities = 0x0010
	TalkerCapControlSource    TalkerCapabilities = 0x0020
	TalkerCapOtherSource      TalkerCapabilities = 0x0040
	TalkerCapImplemented      TalkerCapabilities = 0x8000
)

// Implemented reports whether the entity implements a talker.
func (c TalkerCapabilities) Implemented() bool {
	return c&TalkerCapImplemented != 0
}

// ListenerCapabilities is the canonical listener capability bitfield
// (IEEE 1722.1-2021 Table 6-12).
type ListenerCapabilities uint16

const (
	ListenerCapVideoSink      ListenerCapabilities = 0x0001
	ListenerCapAudioSink      ListenerCapabilities = 0x0002
	ListenerCapMIDISink       ListenerCapabilities = 0x0004
	ListenerCapSMPTESink      ListenerCapabilities = 0x0008
	ListenerCapMediaClockSink ListenerCapabilities = 0x0010
	ListenerCapControlSink    ListenerCapabilities = 0x0020
	ListenerCapOtherSink      ListenerCapabilities = 0x0040
	ListenerCapImplemented    ListenerCapabilities = 0x8000
)

// Implemented reports whether the entity implements a listener.
func (c ListenerCapabilities) Implemented() bool {
	return c&ListenerCapImplemented != 0
}

// ControllerCapabilities is the controller capability bitfield. Identical
// in both generations.
type ControllerCapabilities uint32

const (
	ControllerCapImplemented ControllerCapabilities = 0x00000001
)

// Implemented reports whether the entity implements a controller.
func (c ControllerCapabilities) Implemented() bool {
	return c&ControllerCapImplemented != 0
}

package compat

import (
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Capability bit translation tables between the 2013 wire layout and the
// canonical (2021) layout. Pairs are (canonical bit, 2013 bit); flags a
// revision does not define are dropped in that direction.

var entityCapPairs = []struct {
	canonical wire.EntityCapabilities
	legacy    uint32
}{
	{wire.EntityCapEFUMode, 0x00000001},
	{wire.EntityCapAddressAccessSupported, 0x00000002},
	{wire.EntityCapGatewayEntity, 0x00000004},
	{wire.EntityCapAEMSupported, 0x00000008},
	{wire.EntityCapLegacyAVC, 0x00000010},
	{wire.EntityCapAssociationIDSupported, 0x00000020},
	{wire.EntityCapAssociationIDValid, 0x00000040},
	{wire.EntityCapVendorUniqueSupported, 0x00000080},
	{wire.EntityCapClassASupported, 0x00000100},
	{wire.EntityCapClassBSupported, 0x00000200},
	{wire.EntityCapGPTPSupported, 0x00000400},
	{wire.EntityCapAEMAuthSupported, 0x00000800},
	{wire.EntityCapAEMAuthRequired, 0x00001000},
	{wire.EntityCapAEMPersistentAcquire, 0x00002000},
	{wire.EntityCapAEMIdentifyControlIndexValid, 0x00004000},
	{wire.EntityCapAEMInterfaceIndexValid, 0x00008000},
	{wire.EntityCapGeneralControllerIgnore, 0x00010000},
	{wire.EntityCapEntityNotReady, 0x00020000},
}

var talkerCapPairs = []struct {
	canonical wire.TalkerCapabilities
	legacy    uint16
}{
	{wire.TalkerCapImplemented, 0x0001},
	{wire.TalkerCapOtherSource, 0x0020},
	{wire.TalkerCapControlSource, 0x0040},
	{wire.TalkerCapMediaClockSource, 0x0080},
	{wire.TalkerCapSMPTESource, 0x0100},
	{wire.TalkerCapMIDISource, 0x0200},
	{wire.TalkerCapAudioSource, 0x0400},
	{wire.TalkerCapVideoSource, 0x0800},
}

var listenerCapPairs = []struct {
	canonical wire.ListenerCapabilities
	legacy    uint16
}{
	{wire.ListenerCapImplemented, 0x0001},
	{wire.ListenerCapOtherSink, 0x0020},
	{wire.ListenerCapControlSink, 0x0040},
	{wire.ListenerCapMediaClockSink, 0x0080},
	{wire.ListenerCapSMPTESink, 0x0100},
	{wire.ListenerCapMIDISink, 0x0200},
	{wire.ListenerCapAudioSink, 0x0400},
	{wire.ListenerCapVideoSink, 0x0800},
}

// EntityCapsFrom2013 converts a 2013 entity capability word to canonical.
func EntityCapsFrom2013(raw uint32) wire.EntityCapabilities {
	var out wire.EntityCapabilities
	for _, p := range entityCapPairs {
		if raw&p.legacy != 0 {
			out |= p.canonical
		}
	}
	return out
}

// EntityCapsTo2013 converts canonical entity capabilities to the 2013
// word. Flags 2013 does not define are dropped.
func EntityCapsTo2013(caps wire.EntityCapabilities) uint32 {
	var out uint32
	for _, p := range entityCapPairs {
		if caps.Has(p.canonical) {
			out |= p.legacy
		}
	}
	return out
}

// TalkerCapsFrom2013 converts a 2013 talker capability word to canonical.
func TalkerCapsFrom2013(raw uint16) wire.TalkerCapabilities {
	var out wire.TalkerCapabilities
	for _, p := range talkerCapPairs {
		if raw&p.legacy != 0 {
			out |= p.canonical
		}
	}
	return out
}

// TalkerCapsTo2013 converts canonical talker capabilities to the 2013 word.
func TalkerCapsTo2013(caps wire.TalkerCapabilities) uint16 {
	var out uint16
	for _, p := range talkerCapPairs {
		if caps&p.canonical != 0 {
			out |= p.legacy
		}
	}
	return out
}

// ListenerCapsFrom2013 converts a 2013 listener capability word to canonical.
func ListenerCapsFrom2013(raw uint16) wire.ListenerCapabilities {
	var out wire.ListenerCapabilities
	for _, p := range listenerCapPairs {
		if raw&p.legacy != 0 {
			out |= p.canonical
		}
	}
	return out
}

// ListenerCapsTo2013 converts canonical listener capabilities to the 2013 word.
func ListenerCapsTo2013(caps wire.ListenerCapabilities) uint16 {
	var out uint16
	for _, p := range listenerCapPairs {
		if caps&p.canonical != 0 {
			out |= p.legacy
		}
	}
	return out
}

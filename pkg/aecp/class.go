package aecp

import (
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// CommandClass groups AEM commands for the one-pending-per-class rule.
// Commands in different classes may be in flight to the same target
// concurrently; a second command of the same class is refused with
// ErrBusy.
type CommandClass uint8

const (
	// ClassEnumeration covers read-only queries.
	ClassEnumeration CommandClass = iota
	// ClassControl covers state-mutating commands.
	ClassControl
	// ClassExclusivity covers acquisition and locking.
	ClassExclusivity
)

// String returns the class name.
func (c CommandClass) String() string {
	switch c {
	case ClassEnumeration:
		return "ENUMERATION"
	case ClassControl:
		return "CONTROL"
	case ClassExclusivity:
		return "EXCLUSIVITY"
	default:
		return "UNKNOWN"
	}
}

// classOf maps an AEM command to its class.
func classOf(cmd wire.AEMCommandType) CommandClass {
	switch cmd {
	case wire.AEMAcquireEntity, wire.AEMLockEntity:
		return ClassExclusivity
	case wire.AEMReadDescriptor, wire.AEMGetConfiguration, wire.AEMGetControl,
		wire.AEMGetStreamFormat, wire.AEMGetStreamInfo, wire.AEMGetName,
		wire.AEMGetAssociationID, wire.AEMGetSamplingRate, wire.AEMGetClockSource,
		wire.AEMGetAVBInfo, wire.AEMGetASPath, wire.AEMGetCounters,
		wire.AEMEntityAvailable, wire.AEMControllerAvailable, wire.AEMGetDynamicInfo:
		return ClassEnumeration
	default:
		return ClassControl
	}
}

package wire

// AEMStatus is the status carried in AECP AEM responses
// (IEEE 1722.1 Table 7.127).
type AEMStatus uint8

const (
	AEMStatusSuccess           AEMStatus = 0x00
	AEMStatusNotImplemented    AEMStatus = 0x01
	AEMStatusNoSuchDescriptor  AEMStatus = 0x02
	AEMStatusEntityLocked      AEMStatus = 0x03
	AEMStatusEntityAcquired    AEMStatus = 0x04
	AEMStatusNotAuthenticated  AEMStatus = 0x05
	AEMStatusBadArguments      AEMStatus = 0x07
	AEMStatusNoResources       AEMStatus = 0x08
	AEMStatusInProgress        AEMStatus = 0x09
	AEMStatusEntityMisbehaving AEMStatus = 0x0A
	AEMStatusNotSupported      AEMStatus = 0x0B
	AEMStatusStreamIsRunning   AEMStatus = 0x0C
)

// IsSuccess reports whether the status indicates success.
func (s AEMStatus) IsSuccess() bool {
	return s == AEMStatusSuccess
}

// String returns the AEM status name.
func (s AEMStatus) String() string {
	switch s {
	case AEMStatusSuccess:
		return "SUCCESS"
	case AEMStatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case AEMStatusNoSuchDescriptor:
		return "NO_SUCH_DESCRIPTOR"
	case AEMStatusEntityLocked:
		return "ENTITY_LOCKED"
	case AEMStatusEntityAcquired:
		return "ENTITY_ACQUIRED"
	case AEMStatusNotAuthenticated:
		return "NOT_AUTHENTICATED"
	case AEMStatusBadArguments:
		return "BAD_ARGUMENTS"
	case AEMStatusNoResources:
		return "NO_RESOURCES"
	case AEMStatusInProgress:
		return "IN_PROGRESS"
	case AEMStatusEntityMisbehaving:
		return "ENTITY_MISBEHAVING"
	case AEMStatusNotSupported:
		return "NOT_SUPPORTED"
	case AEMStatusStreamIsRunning:
		return "STREAM_IS_RUNNING"
	default:
		return "UNKNOWN"
	}
}

// ACMPStatus is the status carried in ACMP responses
// (IEEE 1722.1 Table 8.2).
type ACMPStatus uint8

const (
	ACMPStatusSuccess                 ACMPStatus = 0x00
	ACMPStatusListenerUnknownID       ACMPStatus = 0x01
	ACMPStatusTalkerUnknownID         ACMPStatus = 0x02
	ACMPStatusTalkerDestMACFail       ACMPStatus = 0x03
	ACMPStatusTalkerNoStreamIndex     ACMPStatus = 0x04
	ACMPStatusTalkerNoBandwidth       ACMPStatus = 0x05
	ACMPStatusTalkerExclusive         ACMPStatus = 0x06
	ACMPStatusListenerTalkerTimeout   ACMPStatus = 0x07
	ACMPStatusListenerExclusive       ACMPStatus = 0x08
	ACMPStatusStateUnavailable        ACMPStatus = 0x09
	ACMPStatusNotConnected            ACMPStatus = 0x0A
	ACMPStatusNoSuchConnection        ACMPStatus = 0x0B
	ACMPStatusCouldNotSendMessage     ACMPStatus = 0x0C
	ACMPStatusTalkerMisbehaving       ACMPStatus = 0x0D
	ACMPStatusListenerMisbehaving     ACMPStatus = 0x0E
	ACMPStatusControllerNotAuthorized ACMPStatus = 0x10
	ACMPStatusIncompatibleRequest     ACMPStatus = 0x11
	ACMPStatusNotSupported            ACMPStatus = 0x1F
)

// IsSuccess reports whether the status indicates success.
func (s ACMPStatus) IsSuccess() bool {
	return s == ACMPStatusSuccess
}

// String returns the ACMP status name.
func (s ACMPStatus) String() string {
	switch s {
	case ACMPStatusSuccess:
		return "SUCCESS"
	case ACMPStatusListenerUnknownID:
		return "LISTENER_UNKNOWN_ID"
	case ACMPStatusTalkerUnknownID:
		return "TALKER_UNKNOWN_ID"
	case ACMPStatusTalkerDestMACFail:
		return "TALKER_DEST_MAC_FAIL"
	case ACMPStatusTalkerNoStreamIndex:
		return "TALKER_NO_STREAM_INDEX"
	case ACMPStatusTalkerNoBandwidth:
		return "TALKER_NO_BANDWIDTH"
	case ACMPStatusTalkerExclusive:
		return "TALKER_EXCLUSIVE"
	case ACMPStatusListenerTalkerTimeout:
		return "LISTENER_TALKER_TIMEOUT"
	case ACMPStatusListenerExclusive:
		return "LISTENER_EXCLUSIVE"
	case ACMPStatusStateUnavailable:
		return "STATE_UNAVAILABLE"
	case ACMPStatusNotConnected:
		return "NOT_CONNECTED"
	case ACMPStatusNoSuchConnection:
		return "NO_SUCH_CONNECTION"
	case ACMPStatusCouldNotSendMessage:
		return "COULD_NOT_SEND_MESSAGE"
	case ACMPStatusTalkerMisbehaving:
		return "TALKER_MISBEHAVING"
	case ACMPStatusListenerMisbehaving:
		return "LISTENER_MISBEHAVING"
	case ACMPStatusControllerNotAuthorized:
		return "CONTROLLER_NOT_AUTHORIZED"
	case ACMPStatusIncompatibleRequest:
		return "INCOMPATIBLE_REQUEST"
	case ACMPStatusNotSupported:
		return "NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}

package wire

// ADPMessageType is the ADP message type (IEEE 1722.1 Table 6.1).
type ADPMessageType uint8

const (
	ADPEntityAvailable ADPMessageType = 0x00
	ADPEntityDeparting ADPMessageType = 0x01
	ADPEntityDiscover  ADPMessageType = 0x02
)

// IsValid reports whether the message type is defined.
func (t ADPMessageType) IsValid() bool {
	return t <= ADPEntityDiscover
}

// String returns the ADP message type name.
func (t ADPMessageType) String() string {
	switch t {
	case ADPEntityAvailable:
		return "ENTITY_AVAILABLE"
	case ADPEntityDeparting:
		return "ENTITY_DEPARTING"
	case ADPEntityDiscover:
		return "ENTITY_DISCOVER"
	default:
		return "UNKNOWN"
	}
}

// AECPMessageType is the AECP message type (IEEE 1722.1 Table 9.1).
// Commands are even, the matching response is command+1.
type AECPMessageType uint8

const (
	AECPAEMCommand            AECPMessageType = 0x00
	AECPAEMResponse           AECPMessageType = 0x01
	AECPAddressAccessCommand  AECPMessageType = 0x02
	AECPAddressAccessResponse AECPMessageType = 0x03
	AECPAVCCommand            AECPMessageType = 0x04
	AECPAVCResponse           AECPMessageType = 0x05
	AECPVendorUniqueCommand   AECPMessageType = 0x06
	AECPVendorUniqueResponse  AECPMessageType = 0x07
)

// IsResponse reports whether the message type is a response.
func (t AECPMessageType) IsResponse() bool {
	return t&0x01 != 0
}

// String returns the AECP message type name.
func (t AECPMessageType) String() string {
	switch t {
	case AECPAEMCommand:
		return "AEM_COMMAND"
	case AECPAEMResponse:
		return "AEM_RESPONSE"
	case AECPAddressAccessCommand:
		return "ADDRESS_ACCESS_COMMAND"
	case AECPAddressAccessResponse:
		return "ADDRESS_ACCESS_RESPONSE"
	case AECPAVCCommand:
		return "AVC_COMMAND"
	case AECPAVCResponse:
		return "AVC_RESPONSE"
	case AECPVendorUniqueCommand:
		return "VENDOR_UNIQUE_COMMAND"
	case AECPVendorUniqueResponse:
		return "VENDOR_UNIQUE_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// ACMPMessageType is the ACMP message type (IEEE 1722.1 Table 8.1).
// Commands are even, the matching response is command+1.
type ACMPMessageType uint8

const (
	ACMPConnectTxCommand        ACMPMessageType = 0x00
	ACMPConnectTxResponse       ACMPMessageType = 0x01
	ACMPDisconnectTxCommand     ACMPMessageType = 0x02
	ACMPDisconnectTxResponse    ACMPMessageType = 0x03
	ACMPGetTxStateCommand       ACMPMessageType = 0x04
	ACMPGetTxStateResponse      ACMPMessageType = 0x05
	ACMPConnectRxCommand        ACMPMessageType = 0x06
	ACMPConnectRxResponse       ACMPMessageType = 0x07
	ACMPDisconnectRxCommand     ACMPMessageType = 0x08
	ACMPDisconnectRxResponse    ACMPMessageType = 0x09
	ACMPGetRxStateCommand       ACMPMessageType = 0x0A
	ACMPGetRxStateResponse      ACMPMessageType = 0x0B
	ACMPGetTxConnectionCommand  ACMPMessageType = 0x0C
	ACMPGetTxConnectionResponse ACMPMessageType = 0x0D
)

// IsResponse reports whether the message type is a response.
func (t ACMPMessageType) IsResponse() bool {
	return t&0x01 != 0
}

// Response returns the response type matching a command type.
func (t ACMPMessageType) Response() ACMPMessageType {
	return t | 0x01
}

// String returns the ACMP message type name.
func (t ACMPMessageType) String() string {
	switch t {
	case ACMPConnectTxCommand:
		return "CONNECT_TX_COMMAND"
	case ACMPConnectTxResponse:
		return "CONNECT_TX_RESPONSE"
	case ACMPDisconnectTxCommand:
		return "DISCONNECT_TX_COMMAND"
	case ACMPDisconnectTxResponse:
		return "DISCONNECT_TX_RESPONSE"
	case ACMPGetTxStateCommand:
		return "GET_TX_STATE_COMMAND"
	case ACMPGetTxStateResponse:
		return "GET_TX_STATE_RESPONSE"
	case ACMPConnectRxCommand:
		return "CONNECT_RX_COMMAND"
	case ACMPConnectRxResponse:
		return "CONNECT_RX_RESPONSE"
	case ACMPDisconnectRxCommand:
		return "DISCONNECT_RX_COMMAND"
	case ACMPDisconnectRxResponse:
		return "DISCONNECT_RX_RESPONSE"
	case ACMPGetRxStateCommand:
		return "GET_RX_STATE_COMMAND"
	case ACMPGetRxStateResponse:
		return "GET_RX_STATE_RESPONSE"
	case ACMPGetTxConnectionCommand:
		return "GET_TX_CONNECTION_COMMAND"
	case ACMPGetTxConnectionResponse:
		return "GET_TX_CONNECTION_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// AEMCommandType is the AEM command type carried in AECP AEM messages
// (IEEE 1722.1 Table 7.126).
type AEMCommandType uint16

const (
	AEMAcquireEntity         AEMCommandType = 0x0000
	AEMLockEntity            AEMCommandType = 0x0001
	AEMEntityAvailable       AEMCommandType = 0x0002
	AEMControllerAvailable   AEMCommandType = 0x0003
	AEMReadDescriptor        AEMCommandType = 0x0004
	AEMWriteDescriptor       AEMCommandType = 0x0005
	AEMSetConfiguration      AEMCommandType = 0x0006
	AEMGetConfiguration      AEMCommandType = 0x0007
	AEMSetStreamFormat       AEMCommandType = 0x0008
	AEMGetStreamFormat       AEMCommandType = 0x0009
	AEMSetStreamInfo         AEMCommandType = 0x000E
	AEMGetStreamInfo         AEMCommandType = 0x000F
	AEMSetName               AEMCommandType = 0x0010
	AEMGetName               AEMCommandType = 0x0011
	AEMSetAssociationID      AEMCommandType = 0x0012
	AEMGetAssociationID      AEMCommandType = 0x0013
	AEMSetSamplingRate       AEMCommandType = 0x0014
	AEMGetSamplingRate       AEMCommandType = 0x0015
	AEMSetClockSource        AEMCommandType = 0x0016
	AEMGetClockSource        AEMCommandType = 0x0017
	AEMSetControl            AEMCommandType = 0x0018
	AEMGetControl            AEMCommandType = 0x0019
	AEMStartStreaming        AEMCommandType = 0x0022
	AEMStopStreaming         AEMCommandType = 0x0023
	AEMRegisterUnsolicited   AEMCommandType = 0x0024
	AEMDeregisterUnsolicited AEMCommandType = 0x0025
	AEMIdentifyNotification  AEMCommandType = 0x0026
	AEMGetAVBInfo            AEMCommandType = 0x0027
	AEMGetASPath             AEMCommandType = 0x0028
	AEMGetCounters           AEMCommandType = 0x0029
	AEMReboot                AEMCommandType = 0x002A

	// AEMGetDynamicInfo is the Milan extension command (2021 only).
	AEMGetDynamicInfo AEMCommandType = 0x004B
)

// String returns the AEM command type name.
func (t AEMCommandType) String() string {
	switch t {
	case AEMAcquireEntity:
		return "ACQUIRE_ENTITY"
	case AEMLockEntity:
		return "LOCK_ENTITY"
	case AEMEntityAvailable:
		return "ENTITY_AVAILABLE"
	case AEMControllerAvailable:
		return "CONTROLLER_AVAILABLE"
	case AEMReadDescriptor:
		return "READ_DESCRIPTOR"
	case AEMWriteDescriptor:
		return "WRITE_DESCRIPTOR"
	case AEMSetConfiguration:
		return "SET_CONFIGURATION"
	case AEMGetConfiguration:
		return "GET_CONFIGURATION"
	case AEMSetStreamFormat:
		return "SET_STREAM_FORMAT"
	case AEMGetStreamFormat:
		return "GET_STREAM_FORMAT"
	case AEMSetControl:
		return "SET_CONTROL"
	case AEMGetControl:
		return "GET_CONTROL"
	case AEMStartStreaming:
		return "START_STREAMING"
	case AEMStopStreaming:
		return "STOP_STREAMING"
	case AEMGetCounters:
		return "GET_COUNTERS"
	case AEMGetDynamicInfo:
		return "GET_DYNAMIC_INFO"
	default:
		return "UNKNOWN"
	}
}

// DescriptorType identifies an AEM descriptor (IEEE 1722.1 Table 7.1).
type DescriptorType uint16

const (
	DescriptorEntity           DescriptorType = 0x0000
	DescriptorConfiguration    DescriptorType = 0x0001
	DescriptorAudioUnit        DescriptorType = 0x0002
	DescriptorVideoUnit        DescriptorType = 0x0003
	DescriptorSensorUnit       DescriptorType = 0x0004
	DescriptorStreamInput      DescriptorType = 0x0005
	DescriptorStreamOutput     DescriptorType = 0x0006
	DescriptorJackInput        DescriptorType = 0x0007
	DescriptorJackOutput       DescriptorType = 0x0008
	DescriptorAVBInterface     DescriptorType = 0x0009
	DescriptorClockSource      DescriptorType = 0x000A
	DescriptorMemoryObject     DescriptorType = 0x000B
	DescriptorLocale           DescriptorType = 0x000C
	DescriptorStrings          DescriptorType = 0x000D
	DescriptorStreamPortInput  DescriptorType = 0x000E
	DescriptorStreamPortOutput DescriptorType = 0x000F
	DescriptorAudioCluster     DescriptorType = 0x0014
	DescriptorAudioMap         DescriptorType = 0x0017
	DescriptorControl          DescriptorType = 0x001A
	DescriptorSignalSelector   DescriptorType = 0x001B
	DescriptorMixer            DescriptorType = 0x001C
	DescriptorMatrix           DescriptorType = 0x001D
	DescriptorClockDomainOld   DescriptorType = 0x001F // 2013 assignment
	DescriptorClockDomain      DescriptorType = 0x0024 // 2021 assignment
	DescriptorControlBlock     DescriptorType = 0x0025
	DescriptorInvalid          DescriptorType = 0xFFFF
)

// String returns the descriptor type name (canonical 2021 assignments).
func (t DescriptorType) String() string {
	switch t {
	case DescriptorEntity:
		return "ENTITY"
	case DescriptorConfiguration:
		return "CONFIGURATION"
	case DescriptorAudioUnit:
		return "AUDIO_UNIT"
	case DescriptorStreamInput:
		return "STREAM_INPUT"
	case DescriptorStreamOutput:
		return "STREAM_OUTPUT"
	case DescriptorJackInput:
		return "JACK_INPUT"
	case DescriptorJackOutput:
		return "JACK_OUTPUT"
	case DescriptorAVBInterface:
		return "AVB_INTERFACE"
	case DescriptorClockSource:
		return "CLOCK_SOURCE"
	case DescriptorLocale:
		return "LOCALE"
	case DescriptorStrings:
		return "STRINGS"
	case DescriptorAudioCluster:
		return "AUDIO_CLUSTER"
	case DescriptorAudioMap:
		return "AUDIO_MAP"
	case DescriptorControl:
		return "CONTROL"
	case DescriptorClockDomain:
		return "CLOCK_DOMAIN"
	case DescriptorControlBlock:
		return "CONTROL_BLOCK"
	case DescriptorInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

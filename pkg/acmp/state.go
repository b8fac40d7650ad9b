package acmp

import (
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ConnState is the lifecycle state of one listener stream binding.
type ConnState uint8

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// ConnKey addresses a connection by its listener stream sink. A listener
// stream can be fed by at most one talker, so the sink is the natural
// table key.
type ConnKey struct {
	ListenerEntityID wire.EntityID
	ListenerUniqueID uint16
}

// Connection is a snapshot of one connection table row.
type Connection struct {
	ConnKey

	State ConnState

	TalkerEntityID wire.EntityID
	TalkerUniqueID uint16

	StreamID        wire.StreamID
	StreamDestMAC   wire.MacAddress
	StreamVlanID    uint16
	Flags           uint16
	ConnectionCount uint16
}

// Command timeouts (IEEE 1722.1 Table 8.4). Every command is
// retransmitted once before the attempt fails.
const (
	connectTxTimeout    = 2000 * time.Millisecond
	disconnectTxTimeout = 200 * time.Millisecond
	getTxStateTimeout   = 200 * time.Millisecond
	connectRxTimeout    = 4500 * time.Millisecond
	disconnectRxTimeout = 500 * time.Millisecond
	getRxStateTimeout   = 200 * time.Millisecond

	commandRetries = 1
)

func timeoutFor(t wire.ACMPMessageType) time.Duration {
	switch t {
	case wire.ACMPConnectTxCommand:
		return connectTxTimeout
	case wire.ACMPDisconnectTxCommand:
		return disconnectTxTimeout
	case wire.ACMPGetTxStateCommand, wire.ACMPGetTxConnectionCommand:
		return getTxStateTimeout
	case wire.ACMPConnectRxCommand:
		return connectRxTimeout
	case wire.ACMPDisconnectRxCommand:
		return disconnectRxTimeout
	case wire.ACMPGetRxStateCommand:
		return getRxStateTimeout
	default:
		return connectTxTimeout
	}
}

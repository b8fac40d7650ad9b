// Package acmp implements the AVDECC Connection Management Protocol
// (IEEE 1722.1 clause 8).
//
// The Engine is the controller side. It drives stream connections
// through a per-connection state machine (IDLE, CONNECTING, CONNECTED,
// DISCONNECTING) and guarantees that a connection is never observably
// half-established: when the talker leg succeeds but the listener leg
// fails, a compensating DISCONNECT_TX tears the talker binding down
// before the caller sees the failure.
//
// The Responder is the entity side. It answers CONNECT/DISCONNECT and
// state queries for locally served talkers and listeners against the
// entity's stream descriptors.
//
// Like the other engines, neither type runs goroutines of its own. The
// service worker feeds inbound frames to OnFrame and calls Sweep
// periodically for retransmits and timeouts; callers of Connect and
// Disconnect park on a channel until the worker resolves the attempt.
package acmp

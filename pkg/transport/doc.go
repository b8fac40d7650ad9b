// Package transport provides the frame transport layer for AVDECC.
//
// AVDECC control PDUs travel in raw Ethernet frames (ethertype 0x22F0),
// multicast for discovery and unicast for directed commands. This package
// does not open sockets itself; it defines the narrow interfaces the
// protocol engines speak and ships an in-memory implementation.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   ADP / AECP / ACMP PDUs       │
//	├────────────────────────────────┤
//	│      AVTP control header       │
//	├────────────────────────────────┤
//	│   Ethernet (0x22F0, L2 only)   │
//	└────────────────────────────────┘
//
// # Components
//
//   - FrameSender is the outbound half: engines hand it a destination MAC
//     and an encoded PDU.
//   - Dispatcher is the inbound half: it peeks the AVTP subtype and routes
//     the frame to the registered ADP, AECP, or ACMP handler. Malformed
//     frames are counted and dropped without touching engine state.
//   - Pipe is an in-memory broadcast segment connecting any number of
//     endpoints, used by tests and the simulated-entity command.
//
// A real L2 implementation (AF_PACKET, pcap) satisfies FrameSender and
// feeds the Dispatcher the same way the Pipe does.
package transport

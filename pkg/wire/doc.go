// Package wire defines the IEEE 1722.1 AVDECC wire format types.
//
// AVDECC messages ride inside IEEE 1722 control AVTPDUs identified by
// subtype: ADP (discovery), AECP (enumeration and control) and ACMP
// (connection management). All multi-octet fields are network byte order
// and every PDU has a fixed layout, so encoding is done directly against
// octet offsets rather than through a reflective codec. Byte-exactness is
// a compliance requirement: Marshal followed by Unmarshal reproduces every
// field, and reserved octets are zeroed on encode and ignored on decode.
//
// # PDU Types
//
//   - ADPDU: entity advertisement/departure/discovery (68 octets)
//   - AECPDU: command/response with a command-specific payload
//   - ACMPDU: stream connection commands and responses (56 octets)
//
// # Protocol Generations
//
// The 2013 and 2021 revisions of IEEE 1722.1 share PDU sizes but differ in
// capability bit assignments and in the meaning of two ADPDU octets. This
// package encodes the canonical (2021) representation; the compat package
// translates per-entity to and from the 2013 layout.
package wire

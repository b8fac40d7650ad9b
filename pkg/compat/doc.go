// Package compat bridges the 2013 and 2021 revisions of IEEE 1722.1.
//
// The two revisions share PDU sizes and field offsets but disagree on the
// bit assignments inside the capability words (2013 numbers flags from bit
// 0 upward, 2021 from bit 31 downward), on two ADPDU octets (reserved in
// 2013, current_configuration_index in 2021) and on descriptor type codes
// in the 0x001E..0x0024 range.
//
// Each discovered entity is classified once as Gen2013 or Gen2021 from its
// first advertisement and the classification is sticky until the entity
// departs, so ambiguous capability bits cannot make an entity flip
// generations mid-lifetime. All encode and decode paths for a given entity
// go through the Codec selected by its generation; the rest of the engine
// only ever sees the canonical (2021) representation.
package compat

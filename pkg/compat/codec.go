package compat

import (
	"errors"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ErrNotSupported is returned when a descriptor type or field has no
// representation in the target generation. Callers surface it to their
// peers as a NOT_SUPPORTED status rather than a decode failure.
var ErrNotSupported = errors.New("not supported in this protocol generation")

// Codec encodes and decodes PDUs for one protocol generation. The zero
// value is the 2013 codec.
type Codec struct {
	gen Generation
}

// ForGeneration returns the codec for a generation.
func ForGeneration(g Generation) Codec {
	return Codec{gen: g}
}

// Generation returns the codec's generation.
func (c Codec) Generation() Generation {
	return c.gen
}

// EncodeADPDU encodes a canonical ADPDU in the codec's wire layout. For
// 2013 targets the capability words are rewritten to the legacy bit
// assignments and the configuration index octets stay reserved (zero).
func (c Codec) EncodeADPDU(d *wire.ADPDU) ([]byte, error) {
	if c.gen == Gen2021 {
		return d.Marshal()
	}
	legacy := *d
	legacy.EntityCapabilities = wire.EntityCapabilities(EntityCapsTo2013(d.EntityCapabilities))
	legacy.TalkerCapabilities = wire.TalkerCapabilities(TalkerCapsTo2013(d.TalkerCapabilities))
	legacy.ListenerCapabilities = wire.ListenerCapabilities(ListenerCapsTo2013(d.ListenerCapabilities))
	legacy.CurrentConfigurationIndex = 0
	return legacy.Marshal()
}

// DecodeADPDU decodes a wire ADPDU into canonical form. For 2013 sources
// the capability words are translated and the configuration index octets
// are treated as reserved.
func (c Codec) DecodeADPDU(data []byte) (*wire.ADPDU, error) {
	d, err := wire.UnmarshalADPDU(data)
	if err != nil {
		return nil, err
	}
	if c.gen == Gen2021 {
		return d, nil
	}
	d.EntityCapabilities = EntityCapsFrom2013(uint32(d.EntityCapabilities))
	d.TalkerCapabilities = TalkerCapsFrom2013(uint16(d.TalkerCapabilities))
	d.ListenerCapabilities = ListenerCapsFrom2013(uint16(d.ListenerCapabilities))
	d.CurrentConfigurationIndex = 0
	return d, nil
}

// Descriptor type codes in the 0x001E..0x0025 range were renumbered
// between revisions; codes below the range are identical in both.
const descRemapFloor = 0x001E

var descTo2013 = map[wire.DescriptorType]uint16{
	// MATRIX_SIGNAL (canonical 0x001E) does not exist in 2013.
	0x001F: 0x0020, // SIGNAL_SPLITTER
	0x0020: 0x0021, // SIGNAL_COMBINER
	0x0021: 0x0022, // SIGNAL_DEMULTIPLEXER
	0x0022: 0x0023, // SIGNAL_MULTIPLEXER
	0x0023: 0x0024, // SIGNAL_TRANSCODER
	wire.DescriptorClockDomain:  0x001F,
	wire.DescriptorControlBlock: 0x0025,
}

var descFrom2013 = map[uint16]wire.DescriptorType{
	// LOCALE_SPECIFIC (2013 0x001E) has no canonical equivalent.
	0x001F: wire.DescriptorClockDomain,
	0x0020: 0x001F, // SIGNAL_SPLITTER
	0x0021: 0x0020, // SIGNAL_COMBINER
	0x0022: 0x0021, // SIGNAL_DEMULTIPLEXER
	0x0023: 0x0022, // SIGNAL_MULTIPLEXER
	0x0024: 0x0023, // SIGNAL_TRANSCODER
	0x0025: wire.DescriptorControlBlock,
}

// DescriptorTypeToWire converts a canonical descriptor type to the
// codec's wire code. Types the generation does not define return
// ErrNotSupported.
func (c Codec) DescriptorTypeToWire(t wire.DescriptorType) (uint16, error) {
	if c.gen == Gen2021 || uint16(t) < descRemapFloor {
		return uint16(t), nil
	}
	raw, ok := descTo2013[t]
	if !ok {
		return 0, fmt.Errorf("descriptor type %s: %w", t, ErrNotSupported)
	}
	return raw, nil
}

// DescriptorTypeFromWire converts a wire descriptor code to canonical.
// Codes the canonical model does not define return ErrNotSupported.
func (c Codec) DescriptorTypeFromWire(raw uint16) (wire.DescriptorType, error) {
	if c.gen == Gen2021 || raw < descRemapFloor {
		return wire.DescriptorType(raw), nil
	}
	t, ok := descFrom2013[raw]
	if !ok {
		return wire.DescriptorInvalid, fmt.Errorf("descriptor code 0x%04X: %w", raw, ErrNotSupported)
	}
	return t, nil
}

// SupportsCommand reports whether the generation defines an AEM command.
// 2013 entities predate the Milan dynamic-info extension.
func (c Codec) SupportsCommand(cmd wire.AEMCommandType) bool {
	if c.gen == Gen2021 {
		return true
	}
	return cmd != wire.AEMGetDynamicInfo
}

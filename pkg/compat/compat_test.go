package compat

import (
	"errors"
	"testing"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

func TestClassifyADPDU(t *testing.T) {
	tests := []struct {
		name string
		pdu  wire.ADPDU
		want Generation
	}{
		{
			name: "2021 entity caps in high bits",
			pdu:  wire.ADPDU{EntityCapabilities: wire.EntityCapAEMSupported | wire.EntityCapGPTPSupported},
			want: Gen2021,
		},
		{
			name: "2021 talker implemented bit",
			pdu:  wire.ADPDU{TalkerCapabilities: 0x8000},
			want: Gen2021,
		},
		{
			name: "2021 configuration index",
			pdu:  wire.ADPDU{CurrentConfigurationIndex: 2},
			want: Gen2021,
		},
		{
			name: "2013 low-bit caps",
			pdu:  wire.ADPDU{EntityCapabilities: 0x00000408, TalkerCapabilities: 0x0401},
			want: Gen2013,
		},
		{
			name: "no capabilities at all",
			pdu:  wire.ADPDU{},
			want: Gen2013,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyADPDU(&tt.pdu); got != tt.want {
				t.Errorf("ClassifyADPDU = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackerSticky(t *testing.T) {
	tr := NewTracker()

	// First advertisement looks 2013.
	first := &wire.ADPDU{EntityID: 1, EntityCapabilities: 0x00000408}
	if g := tr.Observe(first); g != Gen2013 {
		t.Fatalf("initial classification = %v, want 2013", g)
	}

	// A later ambiguous advertisement with 2021-looking bits must not
	// flip the classification.
	second := &wire.ADPDU{EntityID: 1, EntityCapabilities: wire.EntityCapAEMSupported}
	if g := tr.Observe(second); g != Gen2013 {
		t.Errorf("re-observation flipped generation to %v", g)
	}

	// After departure, re-detection is allowed.
	tr.Forget(1)
	if g := tr.Observe(second); g != Gen2021 {
		t.Errorf("post-departure classification = %v, want 2021", g)
	}
}

func TestEntityCapsRemapRoundTrip(t *testing.T) {
	caps := wire.EntityCapAEMSupported | wire.EntityCapGPTPSupported |
		wire.EntityCapClassASupported | wire.EntityCapAEMPersistentAcquire |
		wire.EntityCapEntityNotReady
	raw := EntityCapsTo2013(caps)
	if raw != 0x00022508 {
		t.Errorf("EntityCapsTo2013 = 0x%08X, want 0x00022508", raw)
	}
	if got := EntityCapsFrom2013(raw); got != caps {
		t.Errorf("round trip = %v, want %v", got, caps)
	}
}

func TestEntityCapsTo2013DropsNewFlags(t *testing.T) {
	caps := wire.EntityCapSupportsUDPv4ATDECC | wire.EntityCapConfigurationIndexValid
	if raw := EntityCapsTo2013(caps); raw != 0 {
		t.Errorf("2021-only flags should drop, got 0x%08X", raw)
	}
}

func TestStreamCapsRemap(t *testing.T) {
	tc := wire.TalkerCapImplemented | wire.TalkerCapAudioSource
	if raw := TalkerCapsTo2013(tc); raw != 0x0401 {
		t.Errorf("TalkerCapsTo2013 = 0x%04X, want 0x0401", raw)
	}
	if got := TalkerCapsFrom2013(0x0401); got != tc {
		t.Errorf("TalkerCapsFrom2013 = 0x%04X, want 0x%04X", uint16(got), uint16(tc))
	}

	lc := wire.ListenerCapImplemented | wire.ListenerCapAudioSink
	if raw := ListenerCapsTo2013(lc); raw != 0x0401 {
		t.Errorf("ListenerCapsTo2013 = 0x%04X, want 0x0401", raw)
	}
	if got := ListenerCapsFrom2013(0x0401); got != lc {
		t.Errorf("ListenerCapsFrom2013 = 0x%04X, want 0x%04X", uint16(got), uint16(lc))
	}
}

func TestCodecADPDURoundTripPerGeneration(t *testing.T) {
	canonical := &wire.ADPDU{
		MessageType:          wire.ADPEntityAvailable,
		ValidTime:            5,
		EntityID:             0x11,
		EntityCapabilities:   wire.EntityCapAEMSupported | wire.EntityCapGPTPSupported,
		TalkerStreamSources:  2,
		TalkerCapabilities:   wire.TalkerCapImplemented | wire.TalkerCapAudioSource,
		ListenerStreamSinks:  2,
		ListenerCapabilities: wire.ListenerCapImplemented | wire.ListenerCapAudioSink,
		AvailableIndex:       3,
	}

	for _, gen := range []Generation{Gen2013, Gen2021} {
		t.Run(gen.String(), func(t *testing.T) {
			codec := ForGeneration(gen)
			data, err := codec.EncodeADPDU(canonical)
			if err != nil {
				t.Fatalf("EncodeADPDU failed: %v", err)
			}
			got, err := codec.DecodeADPDU(data)
			if err != nil {
				t.Fatalf("DecodeADPDU failed: %v", err)
			}
			if got.EntityCapabilities != canonical.EntityCapabilities ||
				got.TalkerCapabilities != canonical.TalkerCapabilities ||
				got.ListenerCapabilities != canonical.ListenerCapabilities {
				t.Errorf("capabilities not canonical after round trip: %+v", got)
			}
		})
	}
}

func TestCodec2013WireUsesLegacyBits(t *testing.T) {
	canonical := &wire.ADPDU{
		MessageType:        wire.ADPEntityAvailable,
		ValidTime:          5,
		EntityCapabilities: wire.EntityCapAEMSupported,
	}
	data, err := ForGeneration(Gen2013).EncodeADPDU(canonical)
	if err != nil {
		t.Fatalf("EncodeADPDU failed: %v", err)
	}
	raw, err := wire.UnmarshalADPDU(data)
	if err != nil {
		t.Fatalf("UnmarshalADPDU failed: %v", err)
	}
	if uint32(raw.EntityCapabilities) != 0x00000008 {
		t.Errorf("2013 wire caps = 0x%08X, want 0x00000008", uint32(raw.EntityCapabilities))
	}
}

func TestDescriptorTypeRemap(t *testing.T) {
	c13 := ForGeneration(Gen2013)
	c21 := ForGeneration(Gen2021)

	// CLOCK_DOMAIN moved from 0x001F (2013) to 0x0024 (2021).
	raw, err := c13.DescriptorTypeToWire(wire.DescriptorClockDomain)
	if err != nil {
		t.Fatalf("DescriptorTypeToWire failed: %v", err)
	}
	if raw != 0x001F {
		t.Errorf("2013 CLOCK_DOMAIN code = 0x%04X, want 0x001F", raw)
	}
	back, err := c13.DescriptorTypeFromWire(raw)
	if err != nil {
		t.Fatalf("DescriptorTypeFromWire failed: %v", err)
	}
	if back != wire.DescriptorClockDomain {
		t.Errorf("round trip = %v, want CLOCK_DOMAIN", back)
	}

	// Low-range codes are identical in both generations.
	for _, c := range []Codec{c13, c21} {
		raw, err := c.DescriptorTypeToWire(wire.DescriptorStreamInput)
		if err != nil || raw != uint16(wire.DescriptorStreamInput) {
			t.Errorf("gen %s STREAM_INPUT = 0x%04X, err %v", c.Generation(), raw, err)
		}
	}

	// MATRIX_SIGNAL has no 2013 representation.
	if _, err := c13.DescriptorTypeToWire(0x001E); !errors.Is(err, ErrNotSupported) {
		t.Errorf("MATRIX_SIGNAL in 2013 should be ErrNotSupported, got %v", err)
	}
}

func TestSupportsCommand(t *testing.T) {
	if ForGeneration(Gen2013).SupportsCommand(wire.AEMGetDynamicInfo) {
		t.Error("2013 should not support GET_DYNAMIC_INFO")
	}
	if !ForGeneration(Gen2021).SupportsCommand(wire.AEMGetDynamicInfo) {
		t.Error("2021 should support GET_DYNAMIC_INFO")
	}
	if !ForGeneration(Gen2013).SupportsCommand(wire.AEMReadDescriptor) {
		t.Error("2013 should support READ_DESCRIPTOR")
	}
}

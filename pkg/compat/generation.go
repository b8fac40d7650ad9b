package compat

import (
	"sync"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Generation identifies the IEEE 1722.1 revision an entity speaks.
type Generation uint8

const (
	// Gen2013 is IEEE 1722.1-2013.
	Gen2013 Generation = 0

	// Gen2021 is IEEE 1722.1-2021 (ATDECC), including Milan extensions.
	Gen2021 Generation = 1
)

// String returns the generation name.
func (g Generation) String() string {
	switch g {
	case Gen2013:
		return "2013"
	case Gen2021:
		return "2021"
	default:
		return "UNKNOWN"
	}
}

// gen2021EntityCapMask covers entity capability bits 18..31. The 2013
// revision defines bits 0..17 only, so any of these set in a raw
// advertisement word proves the 2021 layout.
const gen2021EntityCapMask = 0xFFFC0000

// gen2021StreamCapMask is the IMPLEMENTED bit in 2021 talker/listener
// words; 2013 defines no flag above bit 11 and keeps IMPLEMENTED at bit 0.
const gen2021StreamCapMask = 0x8000

// ClassifyADPDU determines the protocol generation from a raw (undecoded
// capability words) ENTITY_AVAILABLE advertisement. The discriminators are
// bit positions the 2013 revision leaves undefined plus the 2021-only
// current_configuration_index field; a PDU matching neither is 2013.
func ClassifyADPDU(d *wire.ADPDU) Generation {
	if uint32(d.EntityCapabilities)&gen2021EntityCapMask != 0 {
		return Gen2021
	}
	if uint16(d.TalkerCapabilities)&gen2021StreamCapMask != 0 ||
		uint16(d.ListenerCapabilities)&gen2021StreamCapMask != 0 {
		return Gen2021
	}
	if d.CurrentConfigurationIndex != 0 {
		return Gen2021
	}
	return Gen2013
}

// Tracker records the generation of each discovered entity. A
// classification is established on first sight and held until Forget;
// re-advertisements cannot change it.
type Tracker struct {
	mu          sync.RWMutex
	generations map[wire.EntityID]Generation
}

// NewTracker creates an empty generation tracker.
func NewTracker() *Tracker {
	return &Tracker{generations: make(map[wire.EntityID]Generation)}
}

// Observe classifies the advertisement's sender if not yet known and
// returns the entity's (possibly previously established) generation.
func (t *Tracker) Observe(d *wire.ADPDU) Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.generations[d.EntityID]; ok {
		return g
	}
	g := ClassifyADPDU(d)
	t.generations[d.EntityID] = g
	return g
}

// Get returns the tracked generation for an entity. Unknown entities
// report Gen2013 and false.
func (t *Tracker) Get(id wire.EntityID) (Generation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.generations[id]
	return g, ok
}

// Forget drops the classification, forcing re-detection on rediscovery.
// Called when an entity departs or times out.
func (t *Tracker) Forget(id wire.EntityID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.generations, id)
}

package model

import (
	"sort"
	"sync"
	"time"

	"github.com/avb-protocol/avdecc-go/pkg/compat"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Entity is a snapshot of a discovered remote entity. Registry methods
// return copies, so callers may hold one across lock boundaries.
type Entity struct {
	EntityID      wire.EntityID
	EntityModelID uint64

	Capabilities           wire.EntityCapabilities
	TalkerStreamSources    uint16
	TalkerCapabilities     wire.TalkerCapabilities
	ListenerStreamSinks    uint16
	ListenerCapabilities   wire.ListenerCapabilities
	ControllerCapabilities wire.ControllerCapabilities

	Generation compat.Generation

	AvailableIndex            uint32
	ValidTime                 uint8
	GPTPGrandmasterID         uint64
	GPTPDomainNumber          uint8
	CurrentConfigurationIndex uint16
	IdentifyControlIndex      uint16
	InterfaceIndex            uint16
	AssociationID             wire.EntityID

	SourceMAC wire.MacAddress

	// LastSeen is the arrival time of the latest advertisement; Deadline
	// is LastSeen plus the advertised validity period.
	LastSeen time.Time
	Deadline time.Time
}

// UpsertResult classifies what an advertisement did to the registry.
type UpsertResult int

const (
	EntityUnchanged UpsertResult = iota
	EntityAdded
	EntityUpdated
	// EntityRestarted means available_index went backwards, which only
	// happens when the remote device rebooted. Cached state about the
	// entity is stale.
	EntityRestarted
)

func (r UpsertResult) String() string {
	switch r {
	case EntityUnchanged:
		return "unchanged"
	case EntityAdded:
		return "added"
	case EntityUpdated:
		return "updated"
	case EntityRestarted:
		return "restarted"
	default:
		return "unknown"
	}
}

// Registry tracks discovered remote entities and their cached descriptors.
type Registry struct {
	mu       sync.RWMutex
	entities map[wire.EntityID]*Entity

	// descriptors caches remotely read descriptor images, invalidated on
	// departure, restart, or configuration change.
	descriptors map[wire.EntityID]map[DescriptorKey]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities:    make(map[wire.EntityID]*Entity),
		descriptors: make(map[wire.EntityID]map[DescriptorKey]*Descriptor),
	}
}

// Upsert records an ENTITY_AVAILABLE advertisement. The caller passes the
// canonical-form ADPDU (compat decoding already applied), the sticky
// generation, and the frame source MAC. The returned result tells the
// discovery engine what changed; on EntityRestarted or a configuration
// change the descriptor cache for the entity is dropped.
func (r *Registry) Upsert(d *wire.ADPDU, gen compat.Generation, src wire.MacAddress, now time.Time) UpsertResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clamp valid_time to the wire field's bounds; a zero would make the
	// entry expire on the next sweep the moment it was added.
	validTime := d.ValidTime
	if validTime < wire.MinValidTime {
		validTime = wire.MinValidTime
	}
	if validTime > wire.MaxValidTime {
		validTime = wire.MaxValidTime
	}
	deadline := now.Add(time.Duration(validTime) * 2 * time.Second)

	prev, known := r.entities[d.EntityID]
	result := EntityAdded
	if known {
		switch {
		case d.AvailableIndex < prev.AvailableIndex:
			result = EntityRestarted
			delete(r.descriptors, d.EntityID)
		case d.AvailableIndex > prev.AvailableIndex:
			result = EntityUpdated
		default:
			result = EntityUnchanged
		}
		if d.CurrentConfigurationIndex != prev.CurrentConfigurationIndex {
			delete(r.descriptors, d.EntityID)
			if result == EntityUnchanged {
				result = EntityUpdated
			}
		}
	}

	r.entities[d.EntityID] = &Entity{
		EntityID:                  d.EntityID,
		EntityModelID:             d.EntityModelID,
		Capabilities:              d.EntityCapabilities,
		TalkerStreamSources:       d.TalkerStreamSources,
		TalkerCapabilities:        d.TalkerCapabilities,
		ListenerStreamSinks:       d.ListenerStreamSinks,
		ListenerCapabilities:      d.ListenerCapabilities,
		ControllerCapabilities:    d.ControllerCapabilities,
		Generation:                gen,
		AvailableIndex:            d.AvailableIndex,
		ValidTime:                 validTime,
		GPTPGrandmasterID:         d.GPTPGrandmasterID,
		GPTPDomainNumber:          d.GPTPDomainNumber,
		CurrentConfigurationIndex: d.CurrentConfigurationIndex,
		IdentifyControlIndex:      d.IdentifyControlIndex,
		InterfaceIndex:            d.InterfaceIndex,
		AssociationID:             d.AssociationID,
		SourceMAC:                 src,
		LastSeen:                  now,
		Deadline:                  deadline,
	}
	return result
}

// Get returns a copy of the entity record, if known.
func (r *Registry) Get(id wire.EntityID) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// List returns copies of all known entities, ordered by entity ID.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Remove drops an entity and its cached descriptors. Returns whether it
// was present.
func (r *Registry) Remove(id wire.EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entities[id]
	delete(r.entities, id)
	delete(r.descriptors, id)
	return ok
}

// ExpiredBefore returns copies of entities whose validity deadline has
// passed. The liveness sweep removes them afterwards via Remove.
func (r *Registry) ExpiredBefore(now time.Time) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entity
	for _, e := range r.entities {
		if e.Deadline.Before(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// CacheDescriptor stores a descriptor image read from a remote entity.
func (r *Registry) CacheDescriptor(id wire.EntityID, d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; !ok {
		return // never cache for unknown entities
	}
	m := r.descriptors[id]
	if m == nil {
		m = make(map[DescriptorKey]*Descriptor)
		r.descriptors[id] = m
	}
	m[d.Key()] = d
}

// CachedDescriptor returns a previously read descriptor, if still valid.
func (r *Registry) CachedDescriptor(id wire.EntityID, t wire.DescriptorType, index uint16) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[id][DescriptorKey{Type: t, Index: index}]
	return d, ok
}

// Len returns the number of known entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Local entity errors.
var (
	ErrAcquiredByOther = errors.New("entity acquired by another controller")
	ErrLockedByOther   = errors.New("entity locked by another controller")
	ErrNotHolder       = errors.New("caller does not hold the entity")
)

// LocalEntity is an entity implemented by this application. Its model is
// exposed read-only; mutation happens only through the explicit command
// paths (SetConfiguration, SetControlValue, SetStreaming), which the AECP
// responder drives. Each successful mutation increments available_index
// so peers can tell their cached view is stale.
type LocalEntity struct {
	mu sync.RWMutex

	EntityID      wire.EntityID
	EntityModelID uint64

	Capabilities           wire.EntityCapabilities
	TalkerCapabilities     wire.TalkerCapabilities
	ListenerCapabilities   wire.ListenerCapabilities
	ControllerCapabilities wire.ControllerCapabilities

	GPTPGrandmasterID uint64
	GPTPDomainNumber  uint8
	AssociationID     wire.EntityID

	// ValidTime is the advertised validity period in 2-second units.
	ValidTime uint8

	configurations map[uint16]*Configuration
	currentConfig  uint16

	availableIndex uint32

	// Acquisition and lock are orthogonal: acquisition grants write
	// access, lock grants temporary exclusivity for configuration
	// changes. At most one holder of each.
	acquiredBy        wire.EntityID
	acquirePersistent bool
	lockedBy          wire.EntityID

	// controlValues holds the current value blob per CONTROL descriptor
	// index in the active configuration.
	controlValues map[uint16][]byte

	// streaming tracks START_STREAMING state per stream descriptor.
	streaming map[DescriptorKey]bool
}

// NewLocalEntity creates a local entity with a single empty configuration 0.
func NewLocalEntity(entityID wire.EntityID, modelID uint64) *LocalEntity {
	e := &LocalEntity{
		EntityID:       entityID,
		EntityModelID:  modelID,
		ValidTime:      5, // 10 seconds
		configurations: make(map[uint16]*Configuration),
		controlValues:  make(map[uint16][]byte),
		streaming:      make(map[DescriptorKey]bool),
	}
	e.configurations[0] = NewConfiguration(0, "default")
	return e
}

// AddConfiguration registers a configuration subtree.
func (e *LocalEntity) AddConfiguration(c *Configuration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configurations[c.Index] = c
}

// Configuration returns the configuration at the given index.
func (e *LocalEntity) Configuration(index uint16) (*Configuration, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.configurations[index]
	return c, ok
}

// CurrentConfiguration returns the active configuration index.
func (e *LocalEntity) CurrentConfiguration() uint16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentConfig
}

// SetConfiguration atomically switches the active descriptor subtree.
// Streaming state and control values belong to the visible subtree and
// are reset by the switch.
func (e *LocalEntity) SetConfiguration(index uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.configurations[index]; !ok {
		return fmt.Errorf("%w: configuration %d", ErrNoSuchConfiguration, index)
	}
	if index != e.currentConfig {
		e.currentConfig = index
		e.controlValues = make(map[uint16][]byte)
		e.streaming = make(map[DescriptorKey]bool)
		e.availableIndex++
	}
	return nil
}

// Descriptor looks up a descriptor in the given configuration; index
// wire.DescriptorEntity/0 style addressing. A configuration index equal
// to the active one (or zero per convention) resolves in the active
// subtree.
func (e *LocalEntity) Descriptor(configIndex uint16, t wire.DescriptorType, index uint16) (*Descriptor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg, ok := e.configurations[configIndex]
	if !ok {
		return nil, fmt.Errorf("%w: configuration %d", ErrNoSuchConfiguration, configIndex)
	}
	d, ok := cfg.Descriptor(t, index)
	if !ok {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNoSuchDescriptor, t, index)
	}
	return d, nil
}

// ActiveDescriptor looks up a descriptor in the active configuration.
func (e *LocalEntity) ActiveDescriptor(t wire.DescriptorType, index uint16) (*Descriptor, error) {
	return e.Descriptor(e.CurrentConfiguration(), t, index)
}

// Acquire grants exclusive acquisition to a controller. Re-acquisition by
// the current holder succeeds and may upgrade persistence. A conflicting
// request returns ErrAcquiredByOther together with the holder's ID.
func (e *LocalEntity) Acquire(controller wire.EntityID, persistent bool) (wire.EntityID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquiredBy != 0 && e.acquiredBy != controller {
		return e.acquiredBy, ErrAcquiredByOther
	}
	e.acquiredBy = controller
	e.acquirePersistent = persistent
	return controller, nil
}

// ReleaseAcquire releases acquisition. Only the holder may release.
func (e *LocalEntity) ReleaseAcquire(controller wire.EntityID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquiredBy == 0 {
		return nil // already free, idempotent
	}
	if e.acquiredBy != controller {
		return ErrNotHolder
	}
	e.acquiredBy = 0
	e.acquirePersistent = false
	return nil
}

// AcquiredBy returns the acquiring controller and persistence, zero if free.
func (e *LocalEntity) AcquiredBy() (wire.EntityID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acquiredBy, e.acquirePersistent
}

// Lock grants the configuration lock to a controller. A conflicting
// request returns ErrLockedByOther together with the holder's ID.
func (e *LocalEntity) Lock(controller wire.EntityID) (wire.EntityID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lockedBy != 0 && e.lockedBy != controller {
		return e.lockedBy, ErrLockedByOther
	}
	e.lockedBy = controller
	return controller, nil
}

// Unlock releases the lock. Only the holder may unlock.
func (e *LocalEntity) Unlock(controller wire.EntityID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lockedBy == 0 {
		return nil
	}
	if e.lockedBy != controller {
		return ErrNotHolder
	}
	e.lockedBy = 0
	return nil
}

// LockedBy returns the locking controller, zero if unlocked.
func (e *LocalEntity) LockedBy() wire.EntityID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lockedBy
}

// DropController releases any acquisition or lock held by a departed
// controller. Persistent acquisitions survive connection loss but not an
// observed departure.
func (e *LocalEntity) DropController(controller wire.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquiredBy == controller {
		e.acquiredBy = 0
		e.acquirePersistent = false
	}
	if e.lockedBy == controller {
		e.lockedBy = 0
	}
}

// DropNonPersistent releases a non-persistent acquisition, used when the
// holder's connection is lost without an explicit departure.
func (e *LocalEntity) DropNonPersistent(controller wire.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquiredBy == controller && !e.acquirePersistent {
		e.acquiredBy = 0
	}
}

// checkWriteAccess enforces acquisition and lock against a mutating
// controller. Callers hold e.mu.
func (e *LocalEntity) checkWriteAccess(controller wire.EntityID) error {
	if e.acquiredBy != 0 && e.acquiredBy != controller {
		return ErrAcquiredByOther
	}
	if e.lockedBy != 0 && e.lockedBy != controller {
		return ErrLockedByOther
	}
	return nil
}

// ControlValue returns the current value blob of a CONTROL descriptor.
func (e *LocalEntity) ControlValue(index uint16) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg := e.configurations[e.currentConfig]
	if _, ok := cfg.Descriptor(wire.DescriptorControl, index); !ok {
		return nil, fmt.Errorf("%w: CONTROL[%d]", ErrNoSuchDescriptor, index)
	}
	v := e.controlValues[index]
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// SetControlValue sets a CONTROL descriptor's value on behalf of a
// controller, honoring acquisition and lock.
func (e *LocalEntity) SetControlValue(controller wire.EntityID, index uint16, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.configurations[e.currentConfig]
	if _, ok := cfg.Descriptor(wire.DescriptorControl, index); !ok {
		return fmt.Errorf("%w: CONTROL[%d]", ErrNoSuchDescriptor, index)
	}
	if err := e.checkWriteAccess(controller); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	e.controlValues[index] = v
	e.availableIndex++
	return nil
}

// Streaming reports whether a stream descriptor is streaming.
func (e *LocalEntity) Streaming(t wire.DescriptorType, index uint16) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.streaming[DescriptorKey{Type: t, Index: index}]
}

// SetStreaming starts or stops streaming on a stream descriptor on behalf
// of a controller, honoring acquisition and lock.
func (e *LocalEntity) SetStreaming(controller wire.EntityID, t wire.DescriptorType, index uint16, on bool) error {
	if t != wire.DescriptorStreamInput && t != wire.DescriptorStreamOutput {
		return fmt.Errorf("%w: %s is not a stream descriptor", ErrNoSuchDescriptor, t)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.configurations[e.currentConfig]
	if _, ok := cfg.Descriptor(t, index); !ok {
		return fmt.Errorf("%w: %s[%d]", ErrNoSuchDescriptor, t, index)
	}
	if err := e.checkWriteAccess(controller); err != nil {
		return err
	}
	e.streaming[DescriptorKey{Type: t, Index: index}] = on
	e.availableIndex++
	return nil
}

// BumpAvailableIndex increments the advertised available_index. Called on
// every state change that invalidates what peers may have cached.
func (e *LocalEntity) BumpAvailableIndex() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.availableIndex++
	return e.availableIndex
}

// AvailableIndex returns the current available_index.
func (e *LocalEntity) AvailableIndex() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.availableIndex
}

// RestoreAvailableIndex seeds available_index from persisted state so the
// counter stays monotonic across restarts.
func (e *LocalEntity) RestoreAvailableIndex(v uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v > e.availableIndex {
		e.availableIndex = v
	}
}

// ADPDU builds the entity's ENTITY_AVAILABLE advertisement in canonical
// form.
func (e *LocalEntity) ADPDU() *wire.ADPDU {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg := e.configurations[e.currentConfig]
	return &wire.ADPDU{
		MessageType:               wire.ADPEntityAvailable,
		ValidTime:                 e.ValidTime,
		EntityID:                  e.EntityID,
		EntityModelID:             e.EntityModelID,
		EntityCapabilities:        e.Capabilities,
		TalkerStreamSources:       uint16(cfg.Count(wire.DescriptorStreamOutput)),
		TalkerCapabilities:        e.TalkerCapabilities,
		ListenerStreamSinks:       uint16(cfg.Count(wire.DescriptorStreamInput)),
		ListenerCapabilities:      e.ListenerCapabilities,
		ControllerCapabilities:    e.ControllerCapabilities,
		AvailableIndex:            e.availableIndex,
		GPTPGrandmasterID:         e.GPTPGrandmasterID,
		GPTPDomainNumber:          e.GPTPDomainNumber,
		CurrentConfigurationIndex: e.currentConfig,
		AssociationID:             e.AssociationID,
	}
}

package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Descriptor store errors.
var (
	ErrNoSuchDescriptor    = errors.New("no such descriptor")
	ErrNoSuchConfiguration = errors.New("no such configuration")
	ErrDuplicateDescriptor = errors.New("duplicate descriptor")
)

// DescriptorKey addresses a descriptor within a configuration.
type DescriptorKey struct {
	Type  wire.DescriptorType
	Index uint16
}

// String returns "TYPE[index]".
func (k DescriptorKey) String() string {
	return fmt.Sprintf("%s[%d]", k.Type, k.Index)
}

// Descriptor is one typed node of an entity's model tree. Raw holds the
// descriptor image exactly as served in READ_DESCRIPTOR responses,
// beginning with its descriptor_type and descriptor_index octets.
type Descriptor struct {
	Type  wire.DescriptorType
	Index uint16
	Name  string
	Raw   []byte

	// StreamFormat is the declared stream format for STREAM_INPUT and
	// STREAM_OUTPUT descriptors, zero otherwise.
	StreamFormat uint64

	// ConnectionCapacity is the number of simultaneous listeners a
	// STREAM_OUTPUT can feed; zero means unlimited is not declared and
	// one listener is assumed.
	ConnectionCapacity uint16
}

// Key returns the descriptor's address.
func (d *Descriptor) Key() DescriptorKey {
	return DescriptorKey{Type: d.Type, Index: d.Index}
}

// Image returns the wire image of the descriptor. If Raw was not supplied
// a minimal image carrying type, index and name is synthesized.
func (d *Descriptor) Image() []byte {
	if len(d.Raw) >= 4 {
		out := make([]byte, len(d.Raw))
		copy(out, d.Raw)
		return out
	}
	name := []byte(d.Name)
	if len(name) > 64 {
		name = name[:64]
	}
	out := make([]byte, 4+64)
	binary.BigEndian.PutUint16(out[0:2], uint16(d.Type))
	binary.BigEndian.PutUint16(out[2:4], d.Index)
	copy(out[4:], name)
	return out
}

// Configuration is one selectable descriptor subtree.
type Configuration struct {
	Index       uint16
	Name        string
	descriptors map[DescriptorKey]*Descriptor
}

// NewConfiguration creates an empty configuration.
func NewConfiguration(index uint16, name string) *Configuration {
	return &Configuration{
		Index:       index,
		Name:        name,
		descriptors: make(map[DescriptorKey]*Descriptor),
	}
}

// Add inserts a descriptor, rejecting duplicate (type, index) addresses.
func (c *Configuration) Add(d *Descriptor) error {
	k := d.Key()
	if _, exists := c.descriptors[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDescriptor, k)
	}
	c.descriptors[k] = d
	return nil
}

// Descriptor looks up a descriptor by address.
func (c *Configuration) Descriptor(t wire.DescriptorType, index uint16) (*Descriptor, bool) {
	d, ok := c.descriptors[DescriptorKey{Type: t, Index: index}]
	return d, ok
}

// Count returns the number of descriptors of the given type.
func (c *Configuration) Count(t wire.DescriptorType) int {
	n := 0
	for k := range c.descriptors {
		if k.Type == t {
			n++
		}
	}
	return n
}

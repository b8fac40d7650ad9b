package entityfile

import (
	"encoding/hex"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/model"
	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// Build turns a validated definition into a local entity ready to serve.
func (d *Definition) Build() (*model.LocalEntity, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	entityID, err := parseID(d.EntityID)
	if err != nil {
		return nil, err
	}
	var modelID uint64
	if d.ModelID != "" {
		if modelID, err = parseID(d.ModelID); err != nil {
			return nil, err
		}
	}

	e := model.NewLocalEntity(wire.EntityID(entityID), modelID)
	if d.ValidTime != 0 {
		e.ValidTime = uint8(d.ValidTime / 2)
	}
	for _, name := range d.Capabilities {
		e.Capabilities |= capabilityNames[name]
	}
	if len(d.TalkerStreams) > 0 {
		e.TalkerCapabilities = wire.TalkerCapImplemented | wire.TalkerCapAudioSource
	}
	if len(d.ListenerStreams) > 0 {
		e.ListenerCapabilities = wire.ListenerCapImplemented | wire.ListenerCapAudioSink
	}

	cfg, _ := e.Configuration(0)
	if err := cfg.Add(&model.Descriptor{Type: wire.DescriptorEntity, Name: d.Name}); err != nil {
		return nil, err
	}
	for i, s := range d.TalkerStreams {
		format, _ := parseID(s.Format)
		if err := cfg.Add(&model.Descriptor{
			Type:               wire.DescriptorStreamOutput,
			Index:              uint16(i),
			Name:               s.Name,
			StreamFormat:       format,
			ConnectionCapacity: s.ConnectionCapacity,
		}); err != nil {
			return nil, err
		}
	}
	for i, s := range d.ListenerStreams {
		format, _ := parseID(s.Format)
		if err := cfg.Add(&model.Descriptor{
			Type:         wire.DescriptorStreamInput,
			Index:        uint16(i),
			Name:         s.Name,
			StreamFormat: format,
		}); err != nil {
			return nil, err
		}
	}
	for i, c := range d.Controls {
		if err := cfg.Add(&model.Descriptor{
			Type:  wire.DescriptorControl,
			Index: uint16(i),
			Name:  c.Name,
		}); err != nil {
			return nil, err
		}
		if c.Value != "" {
			value, _ := hex.DecodeString(c.Value)
			if err := e.SetControlValue(0, uint16(i), value); err != nil {
				return nil, fmt.Errorf("control %q: %w", c.Name, err)
			}
		}
	}
	return e, nil
}

package entityfile

import (
	"encoding/hex"
	"fmt"

	"github.com/avb-protocol/avdecc-go/pkg/wire"
)

// ValidationError reports one invalid field, anchored to its source
// line when the definition was parsed from a document.
type ValidationError struct {
	Line  int
	Field string
	Msg   string
}

// Error returns the error message.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// capabilityNames maps YAML capability names to canonical bits.
var capabilityNames = map[string]wire.EntityCapabilities{
	"aemSupported":           wire.EntityCapAEMSupported,
	"classASupported":        wire.EntityCapClassASupported,
	"classBSupported":        wire.EntityCapClassBSupported,
	"gptpSupported":          wire.EntityCapGPTPSupported,
	"associationIDSupported": wire.EntityCapAssociationIDSupported,
	"addressAccessSupported": wire.EntityCapAddressAccessSupported,
	"vendorUniqueSupported":  wire.EntityCapVendorUniqueSupported,
	"persistentAcquire":      wire.EntityCapAEMPersistentAcquire,
}

// Validate checks the definition. The first problem found is returned
// as a ValidationError.
func (d *Definition) Validate() error {
	if d.EntityID == "" {
		return ValidationError{Line: d.line("entityID"), Field: "entityID", Msg: "required"}
	}
	if id, err := parseID(d.EntityID); err != nil {
		return ValidationError{Line: d.line("entityID"), Field: "entityID", Msg: err.Error()}
	} else if id == 0 {
		return ValidationError{Line: d.line("entityID"), Field: "entityID", Msg: "must be nonzero"}
	}
	if d.ModelID != "" {
		if _, err := parseID(d.ModelID); err != nil {
			return ValidationError{Line: d.line("modelID"), Field: "modelID", Msg: err.Error()}
		}
	}
	if d.ValidTime != 0 && (d.ValidTime < 2 || d.ValidTime > 62) {
		return ValidationError{Line: d.line("validTime"), Field: "validTime", Msg: "must be between 2 and 62 seconds"}
	}

	for i, name := range d.Capabilities {
		if _, ok := capabilityNames[name]; !ok {
			field := fmt.Sprintf("capabilities[%d]", i)
			return ValidationError{Line: d.line(field), Field: field, Msg: fmt.Sprintf("unknown capability %q", name)}
		}
	}

	if err := d.validateStreams("talkerStreams", d.TalkerStreams); err != nil {
		return err
	}
	if err := d.validateStreams("listenerStreams", d.ListenerStreams); err != nil {
		return err
	}

	for i, c := range d.Controls {
		field := fmt.Sprintf("controls[%d]", i)
		if c.Name == "" {
			return ValidationError{Line: d.line(field), Field: field + ".name", Msg: "required"}
		}
		if c.Value != "" {
			if _, err := hex.DecodeString(c.Value); err != nil {
				return ValidationError{Line: d.line(field + ".value"), Field: field + ".value", Msg: "not valid hex octets"}
			}
		}
	}
	return nil
}

func (d *Definition) validateStreams(key string, streams []StreamDef) error {
	for i, s := range streams {
		field := fmt.Sprintf("%s[%d]", key, i)
		if s.Name == "" {
			return ValidationError{Line: d.line(field), Field: field + ".name", Msg: "required"}
		}
		if s.Format == "" {
			return ValidationError{Line: d.line(field), Field: field + ".format", Msg: "required"}
		}
		if _, err := parseID(s.Format); err != nil {
			return ValidationError{Line: d.line(field + ".format"), Field: field + ".format", Msg: err.Error()}
		}
	}
	return nil
}

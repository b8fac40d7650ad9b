package entityfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML document describing a local entity.
type Definition struct {
	EntityID string `yaml:"entityID"`
	ModelID  string `yaml:"modelID"`
	Name     string `yaml:"name"`

	// ValidTime is the advertised validity period in seconds. Zero
	// means the 10 second default.
	ValidTime int `yaml:"validTime,omitempty"`

	Capabilities []string `yaml:"capabilities,omitempty"`

	TalkerStreams   []StreamDef  `yaml:"talkerStreams,omitempty"`
	ListenerStreams []StreamDef  `yaml:"listenerStreams,omitempty"`
	Controls        []ControlDef `yaml:"controls,omitempty"`

	// lines maps field paths to source line numbers for validation
	// errors. Only populated by Parse.
	lines map[string]int
}

// StreamDef describes one stream input or output.
type StreamDef struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`

	// ConnectionCapacity is the number of simultaneous listeners a
	// talker stream can feed. Zero means one.
	ConnectionCapacity uint16 `yaml:"connectionCapacity,omitempty"`
}

// ControlDef describes one control and its initial value as hex octets.
type ControlDef struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Parse parses and validates an entity definition from YAML bytes.
func Parse(data []byte) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing entity definition: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("empty entity definition")
	}

	var def Definition
	if err := doc.Content[0].Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing entity definition: %w", err)
	}
	def.lines = make(map[string]int)
	collectLines(doc.Content[0], "", def.lines)

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load loads and parses an entity definition from a file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes an entity definition to a file as YAML.
func Save(path string, def *Definition) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding entity definition: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// line returns the source line of a field path, zero when unknown.
func (d *Definition) line(field string) int {
	return d.lines[field]
}

// collectLines records the line number of every key and sequence item,
// keyed by its dotted path ("talkerStreams[0].format").
func collectLines(n *yaml.Node, prefix string, out map[string]int) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			path := key.Value
			if prefix != "" {
				path = prefix + "." + key.Value
			}
			out[path] = key.Line
			collectLines(val, path, out)
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			out[path] = item.Line
			collectLines(item, path, out)
		}
	}
}

// parseID parses a 64-bit identifier written as hex, with or without a
// 0x prefix.
func parseID(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, errors.New("empty identifier")
	}
	return strconv.ParseUint(s, 16, 64)
}

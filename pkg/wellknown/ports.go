package wellknown

import (
	"bytes"
	"fmt"
	"io"
	"os"

	_ "embed"

	"gopkg.in/yaml.v2"

	"dstnat2fgt/internal/model"
	"dstnat2fgt/internal/services"
)

//go:embed default_services.yaml
var defaultServicesData []byte

// Definition is one service entry of a definitions document.
type Definition struct {
	Name         string
	TCPPortRange string
	UDPPortRange string
}

// Defaults returns the embedded FortiGate predefined services.
func Defaults() ([]Definition, error) {
	return Parse(bytes.NewReader(defaultServicesData))
}

// Load reads a definitions document from path.
func Load(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open services file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a YAML or JSON document mapping service names to
// {tcp-portrange, udp-portrange}. Document order is kept.
func Parse(r io.Reader) ([]Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: services document: %v", model.ErrFormat, err)
	}

	defs := make([]Definition, 0, len(doc))
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("%w: services document: service name %v is not a string", model.ErrFormat, item.Key)
		}
		def, err := decodeDefinition(name, item.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: services document: %v", model.ErrFormat, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// decodeDefinition reads the port range fields of one service. Unquoted
// scalars such as 8443 are kept as text.
func decodeDefinition(name string, value interface{}) (Definition, error) {
	def := Definition{Name: name}
	if value == nil {
		return def, nil
	}
	fields, ok := value.(yaml.MapSlice)
	if !ok {
		return def, fmt.Errorf("service %s is not a mapping", name)
	}
	for _, field := range fields {
		key, _ := field.Key.(string)
		if key != "tcp-portrange" && key != "udp-portrange" {
			continue
		}
		var text string
		switch v := field.Value.(type) {
		case nil:
		case string:
			text = v
		case int, int64, uint64, float64:
			text = fmt.Sprint(v)
		default:
			return def, fmt.Errorf("service %s: %s is not a scalar", name, key)
		}
		if key == "tcp-portrange" {
			def.TCPPortRange = text
		} else {
			def.UDPPortRange = text
		}
	}
	return def, nil
}

// Register adds every definition to reg as a built-in service.
func Register(reg *services.Registry, defs []Definition) error {
	for _, def := range defs {
		if err := reg.Add(def.Name, def.TCPPortRange, def.UDPPortRange, true); err != nil {
			return fmt.Errorf("failed to register built-in service: %w", err)
		}
	}
	return nil
}

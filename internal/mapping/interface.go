package mapping

import (
	"fmt"
	"log/slog"

	"dstnat2fgt/internal/model"
)

// InterfaceMap translates source device interface names to target device
// interface names.
type InterfaceMap struct {
	targets map[string]string
}

func NewInterfaceMap() *InterfaceMap {
	return &InterfaceMap{targets: make(map[string]string)}
}

// Add registers a translation. Each source may be added once.
func (m *InterfaceMap) Add(source, target string) error {
	if source == "" || target == "" {
		return fmt.Errorf("%w: empty interface in translation %q -> %q", model.ErrFormat, source, target)
	}
	if _, ok := m.targets[source]; ok {
		return fmt.Errorf("%w: interface %q already added", model.ErrConflict, source)
	}

	m.targets[source] = target
	slog.Debug("added interface translation", "source", source, "target", target)
	return nil
}

// AddSpec parses "source:target" and adds it.
func (m *InterfaceMap) AddSpec(spec string) (string, string, error) {
	source, target, err := splitSpec(spec)
	if err != nil {
		return "", "", err
	}
	if err := m.Add(source, target); err != nil {
		return "", "", err
	}
	return source, target, nil
}

func (m *InterfaceMap) Lookup(iface string) (string, bool) {
	if m == nil {
		return "", false
	}
	target, ok := m.targets[iface]
	return target, ok
}

func (m *InterfaceMap) Len() int {
	return len(m.targets)
}

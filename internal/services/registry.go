package services

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"dstnat2fgt/internal/model"
)

// Service is a named set of TCP and UDP port ranges.
type Service struct {
	Name    string
	TCP     []model.PortRange
	UDP     []model.PortRange
	BuiltIn bool
}

// Registry holds service definitions and a per-protocol index from an exact
// port range to the service that declared it. Lookups compare ranges
// structurally: a service on 80-90 does not answer a query for 80.
type Registry struct {
	services map[string]*Service
	order    []string
	tcp      map[model.PortRange]string
	udp      map[model.PortRange]string
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]*Service),
		tcp:      make(map[model.PortRange]string),
		udp:      make(map[model.PortRange]string),
	}
}

// Add registers a service. tcpRanges and udpRanges are comma separated port
// range lists and may be empty. A later service declaring the same exact
// range takes over the index entry for it.
func (r *Registry) Add(name, tcpRanges, udpRanges string, builtIn bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty service name", model.ErrFormat)
	}
	if _, ok := r.services[name]; ok {
		return fmt.Errorf("%w: service %s already on the list", model.ErrConflict, name)
	}

	tcp, err := splitRanges(tcpRanges)
	if err != nil {
		return fmt.Errorf("service %s: tcp: %w", name, err)
	}
	udp, err := splitRanges(udpRanges)
	if err != nil {
		return fmt.Errorf("service %s: udp: %w", name, err)
	}

	svc := &Service{Name: name, TCP: tcp, UDP: udp, BuiltIn: builtIn}
	r.services[name] = svc
	r.order = append(r.order, name)
	for _, pr := range tcp {
		r.tcp[pr] = name
	}
	for _, pr := range udp {
		r.udp[pr] = name
	}

	slog.Debug("added service", "name", name, "tcp", tcpRanges, "udp", udpRanges, "built_in", builtIn)
	return nil
}

// splitRanges accepts commas and whitespace as separators.
func splitRanges(spec string) ([]model.PortRange, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	ranges := make([]model.PortRange, 0, len(fields))
	for _, field := range fields {
		pr, err := model.ParsePortRange(field)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, pr)
	}
	return ranges, nil
}

// Lookup returns the service owning exactly ports for protocol (tcp or udp).
func (r *Registry) Lookup(protocol string, ports model.PortRange) (string, bool, error) {
	var index map[model.PortRange]string
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "tcp":
		index = r.tcp
	case "udp":
		index = r.udp
	default:
		return "", false, fmt.Errorf("%w: service lookup: unsupported protocol %q", model.ErrFormat, protocol)
	}

	name, ok := index[ports]
	return name, ok, nil
}

// LookupSpec is Lookup with the port range given as text.
func (r *Registry) LookupSpec(protocol, spec string) (string, bool, error) {
	ports, err := model.ParsePortRange(spec)
	if err != nil {
		return "", false, err
	}
	return r.Lookup(protocol, ports)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.services[name]
	return ok
}

// Get returns a copy of the named service.
func (r *Registry) Get(name string) (Service, bool) {
	svc, ok := r.services[name]
	if !ok {
		return Service{}, false
	}
	return *svc, true
}

// Services returns every service in registration order.
func (r *Registry) Services() []Service {
	out := make([]Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.services[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

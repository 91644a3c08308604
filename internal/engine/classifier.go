package engine

import (
	"fmt"
	"log/slog"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
	"dstnat2fgt/internal/services"
)

type Status string

const (
	StatusOK        Status = "OK"
	StatusDefaulted Status = "DEFAULTED"
	StatusInvalid   Status = "INVALID"
)

// servicePrefix names services synthesized for unknown port ranges.
const servicePrefix = "SERVICE-"

// Options carries the fallback interfaces applied to unresolved rules.
type Options struct {
	DefaultExternal string
	DefaultInternal string
}

// Classification is the outcome for one rule.
type Classification struct {
	Index     int
	Rule      *model.NATRule
	Status    Status
	Service   string
	Defaulted []string
	Problems  []string
}

// Diagnostic describes an invalid rule by its position in the input.
type Diagnostic struct {
	Index    int
	Rule     string
	Problems []string
}

// Result holds the classified rules in input order, the grown service
// registry and the diagnostics of every invalid rule.
type Result struct {
	Rules    []Classification
	Services *services.Registry
	Invalid  []Diagnostic
}

// Valid returns the rules without problems.
func (r *Result) Valid() []Classification {
	var out []Classification
	for _, c := range r.Rules {
		if c.Status != StatusInvalid {
			out = append(out, c)
		}
	}
	return out
}

// Synthesized returns the services added during classification.
func (r *Result) Synthesized() []services.Service {
	var out []services.Service
	for _, svc := range r.Services.Services() {
		if !svc.BuiltIn {
			out = append(out, svc)
		}
	}
	return out
}

type Classifier struct {
	networks   *mapping.NetworkMap
	interfaces *mapping.InterfaceMap
	registry   *services.Registry
	opts       Options
	serial     int
}

func NewClassifier(networks *mapping.NetworkMap, interfaces *mapping.InterfaceMap, registry *services.Registry, opts Options) *Classifier {
	if registry == nil {
		registry = services.NewRegistry()
	}
	return &Classifier{
		networks:   networks,
		interfaces: interfaces,
		registry:   registry,
		opts:       opts,
	}
}

// Classify resolves, defaults and validates rules in order. Rules are
// mutated in place. An error means the service registry rejected a
// synthesized service and the run cannot continue.
func (c *Classifier) Classify(rules []*model.NATRule) (*Result, error) {
	result := &Result{Services: c.registry}

	for i, rule := range rules {
		cl, err := c.classify(i+1, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		result.Rules = append(result.Rules, cl)
		if cl.Status == StatusInvalid {
			result.Invalid = append(result.Invalid, Diagnostic{
				Index:    cl.Index,
				Rule:     rule.String(),
				Problems: cl.Problems,
			})
		}
	}

	slog.Info("classified rules",
		"total", len(result.Rules),
		"invalid", len(result.Invalid),
		"services", c.registry.Len(),
	)
	return result, nil
}

func (c *Classifier) classify(index int, rule *model.NATRule) (Classification, error) {
	cl := Classification{Index: index, Rule: rule}

	if rule.ExternalInterface == "" {
		rule.ExternalInterface, _ = c.networks.LookupRange(rule.ExternalAddress)
	}
	if rule.InternalInterface == "" {
		rule.InternalInterface, _ = c.networks.LookupRange(rule.InternalAddress)
	}
	if rule.ExternalInterface == "" && rule.SourceInterface != "" {
		if target, ok := c.interfaces.Lookup(rule.SourceInterface); ok {
			rule.ExternalInterface = target
			slog.Debug("translated source interface", "rule", index, "source", rule.SourceInterface, "target", target)
		}
	}

	if rule.ExternalInterface == "" && c.opts.DefaultExternal != "" {
		rule.ExternalInterface = c.opts.DefaultExternal
		cl.Defaulted = append(cl.Defaulted, "external interface")
	}
	if rule.InternalInterface == "" && c.opts.DefaultInternal != "" {
		rule.InternalInterface = c.opts.DefaultInternal
		cl.Defaulted = append(cl.Defaulted, "internal interface")
	}

	if rule.Protocol.SupportsPorts() {
		if !rule.InternalPorts.IsSet() && rule.ExternalPorts.IsSet() {
			rule.InternalPorts = rule.ExternalPorts
			cl.Defaulted = append(cl.Defaulted, "internal ports")
		}
		if rule.InternalPorts.IsSet() {
			name, err := c.bindService(rule.Protocol.Name, rule.InternalPorts)
			if err != nil {
				return cl, err
			}
			cl.Service = name
		}
	}

	if len(cl.Defaulted) > 0 {
		slog.Info("applied defaults", "rule", index, "fields", cl.Defaulted, "result", rule.String())
	}

	cl.Problems = rule.Diagnose()
	switch {
	case len(cl.Problems) > 0:
		cl.Status = StatusInvalid
		slog.Warn("invalid rule", "rule", index, "nat", rule.String(), "problems", cl.Problems)
	case len(cl.Defaulted) > 0:
		cl.Status = StatusDefaulted
	default:
		cl.Status = StatusOK
	}
	return cl, nil
}

// bindService returns the service owning exactly ports, registering a new
// one when none does.
func (c *Classifier) bindService(protocol string, ports model.PortRange) (string, error) {
	name, ok, err := c.registry.Lookup(protocol, ports)
	if err != nil {
		return "", err
	}
	if ok {
		return name, nil
	}

	name = c.nextServiceName()
	var tcp, udp string
	if protocol == "tcp" {
		tcp = ports.String()
	} else {
		udp = ports.String()
	}
	if err := c.registry.Add(name, tcp, udp, false); err != nil {
		return "", err
	}
	slog.Info("created service", "name", name, "protocol", protocol, "ports", ports.String())
	return name, nil
}

func (c *Classifier) nextServiceName() string {
	for {
		c.serial++
		name := fmt.Sprintf("%s%03d", servicePrefix, c.serial)
		if !c.registry.Has(name) {
			return name
		}
	}
}

package model

import (
	"fmt"
	"strings"
)

// NATRule is a destination NAT rule. Empty interface names mean the
// interface could not be resolved.
type NATRule struct {
	ExternalInterface string
	ExternalAddress   IPRange
	InternalInterface string
	InternalAddress   IPRange
	Protocol          Protocol
	ExternalPorts     PortRange
	InternalPorts     PortRange
	Comment           string

	// SourceInterface is the ingress interface name on the source device,
	// when the input format carries one.
	SourceInterface string
	Disabled        bool
}

// NewNATRule returns a rule matching any external address.
func NewNATRule() *NATRule {
	return &NATRule{ExternalAddress: AnyIPRange()}
}

// Diagnose returns the rule's problems in a fixed order. An empty result
// means the rule can be rendered as a virtual IP.
func (r *NATRule) Diagnose() []string {
	var problems []string

	if r.ExternalInterface == "" {
		problems = append(problems, "no external interface")
	}
	if r.InternalInterface == "" {
		problems = append(problems, "no internal interface")
	}

	extLen, intLen := r.ExternalAddress.Len(), r.InternalAddress.Len()
	if extLen == 0 {
		problems = append(problems, "no external IP")
	}
	if intLen == 0 {
		problems = append(problems, "no internal (mapped) IP")
	}
	if extLen != 0 && intLen != 0 {
		if r.ExternalAddress.IsAny() {
			if intLen != 1 {
				problems = append(problems, "0.0.0.0 can be mapped only to 1 IP")
			}
		} else if extLen != intLen {
			problems = append(problems, fmt.Sprintf("uneven external and internal ip range sizes: %d -> %d", extLen, intLen))
		}
	}

	if r.Protocol.SupportsPorts() {
		if r.ExternalPorts.Len() == 0 {
			problems = append(problems, fmt.Sprintf("%s requires at least an external port", r.Protocol.Name))
		}
	} else {
		problems = append(problems, fmt.Sprintf("unsupported virtual IP protocol: %s", r.Protocol.Name))
	}

	return problems
}

// IsValid reports whether Diagnose finds nothing.
func (r *NATRule) IsValid() bool {
	return len(r.Diagnose()) == 0
}

// String renders the rule as protocol/extif->extip:port->intif->intip:port.
func (r *NATRule) String() string {
	protocol := "all"
	if r.Protocol.IsSet() {
		protocol = r.Protocol.Name
	}

	var extPorts, intPorts string
	if r.Protocol.SupportsPorts() {
		extPorts = ":???"
		if r.ExternalPorts.IsSet() {
			extPorts = ":" + r.ExternalPorts.String()
		}
		intPorts = extPorts
		if r.InternalPorts.IsSet() {
			intPorts = ":" + r.InternalPorts.String()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s->%s%s->%s->%s%s",
		protocol,
		orUnknown(r.ExternalInterface, "???"),
		orUnknown(r.ExternalAddress.String(), "?.?.?.?"),
		extPorts,
		orUnknown(r.InternalInterface, "???"),
		orUnknown(r.InternalAddress.String(), "?.?.?.?"),
		intPorts,
	)
	if r.Comment != "" {
		fmt.Fprintf(&b, " %q", r.Comment)
	}
	return b.String()
}

func orUnknown(s, unknown string) string {
	if s == "" {
		return unknown
	}
	return s
}

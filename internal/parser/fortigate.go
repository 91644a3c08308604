package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
	"dstnat2fgt/pkg/wellknown"
)

// FortiGateParser scans a FortiGate configuration backup for virtual IPs
// and custom services.
type FortiGateParser struct {
	lines    []string
	pos      int
	networks *mapping.NetworkMap

	Rules    []*model.NATRule
	Services []wellknown.Definition
}

func NewFortiGateParser(lines []string, networks *mapping.NetworkMap) *FortiGateParser {
	return &FortiGateParser{lines: lines, networks: networks}
}

// ParseFortiGate is the Format adapter for FortiGate virtual IP sections.
func ParseFortiGate(rules []*model.NATRule, lines []string, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	p := NewFortiGateParser(lines, networks)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return append(rules, p.Rules...), nil
}

// LooksLikeFortiGateConfig reports whether the first statement is a config block.
func LooksLikeFortiGateConfig(lines []string) bool {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "config ")
	}
	return false
}

func (p *FortiGateParser) next() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	line := strings.TrimSpace(p.lines[p.pos])
	p.pos++
	return line, true
}

func (p *FortiGateParser) Parse() error {
	for {
		line, ok := p.next()
		if !ok {
			return nil
		}
		switch {
		case line == "config firewall vip":
			if err := p.parseVIPConfig(); err != nil {
				return fmt.Errorf("failed to parse firewall vip config: %w", err)
			}
		case line == "config firewall service custom":
			if err := p.parseServiceCustomConfig(); err != nil {
				return fmt.Errorf("failed to parse firewall service custom config: %w", err)
			}
		}
	}
}

// statement tokenizes a "set key values..." or "edit name" line.
func (p *FortiGateParser) statement(line string) ([]string, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w: %v", p.pos, model.ErrFormat, err)
	}
	return parts, nil
}

// nested tracks "config ... end" blocks inside an entry, such as the
// realservers of a load-balance VIP. It reports whether line belongs to one.
func nested(line string, depth *int) bool {
	switch {
	case strings.HasPrefix(line, "config "):
		*depth++
		return true
	case line == "end" && *depth > 0:
		*depth--
		return true
	}
	return *depth > 0
}

func (p *FortiGateParser) parseVIPConfig() error {
	var current map[string]string
	depth := 0
	for {
		line, ok := p.next()
		if !ok {
			return io.ErrUnexpectedEOF
		}
		if nested(line, &depth) {
			continue
		}
		if line == "end" {
			return nil
		}
		parts, err := p.statement(line)
		if err != nil {
			return err
		}
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "edit":
			current = map[string]string{}
		case "set":
			if current != nil && len(parts) >= 3 {
				current[parts[1]] = strings.Join(parts[2:], " ")
			}
		case "next":
			if current != nil {
				rule, err := p.vipRule(current)
				if err != nil {
					return fmt.Errorf("line %d: %w", p.pos, err)
				}
				if rule != nil {
					p.Rules = append(p.Rules, rule)
				}
			}
			current = nil
		}
	}
}

// vipRule returns nil for non static-nat VIPs (load balancers, DNS translation).
func (p *FortiGateParser) vipRule(vip map[string]string) (*model.NATRule, error) {
	if t, ok := vip["type"]; ok && t != "static-nat" {
		return nil, nil
	}

	rule := model.NewNATRule()
	var err error

	if v, ok := vip["extip"]; ok {
		if rule.ExternalAddress, rule.ExternalInterface, err = resolveAddress(v, p.networks); err != nil {
			return nil, err
		}
	}
	if v := vip["extintf"]; v != "" && v != "any" {
		rule.ExternalInterface = v
	}
	if v, ok := vip["mappedip"]; ok {
		if rule.InternalAddress, rule.InternalInterface, err = resolveAddress(v, p.networks); err != nil {
			return nil, err
		}
	}

	if vip["portforward"] == "enable" {
		protocol := vip["protocol"]
		if protocol == "" {
			protocol = "tcp"
		}
		if rule.Protocol, err = model.ParseProtocol(protocol); err != nil {
			return nil, err
		}
		if rule.ExternalPorts, err = model.ParsePortRange(vip["extport"]); err != nil {
			return nil, err
		}
		if rule.InternalPorts, err = model.ParsePortRange(vip["mappedport"]); err != nil {
			return nil, err
		}
	}

	rule.Comment = vip["comment"]
	return rule, nil
}

func (p *FortiGateParser) parseServiceCustomConfig() error {
	var current *wellknown.Definition
	depth := 0
	for {
		line, ok := p.next()
		if !ok {
			return io.ErrUnexpectedEOF
		}
		if nested(line, &depth) {
			continue
		}
		if line == "end" {
			return nil
		}
		// Handles "set tcp-portrange 8001-8004" and "set tcp-portrange=8001-8004"
		if strings.HasPrefix(line, "set ") && strings.Contains(line, "portrange=") {
			line = strings.Replace(line, "=", " ", 1)
		}
		parts, err := p.statement(line)
		if err != nil {
			return err
		}
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "edit":
			if len(parts) < 2 {
				return fmt.Errorf("line %d: %w: edit without a name", p.pos, model.ErrFormat)
			}
			current = &wellknown.Definition{Name: parts[1]}
		case "set":
			if current == nil || len(parts) < 3 {
				continue
			}
			switch parts[1] {
			case "tcp-portrange":
				current.TCPPortRange = destinationPorts(parts[2:])
			case "udp-portrange":
				current.UDPPortRange = destinationPorts(parts[2:])
			}
		case "next":
			if current != nil && (current.TCPPortRange != "" || current.UDPPortRange != "") {
				p.Services = append(p.Services, *current)
			}
			current = nil
		}
	}
}

// destinationPorts drops the optional ":source" part of FortiGate
// "dst[:src]" port range items.
func destinationPorts(items []string) string {
	ports := make([]string, 0, len(items))
	for _, item := range items {
		dst, _, _ := strings.Cut(item, ":")
		ports = append(ports, dst)
	}
	return strings.Join(ports, ",")
}

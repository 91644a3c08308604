package parser

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
)

const (
	mikrotikNATSection = "/ip firewall nat"
	mikrotikDstNAT     = "dst-nat"
)

type numberedLine struct {
	no   int
	text string
}

// ParseMikroTik reads a RouterOS export and appends one rule per dst-nat
// entry of the /ip firewall nat section.
func ParseMikroTik(rules []*model.NATRule, lines []string, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	state := stateScanning

	for _, line := range joinContinuations(lines) {
		if state == stateDone {
			break
		}

		text := strings.TrimSpace(line.text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "/") {
			switch {
			case text == mikrotikNATSection:
				state = stateInSection
			case state == stateInSection:
				state = stateDone
			}
			continue
		}
		if state != stateInSection {
			continue
		}

		tokens, err := shlex.Split(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line.no, model.ErrFormat, err)
		}
		if len(tokens) == 0 || tokens[0] != "add" {
			continue
		}

		props, err := mikrotikProps(tokens[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.no, err)
		}
		if props["action"] != mikrotikDstNAT {
			continue
		}

		rule, err := mikrotikRule(props, networks)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.no, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// joinContinuations merges lines ending in a backslash with their
// successors. Each merged line keeps the number of its first physical line.
func joinContinuations(lines []string) []numberedLine {
	var out []numberedLine
	var buf strings.Builder
	start := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			start = i + 1
		}
		if strings.HasSuffix(trimmed, "\\") {
			buf.WriteString(strings.TrimSuffix(trimmed, "\\"))
			continue
		}
		buf.WriteString(trimmed)
		out = append(out, numberedLine{no: start, text: buf.String()})
		buf.Reset()
	}
	if buf.Len() > 0 {
		out = append(out, numberedLine{no: start, text: buf.String()})
	}
	return out
}

func mikrotikProps(tokens []string) (map[string]string, error) {
	props := make(map[string]string, len(tokens))
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected key=value, got %q", model.ErrFormat, token)
		}
		props[key] = value
	}
	return props, nil
}

func mikrotikRule(props map[string]string, networks *mapping.NetworkMap) (*model.NATRule, error) {
	rule := model.NewNATRule()
	var err error

	if v := props["protocol"]; v != "" {
		if rule.Protocol, err = model.ParseProtocol(v); err != nil {
			return nil, err
		}
	}
	if v := props["dst-address"]; v != "" {
		if rule.ExternalAddress, rule.ExternalInterface, err = resolveAddress(v, networks); err != nil {
			return nil, err
		}
	}
	if rule.ExternalPorts, err = model.ParsePortRange(props["dst-port"]); err != nil {
		return nil, err
	}
	if v := props["to-addresses"]; v != "" {
		if rule.InternalAddress, rule.InternalInterface, err = resolveAddress(v, networks); err != nil {
			return nil, err
		}
	}
	if rule.InternalPorts, err = model.ParsePortRange(props["to-ports"]); err != nil {
		return nil, err
	}

	rule.SourceInterface = props["in-interface"]
	rule.Comment = props["comment"]
	rule.Disabled = props["disabled"] == "yes"

	return rule, nil
}

package parser

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
)

type sectionState int

const (
	stateScanning sectionState = iota
	stateInSection
	stateDone
)

const (
	iptablesNATTable = "nat"
	iptablesDNAT     = "DNAT"
)

// Long option spellings accepted by iptables-save consumers.
var iptablesAliases = map[string]string{
	"--append":           "-A",
	"--destination":      "-d",
	"--dst":              "-d",
	"--protocol":         "-p",
	"--jump":             "-j",
	"--in-interface":     "-i",
	"--destination-port": "--dport",
}

// ParseIPTables reads iptables-save output and appends one rule per DNAT
// entry of the nat table.
func ParseIPTables(rules []*model.NATRule, lines []string, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	state := stateScanning

	for i, raw := range lines {
		if state == stateDone {
			break
		}

		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "*") {
			switch {
			case strings.TrimPrefix(line, "*") == iptablesNATTable:
				state = stateInSection
			case state == stateInSection:
				state = stateDone
			}
			continue
		}

		if state != stateInSection {
			continue
		}
		if line == "COMMIT" {
			state = stateDone
			continue
		}

		tokens, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", i+1, model.ErrFormat, err)
		}
		if len(tokens) == 0 || canonicalOption(tokens[0]) != "-A" {
			continue
		}

		opts, err := pairOptions(tokens)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		rule, err := iptablesRule(opts, networks)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if rule != nil {
			rules = append(rules, rule)
		}
	}

	return rules, nil
}

// Options that always consume the following token, even one starting
// with a dash such as a "-- note" comment.
var iptablesValueOptions = map[string]bool{
	"-A":               true,
	"-d":               true,
	"-p":               true,
	"-i":               true,
	"-j":               true,
	"-m":               true,
	"--dport":          true,
	"--comment":        true,
	"--to-destination": true,
}

// pairOptions pairs each option with the following token. Other options
// take it only when it is not itself an option. Further plain tokens extend
// the previous value, as in "--match-set trusted src".
func pairOptions(tokens []string) (map[string]string, error) {
	opts := make(map[string]string)
	last := ""
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if token == "!" {
			return nil, fmt.Errorf("%w: negated match %q is not supported", model.ErrFormat, strings.Join(tokens[i:min(i+3, len(tokens))], " "))
		}
		if !isOption(token) {
			if last == "" {
				return nil, fmt.Errorf("%w: unexpected token %q", model.ErrFormat, token)
			}
			opts[last] += " " + token
			continue
		}

		key := canonicalOption(token)
		value := ""
		if i+1 < len(tokens) && tokens[i+1] != "!" && (iptablesValueOptions[key] || !isOption(tokens[i+1])) {
			value = tokens[i+1]
			i++
		}
		opts[key] = value
		last = key
	}
	return opts, nil
}

func isOption(token string) bool {
	return len(token) > 1 && strings.HasPrefix(token, "-")
}

func canonicalOption(key string) string {
	if short, ok := iptablesAliases[key]; ok {
		return short
	}
	return key
}

// iptablesRule returns nil for entries whose target is not DNAT.
func iptablesRule(opts map[string]string, networks *mapping.NetworkMap) (*model.NATRule, error) {
	if target, ok := opts["-j"]; ok && target != iptablesDNAT {
		return nil, nil
	}

	rule := model.NewNATRule()
	var err error

	if v, ok := opts["-p"]; ok {
		if rule.Protocol, err = model.ParseProtocol(v); err != nil {
			return nil, err
		}
	}

	if v, ok := opts["-d"]; ok {
		if rule.ExternalAddress, rule.ExternalInterface, err = resolveAddress(v, networks); err != nil {
			return nil, err
		}
	}

	if v, ok := opts["--dport"]; ok {
		if rule.ExternalPorts, err = model.ParsePortRange(v); err != nil {
			return nil, err
		}
	}

	if v, ok := opts["--to-destination"]; ok {
		ip, port, hasPort := strings.Cut(v, ":")
		if hasPort {
			if rule.InternalPorts, err = model.ParsePortRange(port); err != nil {
				return nil, err
			}
		}
		if rule.InternalAddress, rule.InternalInterface, err = resolveAddress(ip, networks); err != nil {
			return nil, err
		}
	}

	rule.SourceInterface = opts["-i"]
	rule.Comment = opts["--comment"]

	return rule, nil
}

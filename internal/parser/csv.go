package parser

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
)

var requiredColumns = []string{"protocol", "extip", "extport", "mappedip"}

// ParseCSV reads a header row followed by one rule per row.
func ParseCSV(rules []*model.NATRule, lines []string, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	content := strings.TrimPrefix(strings.Join(lines, "\n"), "\ufeff")
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFormat, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", model.ErrFormat)
	}

	return ParseRows(rules, records[0], records[1:], networks)
}

// ParseRows maps tabular rows onto rules. The header must name the protocol,
// extip, extport and mappedip columns; mappedport and comment are optional.
func ParseRows(rules []*model.NATRule, header []string, rows [][]string, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing required fields: %s", model.ErrFormat, strings.Join(missing, ", "))
	}

	for i, row := range rows {
		rule, err := tabularRule(cols, row, networks)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func tabularRule(cols map[string]int, row []string, networks *mapping.NetworkMap) (*model.NATRule, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rule := model.NewNATRule()
	var err error

	if rule.Protocol, err = model.ParseProtocol(field("protocol")); err != nil {
		return nil, err
	}
	if rule.ExternalAddress, rule.ExternalInterface, err = resolveAddress(field("extip"), networks); err != nil {
		return nil, err
	}
	if rule.ExternalPorts, err = model.ParsePortRange(field("extport")); err != nil {
		return nil, err
	}
	if rule.InternalAddress, rule.InternalInterface, err = resolveAddress(field("mappedip"), networks); err != nil {
		return nil, err
	}

	internalPorts := field("extport")
	if _, ok := cols["mappedport"]; ok {
		internalPorts = field("mappedport")
	}
	if rule.InternalPorts, err = model.ParsePortRange(internalPorts); err != nil {
		return nil, err
	}

	rule.Comment = field("comment")
	return rule, nil
}

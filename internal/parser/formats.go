package parser

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"
)

// Format parses raw input lines and appends the destination NAT rules found.
// Any malformed line fails the whole input.
type Format func(rules []*model.NATRule, lines []string, networks *mapping.NetworkMap) ([]*model.NATRule, error)

var formats = map[string]Format{
	"iptables":  ParseIPTables,
	"csv":       ParseCSV,
	"mikrotik":  ParseMikroTik,
	"fortigate": ParseFortiGate,
}

// Lookup returns the parser registered under name.
func Lookup(name string) (Format, bool) {
	f, ok := formats[strings.ToLower(name)]
	return f, ok
}

// Names lists the registered line formats.
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadLines materializes r as a slice of lines without terminators.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return lines, nil
}

// resolveAddress parses spec and resolves its interface through networks.
func resolveAddress(spec string, networks *mapping.NetworkMap) (model.IPRange, string, error) {
	addr, err := model.ParseIPRange(spec)
	if err != nil {
		return model.IPRange{}, "", err
	}
	iface, _ := networks.LookupRange(addr)
	return addr, iface, nil
}

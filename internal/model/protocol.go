package model

import (
	"fmt"
	"strings"
)

// IANA protocol numbers for the protocols a NAT target may carry.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
	ProtocolGRE  = 47
	ProtocolESP  = 50
	ProtocolAH   = 51
)

var protocolNumbers = map[string]int{
	"ah":   ProtocolAH,
	"esp":  ProtocolESP,
	"gre":  ProtocolGRE,
	"icmp": ProtocolICMP,
	"tcp":  ProtocolTCP,
	"udp":  ProtocolUDP,
}

// Protocol is a named IP protocol. The zero value means "not specified".
type Protocol struct {
	Name string
	ID   int
}

// ParseProtocol looks name up in the fixed protocol table.
func ParseProtocol(name string) (Protocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	id, ok := protocolNumbers[name]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: unsupported protocol %q", ErrFormat, name)
	}
	return Protocol{Name: name, ID: id}, nil
}

// IsSet reports whether a protocol was specified.
func (p Protocol) IsSet() bool {
	return p.Name != ""
}

// SupportsPorts is true for tcp and udp only.
func (p Protocol) SupportsPorts() bool {
	return p.IsSet() && (p.ID == ProtocolTCP || p.ID == ProtocolUDP)
}

func (p Protocol) String() string {
	return p.Name
}

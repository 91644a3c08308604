package parser

import (
	"errors"
	"testing"

	"dstnat2fgt/internal/model"
)

func TestParseMikroTik(t *testing.T) {
	lines := []string{
		"# jan/02/2024 10:00:00 by RouterOS 7.12",
		"/interface bridge",
		"add name=bridge1",
		"/ip firewall nat",
		"add action=masquerade chain=srcnat out-interface=ether1",
		"add action=dst-nat chain=dstnat dst-address=1.2.3.4 dst-port=80 in-interface=ether1 \\",
		"    protocol=tcp to-addresses=10.0.0.5 to-ports=8080 comment=\"web server\"",
		"add action=dst-nat chain=dstnat disabled=yes dst-port=53 protocol=udp to-addresses=10.0.0.10",
		"/ip firewall filter",
		"add action=dst-nat chain=dstnat to-addresses=10.0.0.99",
	}

	rules, err := ParseMikroTik(nil, lines, testNetworks(t))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 dst-nat rules, got %d", len(rules))
	}

	web := rules[0]
	if web.ExternalInterface != "wan1" || web.InternalInterface != "lan1" {
		t.Errorf("unexpected interfaces %q -> %q", web.ExternalInterface, web.InternalInterface)
	}
	if web.InternalPorts != (model.PortRange{Start: 8080, End: 8080}) {
		t.Errorf("expected internal ports 8080, got %v", web.InternalPorts)
	}
	if web.SourceInterface != "ether1" {
		t.Errorf("expected source interface ether1, got %q", web.SourceInterface)
	}
	if web.Comment != "web server" {
		t.Errorf("expected comment, got %q", web.Comment)
	}
	if web.Disabled {
		t.Error("expected the web rule to be enabled")
	}

	dns := rules[1]
	if !dns.Disabled {
		t.Error("expected the dns rule to be disabled")
	}
	if !dns.ExternalAddress.IsAny() {
		t.Errorf("expected any external address, got %s", dns.ExternalAddress)
	}
}

func TestParseMikroTikMalformedProperty(t *testing.T) {
	lines := []string{
		"/ip firewall nat",
		"add action=dst-nat chain=dstnat",
		"add action=dst-nat dst-port",
	}

	_, err := ParseMikroTik(nil, lines, testNetworks(t))
	if !errors.Is(err, model.ErrFormat) {
		t.Fatalf("expected a format error, got %v", err)
	}
}

func TestJoinContinuations(t *testing.T) {
	joined := joinContinuations([]string{"a \\", "b \\", "c", "d"})
	if len(joined) != 2 {
		t.Fatalf("expected 2 logical lines, got %d", len(joined))
	}
	if joined[0].no != 1 || joined[0].text != "a b c" {
		t.Errorf("unexpected first line %+v", joined[0])
	}
	if joined[1].no != 4 || joined[1].text != "d" {
		t.Errorf("unexpected second line %+v", joined[1])
	}
}

package mapping

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"go4.org/netipx"

	"dstnat2fgt/internal/model"
)

type networkEntry struct {
	prefix netip.Prefix
	span   netipx.IPRange
	iface  string
}

// NetworkMap maps non-overlapping IPv4 networks to interface names.
type NetworkMap struct {
	entries []networkEntry
}

func NewNetworkMap() *NetworkMap {
	return &NetworkMap{}
}

// Add registers network (CIDR or bare address) as reachable through iface.
// It fails on malformed networks, exact duplicates and overlaps.
func (m *NetworkMap) Add(network, iface string) (netip.Prefix, error) {
	network = strings.TrimSpace(network)
	iface = strings.TrimSpace(iface)
	if iface == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty interface for network %q", model.ErrFormat, network)
	}

	prefix, err := parseNetwork(network)
	if err != nil || !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: invalid network address %q", model.ErrFormat, network)
	}
	if prefix != prefix.Masked() {
		return netip.Prefix{}, fmt.Errorf("%w: invalid network address %q: host bits set", model.ErrFormat, network)
	}

	span := netipx.RangeOfPrefix(prefix)
	for _, e := range m.entries {
		if e.prefix == prefix {
			return netip.Prefix{}, fmt.Errorf("%w: duplicate network %s", model.ErrConflict, prefix)
		}
		if e.span.Overlaps(span) {
			return netip.Prefix{}, fmt.Errorf("%w: network %s overlaps with %s", model.ErrConflict, prefix, e.prefix)
		}
	}

	m.entries = append(m.entries, networkEntry{prefix: prefix, span: span, iface: iface})
	slog.Debug("added network to interface translation", "network", prefix.String(), "interface", iface)

	return prefix, nil
}

// AddSpec parses "CIDR:interface" and adds it.
func (m *NetworkMap) AddSpec(spec string) (netip.Prefix, string, error) {
	network, iface, err := splitSpec(spec)
	if err != nil {
		return netip.Prefix{}, "", err
	}
	prefix, err := m.Add(network, iface)
	if err != nil {
		return netip.Prefix{}, "", err
	}
	return prefix, iface, nil
}

// Lookup returns the interface of the network containing addr.
func (m *NetworkMap) Lookup(addr netip.Addr) (string, bool) {
	e, ok := m.find(addr)
	return e.iface, ok
}

// LookupRange resolves the first address of r like Lookup and accepts
// the match only when the same network also holds the last address. The
// any sentinel and unset ranges never resolve.
func (m *NetworkMap) LookupRange(r model.IPRange) (string, bool) {
	if r.IsAny() || !r.IsSet() {
		return "", false
	}
	e, ok := m.find(r.From())
	if !ok || !e.span.Contains(r.To()) {
		return "", false
	}
	return e.iface, true
}

func (m *NetworkMap) find(addr netip.Addr) (networkEntry, bool) {
	if m == nil {
		return networkEntry{}, false
	}
	for _, e := range m.entries {
		if e.prefix.Contains(addr) {
			return e, true
		}
	}
	return networkEntry{}, false
}

// Len returns the number of networks.
func (m *NetworkMap) Len() int {
	return len(m.entries)
}

// parseNetwork accepts a CIDR or a bare address, the latter as a host prefix.
func parseNetwork(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		return netip.ParsePrefix(s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func splitSpec(spec string) (string, string, error) {
	tokens := strings.Split(spec, ":")
	if len(tokens) != 2 {
		return "", "", fmt.Errorf("%w: invalid spec %q", model.ErrFormat, spec)
	}
	return strings.TrimSpace(tokens[0]), strings.TrimSpace(tokens[1]), nil
}

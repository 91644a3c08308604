package model

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"

	"dstnat2fgt/internal/utils"
)

// anyLen is the number of addresses in the IPv4 space.
const anyLen uint64 = 1 << 32

// IPRange is an IPv4 address range. It is either unset (zero value), the
// "any" sentinel covering the whole IPv4 space, or an explicit span.
type IPRange struct {
	any  bool
	span netipx.IPRange
}

// AnyIPRange returns the sentinel covering every IPv4 address.
func AnyIPRange() IPRange {
	return IPRange{any: true}
}

// ParseIPRange accepts "any", "0.0.0.0", a CIDR network or "start[-end]".
// A /0 prefix is the any sentinel.
func ParseIPRange(spec string) (IPRange, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "any" || spec == "0.0.0.0" {
		return AnyIPRange(), nil
	}

	if strings.Contains(spec, "/") {
		prefix, err := netip.ParsePrefix(spec)
		if err != nil || !prefix.Addr().Is4() {
			return IPRange{}, fmt.Errorf("%w: invalid IP network %q", ErrFormat, spec)
		}
		if prefix != prefix.Masked() {
			return IPRange{}, fmt.Errorf("%w: invalid IP network %q: host bits set", ErrFormat, spec)
		}
		if prefix.Bits() == 0 {
			return AnyIPRange(), nil
		}
		return IPRange{span: netipx.RangeOfPrefix(prefix)}, nil
	}

	from, to, hasEnd := strings.Cut(spec, "-")
	start, err := parseAddr4(from)
	if err != nil {
		return IPRange{}, fmt.Errorf("%w: invalid IP range %q", ErrFormat, spec)
	}
	end := start
	if hasEnd {
		if end, err = parseAddr4(to); err != nil {
			return IPRange{}, fmt.Errorf("%w: invalid IP range %q", ErrFormat, spec)
		}
	}
	if end.Less(start) {
		start, end = end, start
	}

	return IPRange{span: netipx.IPRangeFrom(start, end)}, nil
}

func parseAddr4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", addr)
	}
	return addr, nil
}

// IsAny reports whether r is the any sentinel.
func (r IPRange) IsAny() bool {
	return r.any
}

// IsSet reports whether r holds at least one address.
func (r IPRange) IsSet() bool {
	return r.any || r.span.IsValid()
}

// Len returns the inclusive address count.
func (r IPRange) Len() uint64 {
	switch {
	case r.any:
		return anyLen
	case !r.span.IsValid():
		return 0
	default:
		return utils.RangeSize(r.span.From(), r.span.To())
	}
}

// From returns the first address of an explicit range.
func (r IPRange) From() netip.Addr {
	return r.span.From()
}

// To returns the last address of an explicit range.
func (r IPRange) To() netip.Addr {
	return r.span.To()
}

// Span returns the explicit range. It is invalid for unset and any ranges.
func (r IPRange) Span() netipx.IPRange {
	return r.span
}

func (r IPRange) String() string {
	switch {
	case r.any:
		return "0.0.0.0"
	case !r.span.IsValid():
		return ""
	case r.span.From() == r.span.To():
		return r.span.From().String()
	default:
		return fmt.Sprintf("%s-%s", r.span.From(), r.span.To())
	}
}

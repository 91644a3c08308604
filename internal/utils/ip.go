package utils

import (
	"encoding/binary"
	"net/netip"
)

// Uint32 returns an IPv4 address as a big-endian integer. Non-IPv4
// addresses return 0.
func Uint32(addr netip.Addr) uint32 {
	if !addr.Is4() {
		return 0
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// RangeSize returns the number of addresses between from and to, inclusive,
// regardless of their order.
func RangeSize(from, to netip.Addr) uint64 {
	a, b := uint64(Uint32(from)), uint64(Uint32(to))
	if a > b {
		a, b = b, a
	}
	return b - a + 1
}

package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxPort = 65535

var portRangeRegex = regexp.MustCompile(`^(\d+)(?:[-:](\d+))?$`)

// PortRange is an inclusive TCP/UDP port range. The zero value is the
// unspecified range.
type PortRange struct {
	Start int
	End   int
}

// ParsePortRange accepts "N", "N-M" or "N:M". Descending bounds are swapped.
// An empty spec yields the unspecified range.
func ParsePortRange(spec string) (PortRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return PortRange{}, nil
	}

	m := portRangeRegex.FindStringSubmatch(spec)
	if m == nil {
		return PortRange{}, fmt.Errorf("%w: invalid port range %q", ErrFormat, spec)
	}

	from, err := parsePort(m[1], spec)
	if err != nil {
		return PortRange{}, err
	}
	to := from
	if m[2] != "" {
		if to, err = parsePort(m[2], spec); err != nil {
			return PortRange{}, err
		}
	}
	if to < from {
		from, to = to, from
	}

	return PortRange{Start: from, End: to}, nil
}

func parsePort(digits, spec string) (int, error) {
	port, err := strconv.Atoi(digits)
	if err != nil || port < 1 || port > maxPort {
		return 0, fmt.Errorf("%w: invalid port range %q", ErrFormat, spec)
	}
	return port, nil
}

// IsSet reports whether the range carries any port.
func (r PortRange) IsSet() bool {
	return r.Start != 0
}

// Len returns the number of ports covered, 0 when unset.
func (r PortRange) Len() int {
	if !r.IsSet() {
		return 0
	}
	return r.End - r.Start + 1
}

// EqualSpec coerces spec to a PortRange and compares structurally.
// Unparseable specs never match.
func (r PortRange) EqualSpec(spec string) bool {
	other, err := ParsePortRange(spec)
	if err != nil {
		return false
	}
	return r == other
}

func (r PortRange) String() string {
	switch {
	case !r.IsSet():
		return ""
	case r.Start == r.End:
		return strconv.Itoa(r.Start)
	default:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	}
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		str     string
		length  uint64
		any     bool
		wantErr bool
	}{
		{"any keyword", "any", "0.0.0.0", 1 << 32, true, false},
		{"any uppercase", " ANY ", "0.0.0.0", 1 << 32, true, false},
		{"zero address", "0.0.0.0", "0.0.0.0", 1 << 32, true, false},
		{"default route", "0.0.0.0/0", "0.0.0.0", 1 << 32, true, false},
		{"cidr /24", "10.0.0.0/24", "10.0.0.0-10.0.0.255", 256, false, false},
		{"cidr /32", "1.2.3.4/32", "1.2.3.4", 1, false, false},
		{"single", "192.168.1.10", "192.168.1.10", 1, false, false},
		{"range", "10.0.0.1-10.0.0.5", "10.0.0.1-10.0.0.5", 5, false, false},
		{"descending range", "10.0.0.5-10.0.0.1", "10.0.0.1-10.0.0.5", 5, false, false},

		{"empty", "", "", 0, false, true},
		{"garbage", "not-an-ip", "", 0, false, true},
		{"host bits set", "10.0.0.1/24", "", 0, false, true},
		{"bad prefix", "10.0.0.0/33", "", 0, false, true},
		{"ipv6", "2001:db8::1", "", 0, false, true},
		{"bad range end", "10.0.0.1-x", "", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIPRange(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.str, got.String())
			assert.Equal(t, tt.length, got.Len())
			assert.Equal(t, tt.any, got.IsAny())
			assert.True(t, got.IsSet())
		})
	}
}

func TestIPRangeZeroValueIsUnset(t *testing.T) {
	var r IPRange
	assert.False(t, r.IsSet())
	assert.Equal(t, uint64(0), r.Len())
	assert.Equal(t, "", r.String())
}

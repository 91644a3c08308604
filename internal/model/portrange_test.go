package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    PortRange
		wantErr bool
	}{
		{"single", "80", PortRange{80, 80}, false},
		{"dash", "8000-8080", PortRange{8000, 8080}, false},
		{"colon", "1000:2000", PortRange{1000, 2000}, false},
		{"descending swapped", "20-10", PortRange{10, 20}, false},
		{"max port", "65535", PortRange{65535, 65535}, false},
		{"padded", " 443 ", PortRange{443, 443}, false},
		{"empty is unset", "", PortRange{}, false},

		{"too large", "65536", PortRange{}, true},
		{"upper too large", "80-70000", PortRange{}, true},
		{"zero", "0", PortRange{}, true},
		{"letters", "http", PortRange{}, true},
		{"open ended", "80-", PortRange{}, true},
		{"list", "80,443", PortRange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePortRange(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortRangeRoundTrip(t *testing.T) {
	for _, spec := range []string{"1", "80", "8000-8080", "20-10", "1:65535"} {
		first, err := ParsePortRange(spec)
		require.NoError(t, err)

		second, err := ParsePortRange(first.String())
		require.NoError(t, err)
		assert.Equal(t, first, second, "spec %q", spec)
	}
}

func TestPortRangeLenAndEquality(t *testing.T) {
	assert.Equal(t, 0, PortRange{}.Len())
	assert.Equal(t, 1, PortRange{443, 443}.Len())
	assert.Equal(t, 11, PortRange{10, 20}.Len())

	low, err := ParsePortRange("20-10")
	require.NoError(t, err)
	high, err := ParsePortRange("10-20")
	require.NoError(t, err)
	assert.Equal(t, low, high)

	assert.True(t, low.EqualSpec("10:20"))
	assert.False(t, low.EqualSpec("10"))
	assert.False(t, low.EqualSpec("bogus"))
	assert.True(t, PortRange{}.EqualSpec(""))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dstnat2fgt/internal/model"
)

func TestRegistryAddAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add("DNS", "53", "53", true))
	require.NoError(t, reg.Add("WEB", "80,443 8080-8090", "", false))

	name, ok, err := reg.LookupSpec("tcp", "53")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DNS", name)

	name, ok, err = reg.LookupSpec("UDP", "53")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DNS", name)

	name, ok, err = reg.Lookup("tcp", model.PortRange{Start: 8080, End: 8090})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "WEB", name)

	_, ok, err = reg.LookupSpec("udp", "443")
	require.NoError(t, err)
	assert.False(t, ok)

	svc, ok := reg.Get("WEB")
	require.True(t, ok)
	assert.Len(t, svc.TCP, 3)
	assert.Empty(t, svc.UDP)
	assert.False(t, svc.BuiltIn)
}

func TestRegistryLookupIsExactNotContainment(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add("RANGE", "80-90", "", false))

	_, ok, err := reg.LookupSpec("tcp", "80")
	require.NoError(t, err)
	assert.False(t, ok)

	name, ok, err := reg.LookupSpec("tcp", "90-80")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "RANGE", name)
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add("svc", "80", "", false))

	err := reg.Add("svc", "81", "", false)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry()

	assert.ErrorIs(t, reg.Add("bad", "80-x", "", false), model.ErrFormat)
	assert.False(t, reg.Has("bad"), "failed registration must not leave a partial service")
	assert.ErrorIs(t, reg.Add(" ", "80", "", false), model.ErrFormat)

	_, _, err := reg.LookupSpec("icmp", "80")
	assert.ErrorIs(t, err, model.ErrFormat)

	_, _, err = reg.LookupSpec("tcp", "99999")
	assert.ErrorIs(t, err, model.ErrFormat)
}

func TestRegistryLaterServiceTakesIndexEntry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add("ONC-RPC", "111", "111", true))
	require.NoError(t, reg.Add("NFS", "111,2049", "", true))

	name, _, err := reg.LookupSpec("tcp", "111")
	require.NoError(t, err)
	assert.Equal(t, "NFS", name)

	name, _, err = reg.LookupSpec("udp", "111")
	require.NoError(t, err)
	assert.Equal(t, "ONC-RPC", name)

	names := []string{}
	for _, svc := range reg.Services() {
		names = append(names, svc.Name)
	}
	assert.Equal(t, []string{"ONC-RPC", "NFS"}, names)
}

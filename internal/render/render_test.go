package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dstnat2fgt/internal/engine"
	"dstnat2fgt/internal/model"
	"dstnat2fgt/internal/services"
)

func classified(t *testing.T) *engine.Result {
	t.Helper()

	reg := services.NewRegistry()
	require.NoError(t, reg.Add("HTTPS", "443", "", true))

	newRule := func(protocol, ext, extPorts, intIP, comment string) *model.NATRule {
		rule := model.NewNATRule()
		var err error
		rule.Protocol, err = model.ParseProtocol(protocol)
		require.NoError(t, err)
		rule.ExternalAddress, err = model.ParseIPRange(ext)
		require.NoError(t, err)
		rule.ExternalPorts, err = model.ParsePortRange(extPorts)
		require.NoError(t, err)
		rule.InternalAddress, err = model.ParseIPRange(intIP)
		require.NoError(t, err)
		rule.ExternalInterface = "wan1"
		rule.InternalInterface = "lan1"
		rule.Comment = comment
		return rule
	}

	web := newRule("tcp", "1.2.3.4", "443", "10.0.0.5", "web")
	game := newRule("udp", "1.2.3.5", "27015-27016", "10.0.0.6", "")
	game.Disabled = true
	broken := newRule("tcp", "1.2.3.0/30", "80", "10.0.0.7", "")

	result, err := engine.NewClassifier(nil, nil, reg, engine.Options{}).Classify([]*model.NATRule{web, game, broken})
	require.NoError(t, err)
	return result
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, classified(t)))

	out := buf.String()
	assert.Contains(t, out, "3 rules, 1 invalid, 2 services synthesized")
	assert.Contains(t, out, "HTTPS")
	assert.Contains(t, out, "SERVICE-001")
	assert.Contains(t, out, "(disabled)")
	assert.Contains(t, out, "Issues")
	assert.Contains(t, out, "#3 tcp/wan1->1.2.3.0-1.2.3.3:80->lan1->10.0.0.7:80")
	assert.Contains(t, out, "uneven external and internal ip range sizes: 4 -> 1")
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, classified(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"1", "tcp", "wan1", "1.2.3.4", "443", "lan1", "10.0.0.5", "443", "HTTPS", "web"}, records[1])
	assert.Equal(t, "27015-27016", records[2][7])
	assert.Equal(t, "3", records[3][0])
}

func TestTerraformRules(t *testing.T) {
	result := classified(t)

	var buf bytes.Buffer
	require.NoError(t, TerraformRules(&buf, result, TerraformOptions{}))
	out := buf.String()

	assert.Contains(t, out, `resource "fortios_firewall_vip" "vip_001"`)
	assert.Contains(t, out, `resource "fortios_firewall_policy" "policy_002"`)
	assert.NotContains(t, out, "vip_003")
	assert.Contains(t, out, "fortios_firewall_vip.vip_001.name")
	assert.Contains(t, out, "fortios_firewallservice_custom.service_001.name")
	assert.Contains(t, out, `"HTTPS"`)
	// nat is disabled on both policies, status only on the disabled rule
	assert.Equal(t, 3, strings.Count(out, `"disable"`))
}

func TestTerraformRulesSDWAN(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TerraformRules(&buf, classified(t), TerraformOptions{UseSDWAN: true}))
	assert.Contains(t, buf.String(), `"virtual-wan-link"`)

	buf.Reset()
	require.NoError(t, TerraformRules(&buf, classified(t), TerraformOptions{UseSDWAN: true, SDWANZone: "wan-zone"}))
	assert.Contains(t, buf.String(), `"wan-zone"`)
	assert.NotContains(t, buf.String(), "virtual-wan-link")
}

func TestTerraformServices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TerraformServices(&buf, classified(t)))
	out := buf.String()

	assert.Contains(t, out, `resource "fortios_firewallservice_custom" "service_001"`)
	assert.Contains(t, out, `"SERVICE-001"`)
	assert.Contains(t, out, `"27015-27016"`)
	assert.Contains(t, out, "udp_portrange")
	assert.Contains(t, out, `resource "fortios_firewallservice_custom" "service_002"`)
	assert.Equal(t, 1, strings.Count(out, "tcp_portrange"))
	assert.NotContains(t, out, "HTTPS")
}

func TestServiceLabel(t *testing.T) {
	assert.Equal(t, "service_001", serviceLabel("SERVICE-001"))
	assert.Equal(t, "svc_8080_tcp", serviceLabel("8080/tcp"))
}

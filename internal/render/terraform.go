package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"dstnat2fgt/internal/engine"
	"dstnat2fgt/internal/model"
)

const (
	resourceVIP     = "fortios_firewall_vip"
	resourcePolicy  = "fortios_firewall_policy"
	resourceService = "fortios_firewallservice_custom"

	defaultSDWANZone = "virtual-wan-link"
)

// TerraformOptions selects the policy source interface. With UseSDWAN the
// policies enter through SDWANZone instead of the external interface.
type TerraformOptions struct {
	UseSDWAN  bool
	SDWANZone string
}

// TerraformRules writes a virtual IP and an accept policy for every rule
// that classified without problems.
func TerraformRules(w io.Writer, result *engine.Result, opts TerraformOptions) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	synthesized := make(map[string]bool)
	for _, svc := range result.Synthesized() {
		synthesized[svc.Name] = true
	}

	for i, cl := range result.Valid() {
		if i > 0 {
			body.AppendNewline()
		}
		vipLabel := fmt.Sprintf("vip_%03d", cl.Index)
		vipName := fmt.Sprintf("DNAT-%03d", cl.Index)
		writeVIP(body.AppendNewBlock("resource", []string{resourceVIP, vipLabel}).Body(), vipName, cl)
		body.AppendNewline()
		writePolicy(body.AppendNewBlock("resource", []string{resourcePolicy, fmt.Sprintf("policy_%03d", cl.Index)}).Body(),
			vipName, vipLabel, cl, synthesized[cl.Service], opts)
	}

	_, err := w.Write(f.Bytes())
	return err
}

// TerraformServices writes a custom service for every service added during
// classification.
func TerraformServices(w io.Writer, result *engine.Result) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	for i, svc := range result.Synthesized() {
		if i > 0 {
			body.AppendNewline()
		}
		b := body.AppendNewBlock("resource", []string{resourceService, serviceLabel(svc.Name)}).Body()
		b.SetAttributeValue("name", cty.StringVal(svc.Name))
		if len(svc.TCP) > 0 {
			b.SetAttributeValue("tcp_portrange", cty.StringVal(joinRanges(svc.TCP)))
		}
		if len(svc.UDP) > 0 {
			b.SetAttributeValue("udp_portrange", cty.StringVal(joinRanges(svc.UDP)))
		}
	}

	_, err := w.Write(f.Bytes())
	return err
}

func writeVIP(b *hclwrite.Body, name string, cl engine.Classification) {
	r := cl.Rule
	b.SetAttributeValue("name", cty.StringVal(name))
	b.SetAttributeValue("extintf", cty.StringVal(r.ExternalInterface))
	b.SetAttributeValue("extip", cty.StringVal(r.ExternalAddress.String()))
	if r.Comment != "" {
		b.SetAttributeValue("comment", cty.StringVal(r.Comment))
	}
	b.AppendNewBlock("mappedip", nil).Body().SetAttributeValue("range", cty.StringVal(r.InternalAddress.String()))

	if r.Protocol.SupportsPorts() {
		b.SetAttributeValue("portforward", cty.StringVal("enable"))
		b.SetAttributeValue("protocol", cty.StringVal(r.Protocol.Name))
		b.SetAttributeValue("extport", cty.StringVal(r.ExternalPorts.String()))
		b.SetAttributeValue("mappedport", cty.StringVal(r.InternalPorts.String()))
	}
}

func writePolicy(b *hclwrite.Body, name, vipLabel string, cl engine.Classification, customService bool, opts TerraformOptions) {
	r := cl.Rule
	status := "enable"
	if r.Disabled {
		status = "disable"
	}
	srcintf := r.ExternalInterface
	if opts.UseSDWAN {
		srcintf = opts.SDWANZone
		if srcintf == "" {
			srcintf = defaultSDWANZone
		}
	}

	b.SetAttributeValue("name", cty.StringVal(name))
	b.SetAttributeValue("action", cty.StringVal("accept"))
	b.SetAttributeValue("schedule", cty.StringVal("always"))
	b.SetAttributeValue("status", cty.StringVal(status))
	b.SetAttributeValue("nat", cty.StringVal("disable"))
	b.SetAttributeValue("logtraffic", cty.StringVal("all"))
	if r.Comment != "" {
		b.SetAttributeValue("comments", cty.StringVal(r.Comment))
	}

	b.AppendNewBlock("srcintf", nil).Body().SetAttributeValue("name", cty.StringVal(srcintf))
	b.AppendNewBlock("dstintf", nil).Body().SetAttributeValue("name", cty.StringVal(r.InternalInterface))
	b.AppendNewBlock("srcaddr", nil).Body().SetAttributeValue("name", cty.StringVal("all"))
	b.AppendNewBlock("dstaddr", nil).Body().SetAttributeTraversal("name", hcl.Traversal{
		hcl.TraverseRoot{Name: resourceVIP},
		hcl.TraverseAttr{Name: vipLabel},
		hcl.TraverseAttr{Name: "name"},
	})

	svc := b.AppendNewBlock("service", nil).Body()
	switch {
	case customService:
		svc.SetAttributeTraversal("name", hcl.Traversal{
			hcl.TraverseRoot{Name: resourceService},
			hcl.TraverseAttr{Name: serviceLabel(cl.Service)},
			hcl.TraverseAttr{Name: "name"},
		})
	case cl.Service != "":
		svc.SetAttributeValue("name", cty.StringVal(cl.Service))
	default:
		svc.SetAttributeValue("name", cty.StringVal("ALL"))
	}
}

// serviceLabel turns a service name into a Terraform resource label.
func serviceLabel(name string) string {
	label := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	if label == "" || (label[0] >= '0' && label[0] <= '9') {
		label = "svc_" + label
	}
	return label
}

// joinRanges formats ranges as a FortiOS space separated port range list.
func joinRanges(ranges []model.PortRange) string {
	parts := make([]string, len(ranges))
	for i, pr := range ranges {
		parts[i] = pr.String()
	}
	return strings.Join(parts, " ")
}

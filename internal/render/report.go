package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"dstnat2fgt/internal/engine"
	"dstnat2fgt/internal/model"
)

var (
	colorIce   = lipgloss.Color("#A8D8EA")
	colorDeep  = lipgloss.Color("#596E79")
	colorAlert = lipgloss.Color("#FF6B6B")
	colorWarn  = lipgloss.Color("#FFE66D")
	colorMuted = lipgloss.Color("#6c757d")

	styleTitle       = lipgloss.NewStyle().Foreground(colorIce).Bold(true)
	styleTableHeader = lipgloss.NewStyle().Foreground(colorDeep).Bold(true).Padding(0, 1)
	styleTableRow    = lipgloss.NewStyle().Padding(0, 1)
	styleInvalidRow  = styleTableRow.Foreground(colorAlert)
	styleDisabledRow = styleTableRow.Foreground(colorMuted)
	styleIssue       = lipgloss.NewStyle().Foreground(colorWarn)
)

var statusMarkers = map[engine.Status]string{
	engine.StatusOK:        "✅",
	engine.StatusDefaulted: "⚠️",
	engine.StatusInvalid:   "⛔",
}

var reportHeaders = []string{"#", "", "PROTO", "EXT INTF", "EXT IP", "EXT PORTS", "INT INTF", "INT IP", "INT PORTS", "SERVICE", "COMMENT"}

// Report writes the classified rules as a table followed by the problems
// of every invalid rule.
func Report(w io.Writer, result *engine.Result) error {
	rows := make([][]string, 0, len(result.Rules))
	for _, cl := range result.Rules {
		rows = append(rows, reportRow(cl))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDeep)).
		Headers(reportHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			if row < 0 || row >= len(result.Rules) {
				return styleTableRow
			}
			cl := result.Rules[row]
			switch {
			case cl.Status == engine.StatusInvalid:
				return styleInvalidRow
			case cl.Rule.Disabled:
				return styleDisabledRow
			}
			return styleTableRow
		})

	title := fmt.Sprintf("%d rules, %d invalid, %d services synthesized",
		len(result.Rules), len(result.Invalid), len(result.Synthesized()))
	if _, err := fmt.Fprintln(w, styleTitle.Render(title)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	if len(result.Invalid) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(styleTitle.Render("Issues"))
	b.WriteString("\n")
	for _, d := range result.Invalid {
		fmt.Fprintf(&b, "#%d %s\n", d.Index, d.Rule)
		for _, p := range d.Problems {
			b.WriteString(styleIssue.Render("  - " + p))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func reportRow(cl engine.Classification) []string {
	r := cl.Rule
	comment := r.Comment
	if r.Disabled {
		comment = strings.TrimSpace("(disabled) " + comment)
	}
	return []string{
		strconv.Itoa(cl.Index),
		statusMarkers[cl.Status],
		protocolName(r.Protocol),
		r.ExternalInterface,
		r.ExternalAddress.String(),
		r.ExternalPorts.String(),
		r.InternalInterface,
		r.InternalAddress.String(),
		r.InternalPorts.String(),
		cl.Service,
		comment,
	}
}

func protocolName(p model.Protocol) string {
	if !p.IsSet() {
		return "all"
	}
	return p.Name
}

package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// Table renders the report as one bordered table row per node value.
func (r *AnalysisReport) Table() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", r.Scenery, r.Mode)))
	s.WriteString("\n")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))).
		Headers("node", "type", "value", "").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, n := range r.Nodes {
		name := strings.Join(append(append([]string(nil), n.Path...), n.Name), "/")
		if n.Error != "" {
			t.Row(name, n.Type, "error", errorStyle.Render(n.Error))
			continue
		}
		for i, k := range n.Keys() {
			if i > 0 {
				name = ""
			}
			t.Row(name, n.Type, k, FormatValue(n.Values[k]))
		}
	}
	s.WriteString(t.String())
	return s.String()
}

// FormatValue renders a report value for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case *spectrum.Spectrum:
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("spectrum, %d points", v.Len())
	case float64:
		return fmt.Sprintf("%.6g", v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

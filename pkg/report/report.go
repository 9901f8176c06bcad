// Package report gives read access to the diagnostic state detectors keep
// after an analysis and exports it as YAML, JSON or a text table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
)

// Format selects the export format.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// ParseFormat accepts format names case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// NodeReport is the diagnostic state of one node.
type NodeReport struct {
	ID        uuid.UUID      `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Type      string         `yaml:"type" json:"type"`
	Path      []string       `yaml:"path,omitempty" json:"path,omitempty"`
	HitPoints int            `yaml:"hit_points" json:"hit_points"`
	Values    map[string]any `yaml:"values" json:"values"`
	Error     string         `yaml:"error,omitempty" json:"error,omitempty"`
}

// Keys returns the value names in sorted order.
func (n NodeReport) Keys() []string {
	keys := make([]string, 0, len(n.Values))
	for k := range n.Values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AnalysisReport collects the node reports of one analysis run.
type AnalysisReport struct {
	Run         uuid.UUID    `yaml:"run" json:"run"`
	Scenery     string       `yaml:"scenery" json:"scenery"`
	Mode        string       `yaml:"mode" json:"mode"`
	Document    string       `yaml:"document,omitempty" json:"document,omitempty"`
	Fingerprint string       `yaml:"fingerprint,omitempty" json:"fingerprint,omitempty"`
	Started     time.Time    `yaml:"started" json:"started"`
	Duration    float64      `yaml:"duration_s" json:"duration_s"`
	Nodes       []NodeReport `yaml:"nodes" json:"nodes"`
}

// Collect walks the group and gathers the reports of all nodes holding
// diagnostic state. A failing node report is kept with its error.
func Collect(g *scenery.Group, mode optic.Mode) *AnalysisReport {
	return CollectWith(g, mode, nil)
}

// CollectWith is Collect calling fn with every node report and the time it
// took to compute. fn may be nil.
func CollectWith(g *scenery.Group, mode optic.Mode, fn func(NodeReport, time.Duration)) *AnalysisReport {
	r := &AnalysisReport{
		Run:     uuid.New(),
		Scenery: g.Name(),
		Mode:    mode.String(),
		Started: time.Now().UTC(),
	}
	g.Walk(func(path []string, n optic.Node) {
		rep, ok := n.(optic.Reporter)
		if !ok {
			return
		}
		nr := NodeReport{
			ID:        n.ID(),
			Name:      n.Name(),
			Type:      n.NodeType(),
			Path:      path,
			HitPoints: hitPoints(n),
		}
		start := time.Now()
		values, err := rep.Report()
		if err != nil {
			nr.Error = err.Error()
		}
		nr.Values = values
		if fn != nil {
			fn(nr, time.Since(start))
		}
		r.Nodes = append(r.Nodes, nr)
	})
	return r
}

func hitPoints(n optic.Node) int {
	total := 0
	for _, s := range n.Ports().Surfaces() {
		total += s.HitMap().Len()
	}
	return total
}

// Node returns the report of the first node with the given name.
func (r *AnalysisReport) Node(name string) (NodeReport, bool) {
	i := slices.IndexFunc(r.Nodes, func(n NodeReport) bool { return n.Name == name })
	if i < 0 {
		return NodeReport{}, false
	}
	return r.Nodes[i], true
}

// Failed returns the reports that carry an error.
func (r *AnalysisReport) Failed() []NodeReport {
	var out []NodeReport
	for _, n := range r.Nodes {
		if n.Error != "" {
			out = append(out, n)
		}
	}
	return out
}

// Write exports the report in the given format.
func (r *AnalysisReport) Write(w io.Writer, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatTable:
		_, err := io.WriteString(w, r.Table()+"\n")
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

// Marshal returns the JSON form used by run archives.
func (r *AnalysisReport) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal parses a report written by Marshal. Values come back as plain
// JSON types.
func Unmarshal(data []byte) (*AnalysisReport, error) {
	var r AnalysisReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Package document reads and writes optical bench documents (.opm).
//
// A document is versioned YAML holding the global configuration, the
// analyzers to run and the scenery: nested groups with their nodes, edges,
// mapped ports and references. Nodes are written as their type, id,
// alignment and writable properties; everything else is rebuilt from the
// node type on load. Documents may be snappy or zstd compressed.
package document

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	"github.com/dd0wney/cluso-opticbench/pkg/analyzer"
	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/metrics"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Version is the document format written by this package. Documents of
// other versions are read with a warning.
const Version = "1.0"

// Config holds the settings shared by all analyzers of a document.
type Config struct {
	// AmbientIndex is the refractive index of the medium between nodes.
	// It applies to analyzers without an explicit ray trace configuration.
	AmbientIndex float64 `yaml:"ambient_index" json:"ambient_index"`
}

// DefaultConfig places the bench in vacuum.
func DefaultConfig() Config {
	return Config{AmbientIndex: 1}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.NewConfigValidator("config").
		Finite("ambient_index", c.AmbientIndex).
		RangeFloat("ambient_index", c.AmbientIndex, 1, 10).
		Validate()
	if err != nil {
		return optic.ConfigError("validate document config", err)
	}
	return nil
}

// Document is an optical setup with the analyzers to run on it.
type Document struct {
	Version   string
	Config    Config
	Analyzers []analyzer.Spec
	Scenery   *scenery.Group
	// Fingerprint is the BLAKE3 hash of the uncompressed YAML form, set
	// by Encode and Decode.
	Fingerprint string
}

// New returns a document of the current version holding g.
func New(g *scenery.Group, analyzers ...*analyzer.Analyzer) *Document {
	d := &Document{Version: Version, Config: DefaultConfig(), Scenery: g}
	for _, a := range analyzers {
		d.Analyzers = append(d.Analyzers, a.Spec())
	}
	return d
}

// BuildAnalyzers returns the analyzers of the document. The global
// ambient index fills in configurations the specs leave out; opts are
// passed to every analyzer.
func (d *Document) BuildAnalyzers(opts ...analyzer.Option) ([]*analyzer.Analyzer, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	out := make([]*analyzer.Analyzer, 0, len(d.Analyzers))
	for i, s := range d.Analyzers {
		if s.RayTrace == nil {
			cfg := optic.DefaultRayTraceConfig()
			cfg.AmbientIndex = d.Config.AmbientIndex
			s.RayTrace = &cfg
		}
		if s.GhostFocus == nil {
			cfg := optic.DefaultGhostFocusConfig()
			cfg.RayTrace.AmbientIndex = d.Config.AmbientIndex
			s.GhostFocus = &cfg
		}
		a, err := s.Build(opts...)
		if err != nil {
			return nil, fmt.Errorf("analyzer %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// file is the wire form of a document.
type file struct {
	Version   string          `yaml:"version"`
	Config    Config          `yaml:"config"`
	Analyzers []analyzer.Spec `yaml:"analyzers,omitempty"`
	Scenery   NodeSpec        `yaml:"scenery"`
}

// Option configures encoding and decoding.
type Option func(*options)

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// WithLogger receives version warnings and load timings.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records document sizes and outcomes in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

func newOptions(opts []Option) *options {
	o := &options{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fingerprint returns the hex BLAKE3-256 hash of data.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encode writes the document with codec c and sets its fingerprint.
func Encode(d *Document, c Codec, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	data, err := encode(d)
	if err != nil {
		o.metrics.RecordDocument("encode", string(c), "error", 0)
		return nil, err
	}
	d.Fingerprint = Fingerprint(data)
	out, err := c.compress(data)
	if err != nil {
		o.metrics.RecordDocument("encode", string(c), "error", 0)
		return nil, optic.NewError("encode document").Data().Cause(err).Err()
	}
	o.metrics.RecordDocument("encode", string(c), "success", len(out))
	return out, nil
}

func encode(d *Document) ([]byte, error) {
	if d.Scenery == nil {
		return nil, optic.ConfigError("encode document", fmt.Errorf("document has no scenery"))
	}
	root, err := encodeNode(d.Scenery)
	if err != nil {
		return nil, err
	}
	f := file{
		Version:   validation.DefaultOr(d.Version, Version),
		Config:    d.Config,
		Analyzers: d.Analyzers,
		Scenery:   root,
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, optic.NewError("encode document").Data().Cause(err).Err()
	}
	if err := enc.Close(); err != nil {
		return nil, optic.NewError("encode document").Data().Cause(err).Err()
	}
	return buf.Bytes(), nil
}

// Decode reads a document written with codec c.
func Decode(data []byte, c Codec, opts ...Option) (*Document, error) {
	o := newOptions(opts)
	timer := logging.StartTimer(o.logger, "document decoded", logging.String("codec", string(c)))
	d, err := decode(data, c, o)
	if err != nil {
		timer.EndError(err)
		o.metrics.RecordDocument("decode", string(c), "error", len(data))
		return nil, err
	}
	nodes, edges := d.Scenery.Counts()
	timer.End(logging.Int("nodes", nodes), logging.Int("edges", edges))
	o.metrics.RecordDocument("decode", string(c), "success", len(data))
	return d, nil
}

func decode(data []byte, c Codec, o *options) (*Document, error) {
	plain, err := c.decompress(data)
	if err != nil {
		return nil, optic.NewError("decode document").Data().Cause(err).Err()
	}
	f := file{Config: DefaultConfig()}
	if err := yaml.Unmarshal(plain, &f); err != nil {
		return nil, optic.NewError("decode document").Data().Cause(err).Err()
	}
	if f.Version != Version {
		o.logger.Warn("document version differs, reading anyway",
			logging.String("version", f.Version),
			logging.String("supported", Version))
	}
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	for i, s := range f.Analyzers {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("analyzer %d: %w", i, err)
		}
	}
	if f.Scenery.Type != scenery.TypeGroup {
		return nil, optic.ConfigError("decode document",
			fmt.Errorf("scenery must be a %s, not %q", scenery.TypeGroup, f.Scenery.Type))
	}
	root, err := decodeGroup(f.Scenery)
	if err != nil {
		return nil, err
	}
	return &Document{
		Version:     f.Version,
		Config:      f.Config,
		Analyzers:   f.Analyzers,
		Scenery:     root,
		Fingerprint: Fingerprint(plain),
	}, nil
}

// stamp returns the current time as stored in object metadata.
func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

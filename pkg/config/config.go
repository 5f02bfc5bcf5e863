// Package config loads annotree settings from HCL, YAML or TOML files.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/annotree/pkg/dump"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "annotree.hcl"

// 📝 Config file structure
type Config struct {
	// Jobs bounds parallel fragment loading. Zero means one per CPU.
	Jobs     int    `json:"jobs,omitempty" yaml:"jobs,omitempty" toml:"jobs,omitempty" hcl:"jobs,optional"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" hcl:"log_level,optional"`
	Color    *bool  `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty" hcl:"color,optional"`

	Resolve  bool `json:"resolve,omitempty" yaml:"resolve,omitempty" toml:"resolve,omitempty" hcl:"resolve,optional"`
	FailFast bool `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty" toml:"fail_fast,omitempty" hcl:"fail_fast,optional"`

	// Inputs are doublestar patterns naming dump files.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty" toml:"inputs,omitempty" hcl:"inputs,optional"`

	Output *Output `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty" hcl:"output,block"`
}

// Output says where merged results are written.
type Output struct {
	Path string `json:"path" yaml:"path" toml:"path" hcl:"path,attr"`
	// Format overrides the format implied by Path's extension.
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty" hcl:"format,optional"`
}

func Default() *Config {
	color := true
	return &Config{
		LogLevel: zerolog.InfoLevel.String(),
		Color:    &color,
	}
}

// UseColor reports whether colored console output is wanted.
func (c *Config) UseColor() bool {
	return c.Color == nil || *c.Color
}

// Level is the parsed log level; Validate rejects unparsable values.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// OutputFormat resolves the output encoding, explicit or by extension.
func (c *Config) OutputFormat() (dump.Format, error) {
	if c.Output == nil {
		return dump.FormatJSON, nil
	}
	if c.Output.Format != "" {
		return dump.ParseFormat(c.Output.Format)
	}
	return dump.FormatFor(c.Output.Path)
}

// Load reads the config at path. The syntax follows the extension: .yaml and
// .yml are YAML, .toml is TOML, anything else is HCL. Unknown fields are
// rejected in every syntax. Fields absent from the file keep their defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("parsing TOML: unknown field %q", undecoded[0].String())
		}
	default:
		if err := decodeHCL(data, path, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func decodeHCL(data []byte, path string, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// env.NAME is available to expressions, e.g. inputs = ["${env.OUT}/*.json"]
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	diags = gohcl.DecodeBody(hclFile.Body, ctx, cfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return nil
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Jobs < 0 {
		result = multierror.Append(result, errors.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			result = multierror.Append(result, errors.Errorf("log_level: %w", err))
		}
	}
	for _, in := range c.Inputs {
		if !doublestar.ValidatePattern(filepath.ToSlash(in)) {
			result = multierror.Append(result, errors.Errorf("inputs: invalid pattern %q", in))
		}
	}
	if c.Output != nil {
		if c.Output.Path == "" {
			result = multierror.Append(result, errors.New("output: path is required"))
		} else if _, err := c.OutputFormat(); err != nil {
			result = multierror.Append(result, errors.Errorf("output: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// Package config loads the optional oasplit project configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a project file (oasplit.toml, oasplit.yaml, oasplit.yml or oasplit.json)
// and OASPLIT_* environment variables. Command-line flags are applied on top
// by the caller.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/decomposer"
	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/pathsplit"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v4"
)

//go:embed schema.json
var schemaJSON []byte

const schemaLocation = "oasplit-config.schema.json"

// FileNames are the project file names looked up by Find, in order.
var FileNames = []string{"oasplit.toml", "oasplit.yaml", "oasplit.yml", "oasplit.json"}

// File mirrors the project file. Unset booleans keep their defaults.
type File struct {
	Source            string               `toml:"source" yaml:"source" json:"source"`
	OutputDir         string               `toml:"output_dir" yaml:"output_dir" json:"output_dir"`
	RootName          string               `toml:"root_name" yaml:"root_name" json:"root_name"`
	Prefix            string               `toml:"prefix" yaml:"prefix" json:"prefix"`
	Ext               string               `toml:"ext" yaml:"ext" json:"ext"`
	CatchAll          string               `toml:"catch_all" yaml:"catch_all" json:"catch_all"`
	Rules             classifier.RuleTable `toml:"rules" yaml:"rules" json:"rules"`
	ExtractComponents *bool                `toml:"extract_components" yaml:"extract_components" json:"extract_components"`
	SynthesizeTags    *bool                `toml:"synthesize_tags" yaml:"synthesize_tags" json:"synthesize_tags"`
	AllowDuplicate    *bool                `toml:"allow_duplicate" yaml:"allow_duplicate" json:"allow_duplicate"`
}

// Config is the resolved configuration.
type Config struct {
	// Path is the project file the values came from ("" when none)
	Path string

	Source            string
	OutputDir         string
	RootName          string
	Prefix            string
	Ext               string
	CatchAll          string
	Rules             classifier.RuleTable
	ExtractComponents bool
	SynthesizeTags    bool
	AllowDuplicate    bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RootName:          decomposer.DefaultRootName,
		Prefix:            pathsplit.DefaultPrefix,
		Ext:               fragment.DefaultExt,
		CatchAll:          classifier.DefaultCatchAll,
		Rules:             classifier.DefaultRules(),
		ExtractComponents: true,
		SynthesizeTags:    true,
	}
}

// Find returns the first project file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Load reads a project file, validates it against the configuration schema
// and merges it over the defaults. Relative source and output paths are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &oaserrors.ConfigError{Option: "config", Value: path, Message: "cannot read config file", Cause: err}
	}
	f, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Path = path
	cfg.merge(f, filepath.Dir(path))
	return cfg, nil
}

// LoadDir loads the project file found in dir, or the defaults when there is none.
func LoadDir(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func decode(path string, data []byte) (*File, error) {
	var raw map[string]any
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		unmarshal = toml.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return nil, &oaserrors.ConfigError{Option: "config", Value: path, Message: "config file must be .toml, .yaml, .yml or .json"}
	}
	if err := unmarshal(data, &raw); err != nil {
		return nil, &oaserrors.ConfigError{Option: "config", Value: path, Message: "cannot decode config file", Cause: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, &oaserrors.ConfigError{Option: "config", Value: path, Message: "config file does not match the schema", Cause: err}
	}

	f := &File{}
	if err := unmarshal(data, f); err != nil {
		return nil, &oaserrors.ConfigError{Option: "config", Value: path, Message: "cannot decode config file", Cause: err}
	}
	return f, nil
}

// validate checks a decoded document against the embedded schema. The
// document goes through JSON first so TOML and YAML values reach the
// validator as JSON types.
func validate(raw any) error {
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(normalized))
	if err != nil {
		return err
	}
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaLocation, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaLocation)
}

func (c *Config) merge(f *File, base string) {
	if f.Source != "" {
		c.Source = resolve(base, f.Source)
	}
	if f.OutputDir != "" {
		c.OutputDir = resolve(base, f.OutputDir)
	}
	setString(&c.RootName, f.RootName)
	setString(&c.Prefix, f.Prefix)
	setString(&c.Ext, f.Ext)
	setString(&c.CatchAll, f.CatchAll)
	if f.Rules != nil {
		c.Rules = f.Rules
	}
	setBool(&c.ExtractComponents, f.ExtractComponents)
	setBool(&c.SynthesizeTags, f.SynthesizeTags)
	setBool(&c.AllowDuplicate, f.AllowDuplicate)
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// ApplyEnv overrides values from OASPLIT_* environment variables.
// OASPLIT_RULES holds "category=pattern" entries separated by ';'.
func (c *Config) ApplyEnv() {
	c.Source = envString("OASPLIT_SOURCE", c.Source)
	c.OutputDir = envString("OASPLIT_OUTPUT_DIR", c.OutputDir)
	c.RootName = envString("OASPLIT_ROOT_NAME", c.RootName)
	c.Prefix = envString("OASPLIT_PREFIX", c.Prefix)
	c.Ext = envString("OASPLIT_EXT", c.Ext)
	c.CatchAll = envString("OASPLIT_CATCH_ALL", c.CatchAll)
	c.ExtractComponents = envBool("OASPLIT_EXTRACT_COMPONENTS", c.ExtractComponents)
	c.SynthesizeTags = envBool("OASPLIT_SYNTHESIZE_TAGS", c.SynthesizeTags)
	c.AllowDuplicate = envBool("OASPLIT_ALLOW_DUPLICATE", c.AllowDuplicate)
	c.Rules = envRules("OASPLIT_RULES", c.Rules)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

func envRules(key string, fallback classifier.RuleTable) classifier.RuleTable {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var rules classifier.RuleTable
	for _, entry := range strings.Split(v, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		rule, err := classifier.ParseRule(entry)
		if err != nil {
			slog.Warn("invalid rule in env var, using default rules", "key", key, "rule", entry)
			return fallback
		}
		rules = append(rules, rule)
	}
	return rules
}

// DecomposerOptions converts the configuration into decomposer options.
// The input source is left to the caller.
func (c *Config) DecomposerOptions() []decomposer.Option {
	opts := []decomposer.Option{
		decomposer.WithRootName(c.RootName),
		decomposer.WithPrefix(c.Prefix),
		decomposer.WithExt(c.Ext),
		decomposer.WithCatchAll(c.CatchAll),
		decomposer.WithRules(c.Rules),
		decomposer.WithExtractComponents(c.ExtractComponents),
		decomposer.WithSynthesizeTags(c.SynthesizeTags),
		decomposer.WithAllowDuplicate(c.AllowDuplicate),
	}
	if c.OutputDir != "" {
		opts = append(opts, decomposer.WithOutputDir(c.OutputDir))
	}
	return opts
}

// String summarizes the configuration for verbose output.
func (c *Config) String() string {
	source := c.Path
	if source == "" {
		source = "defaults"
	}
	return fmt.Sprintf("config(%s): prefix=%s ext=%s catch-all=%s rules=%d components=%t tags=%t duplicate=%t",
		source, c.Prefix, c.Ext, c.CatchAll, len(c.Rules), c.ExtractComponents, c.SynthesizeTags, c.AllowDuplicate)
}

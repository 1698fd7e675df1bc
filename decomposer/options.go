package decomposer

import (
	"context"
	"fmt"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/internal/options"
	"github.com/erraggy/oasplit/parser"
)

// Option is a function that configures a decompose operation
type Option func(*decomposeConfig) error

// decomposeConfig holds configuration for a decompose operation
type decomposeConfig struct {
	// Input source (exactly one must be set)
	filePath *string
	bytes    []byte
	parsed   *parser.ParseResult

	outputDir         string
	rootName          string
	prefix            string
	ext               string
	rules             classifier.RuleTable
	catchAll          string
	extractComponents bool
	synthesizeTags    bool
	reconcile         bool
	allowDuplicate    bool
	dryRun            bool
	logger            parser.Logger
}

// DecomposeWithOptions decomposes an OpenAPI document using functional options.
//
// Example:
//
//	result, err := decomposer.DecomposeWithOptions(ctx,
//	    decomposer.WithFilePath("openapi.yaml"),
//	    decomposer.WithOutputDir("src/v2"),
//	    decomposer.WithPrefix("/v2/farcaster"),
//	)
func DecomposeWithOptions(ctx context.Context, opts ...Option) (*DecomposeResult, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("decomposer: invalid options: %w", err)
	}

	d := &Decomposer{
		OutputDir:         cfg.outputDir,
		RootName:          cfg.rootName,
		Prefix:            cfg.prefix,
		Ext:               cfg.ext,
		Rules:             cfg.rules,
		CatchAll:          cfg.catchAll,
		ExtractComponents: cfg.extractComponents,
		SynthesizeTags:    cfg.synthesizeTags,
		Reconcile:         cfg.reconcile,
		AllowDuplicate:    cfg.allowDuplicate,
		DryRun:            cfg.dryRun,
		Logger:            cfg.logger,
	}

	switch {
	case cfg.filePath != nil:
		return d.Decompose(ctx, *cfg.filePath)
	case cfg.parsed != nil:
		return d.DecomposeParsed(ctx, cfg.parsed)
	default:
		res, err := (&parser.Parser{Logger: cfg.logger}).ParseBytes(cfg.bytes)
		if err != nil {
			return nil, err
		}
		return d.DecomposeParsed(ctx, res)
	}
}

// applyOptions applies option functions and validates configuration
func applyOptions(opts ...Option) (*decomposeConfig, error) {
	cfg := &decomposeConfig{
		// Set defaults
		rootName:          DefaultRootName,
		extractComponents: true,
		synthesizeTags:    true,
		reconcile:         true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := options.ExactlyOne([]string{"WithFilePath", "WithBytes", "WithParsed"},
		cfg.filePath != nil, cfg.bytes != nil, cfg.parsed != nil); err != nil {
		return nil, err
	}
	if cfg.filePath == nil && cfg.outputDir == "" {
		return nil, fmt.Errorf("an output directory is required when the source is not a file: use WithOutputDir")
	}
	if cfg.allowDuplicate && !cfg.reconcile {
		return nil, fmt.Errorf("duplicate repair requires the reconcile pass")
	}
	return cfg, nil
}

// WithFilePath specifies the document to decompose
func WithFilePath(path string) Option {
	return func(cfg *decomposeConfig) error {
		if path == "" {
			return fmt.Errorf("file path cannot be empty")
		}
		cfg.filePath = &path
		return nil
	}
}

// WithBytes specifies the document content to decompose
func WithBytes(data []byte) Option {
	return func(cfg *decomposeConfig) error {
		if data == nil {
			return fmt.Errorf("bytes cannot be nil")
		}
		cfg.bytes = data
		return nil
	}
}

// WithParsed specifies an already parsed document to decompose
func WithParsed(result *parser.ParseResult) Option {
	return func(cfg *decomposeConfig) error {
		if result == nil || result.Root == nil {
			return fmt.Errorf("parsed result cannot be nil")
		}
		cfg.parsed = result
		return nil
	}
}

// WithOutputDir sets the directory receiving the root document and fragments.
// Defaults to the directory of the source file.
func WithOutputDir(dir string) Option {
	return func(cfg *decomposeConfig) error {
		cfg.outputDir = dir
		return nil
	}
}

// WithRootName sets the file name of the generated root document
func WithRootName(name string) Option {
	return func(cfg *decomposeConfig) error {
		if name == "" {
			return fmt.Errorf("root name cannot be empty")
		}
		cfg.rootName = name
		return nil
	}
}

// WithPrefix sets the API path prefix, e.g. "/farcaster"
func WithPrefix(prefix string) Option {
	return func(cfg *decomposeConfig) error {
		cfg.prefix = prefix
		return nil
	}
}

// WithExt sets the fragment extension ("yaml" or "yml")
func WithExt(ext string) Option {
	return func(cfg *decomposeConfig) error {
		cfg.ext = ext
		return nil
	}
}

// WithRules replaces the schema rule table
func WithRules(rules classifier.RuleTable) Option {
	return func(cfg *decomposeConfig) error {
		cfg.rules = rules
		return nil
	}
}

// WithCatchAll sets the fallback schema category
func WithCatchAll(category string) Option {
	return func(cfg *decomposeConfig) error {
		cfg.catchAll = category
		return nil
	}
}

// WithExtractComponents toggles per-component fragments for parameters,
// responses and security schemes (default on)
func WithExtractComponents(enabled bool) Option {
	return func(cfg *decomposeConfig) error {
		cfg.extractComponents = enabled
		return nil
	}
}

// WithSynthesizeTags toggles tag synthesis for documents without tags (default on)
func WithSynthesizeTags(enabled bool) Option {
	return func(cfg *decomposeConfig) error {
		cfg.synthesizeTags = enabled
		return nil
	}
}

// WithReconcile toggles the reference post-pass (default on)
func WithReconcile(enabled bool) Option {
	return func(cfg *decomposeConfig) error {
		cfg.reconcile = enabled
		return nil
	}
}

// WithAllowDuplicate lets the post-pass repair a missing path fragment by
// copying a sibling
func WithAllowDuplicate(enabled bool) Option {
	return func(cfg *decomposeConfig) error {
		cfg.allowDuplicate = enabled
		return nil
	}
}

// WithDryRun computes the decomposition without writing files
func WithDryRun(enabled bool) Option {
	return func(cfg *decomposeConfig) error {
		cfg.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger for every stage
func WithLogger(l parser.Logger) Option {
	return func(cfg *decomposeConfig) error {
		cfg.logger = l
		return nil
	}
}

package bundler

import (
	"context"
	"fmt"

	"github.com/erraggy/oasplit/internal/fileutil"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
)

// Option is a function that configures a bundle operation
type Option func(*bundleConfig) error

// bundleConfig holds configuration for a bundle operation
type bundleConfig struct {
	rootPath   string
	outputPath string
	format     Format
	validate   bool
	logger     parser.Logger
}

// Bundle reassembles a decomposed document using functional options.
//
// Example:
//
//	result, err := bundler.Bundle(ctx,
//	    bundler.WithRootPath("src/v2/openapi.yaml"),
//	    bundler.WithOutputPath("dist/openapi.json"),
//	    bundler.WithFormat(bundler.FormatJSON),
//	)
func Bundle(ctx context.Context, opts ...Option) (*BundleResult, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("bundler: invalid options: %w", err)
	}

	b := &Bundler{Format: cfg.format, Validate: cfg.validate, Logger: cfg.logger}
	result, err := b.Bundle(ctx, cfg.rootPath)
	if err != nil {
		return nil, err
	}
	if cfg.outputPath == "" {
		return result, nil
	}

	out, err := pathutil.SanitizeOutputPath(cfg.outputPath)
	if err != nil {
		return nil, &oaserrors.ConfigError{Option: "output", Value: cfg.outputPath, Cause: err}
	}
	if err := fileutil.WriteFile(out, result.Data, fileutil.ReadableByAll); err != nil {
		return nil, err
	}
	result.OutputPath = out
	return result, nil
}

// applyOptions applies option functions and validates configuration
func applyOptions(opts ...Option) (*bundleConfig, error) {
	cfg := &bundleConfig{format: FormatYAML}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.rootPath == "" {
		return nil, fmt.Errorf("no root document specified: use WithRootPath")
	}
	return cfg, nil
}

// WithRootPath specifies the root document of the fragment tree
func WithRootPath(path string) Option {
	return func(cfg *bundleConfig) error {
		if path == "" {
			return fmt.Errorf("root path cannot be empty")
		}
		cfg.rootPath = path
		return nil
	}
}

// WithOutputPath writes the bundled document to path
func WithOutputPath(path string) Option {
	return func(cfg *bundleConfig) error {
		cfg.outputPath = path
		return nil
	}
}

// WithFormat sets the output serialization
func WithFormat(format Format) Option {
	return func(cfg *bundleConfig) error {
		f, err := ParseFormat(string(format))
		if err != nil {
			return err
		}
		cfg.format = f
		return nil
	}
}

// WithValidate enables validation of the bundled document
func WithValidate(enabled bool) Option {
	return func(cfg *bundleConfig) error {
		cfg.validate = enabled
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(l parser.Logger) Option {
	return func(cfg *bundleConfig) error {
		cfg.logger = l
		return nil
	}
}

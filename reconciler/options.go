package reconciler

import (
	"context"
	"fmt"

	"github.com/erraggy/oasplit/parser"
)

// Option is a function that configures a reconcile operation
type Option func(*reconcileConfig) error

type reconcileConfig struct {
	rootPath       *string
	allowDuplicate bool
	dryRun         bool
	logger         parser.Logger
}

// ReconcileWithOptions reconciles a decomposed root document using
// functional options.
//
// Example:
//
//	result, err := reconciler.ReconcileWithOptions(ctx,
//	    reconciler.WithRootPath("spec/openapi.yaml"),
//	    reconciler.WithAllowDuplicate(true),
//	)
func ReconcileWithOptions(ctx context.Context, opts ...Option) (*Result, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("reconciler: invalid options: %w", err)
	}
	r := &Reconciler{
		AllowDuplicate: cfg.allowDuplicate,
		DryRun:         cfg.dryRun,
		Logger:         cfg.logger,
	}
	return r.Reconcile(ctx, *cfg.rootPath)
}

func applyOptions(opts ...Option) (*reconcileConfig, error) {
	cfg := &reconcileConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.rootPath == nil {
		return nil, fmt.Errorf("must specify a root document (use WithRootPath)")
	}
	return cfg, nil
}

// WithRootPath specifies the decomposed root document to check
func WithRootPath(path string) Option {
	return func(cfg *reconcileConfig) error {
		if path == "" {
			return fmt.Errorf("root path cannot be empty")
		}
		cfg.rootPath = &path
		return nil
	}
}

// WithAllowDuplicate enables best-effort sibling duplication for path
// references that content search cannot repair
func WithAllowDuplicate(enabled bool) Option {
	return func(cfg *reconcileConfig) error {
		cfg.allowDuplicate = enabled
		return nil
	}
}

// WithDryRun reports repairs without writing any file
func WithDryRun(enabled bool) Option {
	return func(cfg *reconcileConfig) error {
		cfg.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger for repair records
func WithLogger(l parser.Logger) Option {
	return func(cfg *reconcileConfig) error {
		cfg.logger = l
		return nil
	}
}

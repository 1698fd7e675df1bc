// Package bundler reassembles a decomposed root document and its fragment
// tree into a single OpenAPI document.
//
// Root entries that reference fragments (components and paths) are replaced
// by the fragment content. References inside fragments that point at another
// root entry's fragment are mapped back to local pointers such as
// "#/components/schemas/User", and references into the root document become
// "#/...". Any other relative file reference is inlined. Remote references
// are left untouched.
//
//	result, err := bundler.Bundle(ctx,
//	    bundler.WithRootPath("src/v2/openapi.yaml"),
//	    bundler.WithFormat(bundler.FormatJSON),
//	    bundler.WithValidate(true),
//	)
package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
)

// Format is the serialization of the bundled document.
type Format string

const (
	// FormatYAML emits YAML with two-space indentation
	FormatYAML Format = "yaml"
	// FormatJSON emits indented JSON
	FormatJSON Format = "json"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, "yml", "":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", &oaserrors.ConfigError{Option: "format", Value: s, Message: `format must be "yaml" or "json"`}
	}
}

// BundleResult contains the results of bundling.
type BundleResult struct {
	// RootPath is the root document that was bundled
	RootPath string `json:"rootPath"`
	// Document is the bundled document
	Document *yaml.Node `json:"-"`
	// Data is Document serialized in Format
	Data []byte `json:"-"`
	// Format is the serialization of Data
	Format Format `json:"format"`
	// Files lists the fragment files read, sorted and relative to the root directory
	Files []string `json:"files"`
	// Inlined counts references replaced by their target content
	Inlined int `json:"inlined"`
	// Mapped counts references rewritten to local pointers
	Mapped int `json:"mapped"`
	// Validated is true when the document passed external validation
	Validated bool `json:"validated"`
	// OutputPath is the file Data was written to (empty when not written)
	OutputPath string `json:"outputPath,omitempty"`
}

// Bundler reassembles fragment trees.
type Bundler struct {
	// Format selects the output serialization. Defaults to FormatYAML.
	Format Format
	// Validate runs the bundled document through an OpenAPI validator.
	Validate bool
	// Logger receives progress records. Defaults to NopLogger.
	Logger parser.Logger
}

// New creates a new Bundler with default settings
func New() *Bundler {
	return &Bundler{Format: FormatYAML}
}

func (b *Bundler) log() parser.Logger {
	if b.Logger == nil {
		return parser.NopLogger{}
	}
	return b.Logger
}

// Bundle loads the root document at rootPath and inlines its fragment tree.
// Every unresolvable reference is reported; the returned error joins one
// *oaserrors.ReferenceError per failure.
func (b *Bundler) Bundle(ctx context.Context, rootPath string) (*BundleResult, error) {
	format, err := ParseFormat(string(b.Format))
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, &oaserrors.ConfigError{Option: "root", Value: rootPath, Cause: err}
	}
	res, err := (&parser.Parser{Logger: b.log()}).Parse(absRoot)
	if err != nil {
		return nil, err
	}

	r := newResolver(filepath.Dir(absRoot), filepath.Base(absRoot), b.log())
	r.documents[r.rootFile] = res.Root
	r.indexEntries(res.Root)

	doc := parser.Clone(res.Root)
	ptr := pathutil.Get()
	defer pathutil.Put(ptr)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, value := doc.Content[i].Value, doc.Content[i+1]
		ptr.Push(key)
		switch key {
		case parser.SectionPaths:
			r.entries(value, ptr)
		case parser.SectionComponents:
			for j := 0; j+1 < len(value.Content); j += 2 {
				ptr.Push(value.Content[j].Value)
				r.entries(value.Content[j+1], ptr)
				ptr.Pop()
			}
		default:
			r.walk(value, r.rootFile, ptr)
		}
		ptr.Pop()
	}
	if len(r.errs) > 0 {
		return nil, fmt.Errorf("bundler: %d unresolved reference(s): %w", len(r.errs), errors.Join(r.errs...))
	}

	result := &BundleResult{
		RootPath: absRoot,
		Document: doc,
		Format:   format,
		Files:    r.loaded(),
		Inlined:  r.inlined,
		Mapped:   r.mapped,
	}
	if format == FormatJSON {
		result.Data, err = parser.EncodeJSON(doc)
	} else {
		result.Data, err = parser.Encode(doc)
	}
	if err != nil {
		return nil, err
	}

	if b.Validate {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := validate(ctx, result.Data, absRoot); err != nil {
			return nil, err
		}
		result.Validated = true
	}

	b.log().Info("bundle complete",
		"root", absRoot,
		"files", len(result.Files),
		"inlined", result.Inlined,
		"mapped", result.Mapped,
		"validated", result.Validated,
	)
	return result, nil
}

func (r *resolver) loaded() []string {
	files := make([]string, 0, len(r.documents))
	for file := range r.documents {
		if file != r.rootFile {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}

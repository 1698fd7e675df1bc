// Package fragment writes decomposed entities to fragment files.
//
// Layout below the output directory:
//
//	components/schemas/<category>.<ext>     mapping of schema name -> body
//	components/<kind>/<Name>.<ext>          one parameter, response or security scheme
//	paths/<resource>/<action>.<ext>         one path item
//
// Every fragment is written at most once per Writer. A second write to the
// same fragment returns a CollisionError instead of overwriting it.
package fragment

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/erraggy/oasplit/internal/fileutil"
	"github.com/erraggy/oasplit/internal/maputil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"go.yaml.in/yaml/v4"
)

// Directory names below the output directory.
const (
	ComponentsDir = "components"
	PathsDir      = "paths"
)

// DefaultExt is the fragment file extension.
const DefaultExt = "yaml"

// SchemaFile returns the slash-separated fragment path for a schema category.
func SchemaFile(category, ext string) string {
	return path.Join(ComponentsDir, parser.ComponentSchemas, category+"."+ext)
}

// ComponentFile returns the slash-separated fragment path for a named component.
func ComponentFile(kind, name, ext string) string {
	return path.Join(ComponentsDir, kind, name+"."+ext)
}

// PathFile returns the slash-separated fragment path for a route.
func PathFile(route pathsplit.Route, ext string) string {
	return path.Join(PathsDir, route.Fragment(ext))
}

// ValidFileName reports whether name can be used unchanged as a file name.
func ValidFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Config configures a Writer.
type Config struct {
	// Dir is the output directory (the directory of the root document)
	Dir string
	// Ext is the fragment extension, "yaml" or "yml"; defaults to DefaultExt
	Ext string
	// DryRun encodes fragments without touching the filesystem
	DryRun bool
	// Logger receives one debug record per fragment
	Logger parser.Logger
}

// Writer persists fragments below one output directory.
type Writer struct {
	dir     string
	ext     string
	dryRun  bool
	logger  parser.Logger
	owners  map[string]string
	changed map[string]bool
}

// New returns a Writer for cfg.
func New(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, &oaserrors.ConfigError{Option: "output-dir", Message: "output directory cannot be empty"}
	}
	ext := cfg.Ext
	if ext == "" {
		ext = DefaultExt
	}
	if ext != "yaml" && ext != "yml" {
		return nil, &oaserrors.ConfigError{Option: "ext", Value: ext, Message: `extension must be "yaml" or "yml"`}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = parser.NopLogger{}
	}
	return &Writer{
		dir:     cfg.Dir,
		ext:     ext,
		dryRun:  cfg.DryRun,
		logger:  logger,
		owners:  make(map[string]string),
		changed: make(map[string]bool),
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Ext returns the fragment extension.
func (w *Writer) Ext() string { return w.ext }

// WriteSchemas writes one category file holding every schema in the order
// given. It returns the slash-separated fragment path.
func (w *Writer) WriteSchemas(category string, schemas []parser.SchemaEntity) (string, error) {
	if !ValidFileName(category) {
		return "", &oaserrors.WriteError{Path: category, Op: "name", Cause: fmt.Errorf("category %q is not a valid file name", category)}
	}
	doc := parser.MappingNode()
	for _, s := range schemas {
		doc.Content = append(doc.Content, parser.StringNode(s.Name), s.Body)
	}
	rel := SchemaFile(category, w.ext)
	return rel, w.write(rel, "schemas "+category, doc)
}

// WritePath writes one path item fragment.
func (w *Writer) WritePath(route pathsplit.Route, body *yaml.Node) (string, error) {
	rel := PathFile(route, w.ext)
	return rel, w.write(rel, route.Template, body)
}

// WriteComponent writes one named component fragment.
func (w *Writer) WriteComponent(kind, name string, body *yaml.Node) (string, error) {
	if !ValidFileName(kind) || !ValidFileName(name) {
		return "", &oaserrors.WriteError{Path: kind + "/" + name, Op: "name", Cause: fmt.Errorf("component %q is not a valid file name", name)}
	}
	rel := ComponentFile(kind, name, w.ext)
	return rel, w.write(rel, kind+" "+name, body)
}

// WriteDocument writes an arbitrary document at a slash-separated path
// relative to the output directory. The decomposer uses it for the root.
func (w *Writer) WriteDocument(rel string, node *yaml.Node) error {
	return w.write(rel, "document "+rel, node)
}

func (w *Writer) write(rel, owner string, node *yaml.Node) error {
	if first, ok := w.owners[rel]; ok {
		return &oaserrors.CollisionError{Kind: "fragment", Name: rel, First: first, Second: owner}
	}
	w.owners[rel] = owner

	data, err := parser.Encode(node)
	if err != nil {
		return &oaserrors.WriteError{Path: rel, Op: "encode", Cause: err}
	}
	if w.dryRun {
		w.logger.Debug("fragment planned", "file", rel, "bytes", len(data))
		return nil
	}
	changed, err := fileutil.WriteFileIfChanged(filepath.Join(w.dir, filepath.FromSlash(rel)), data, fileutil.ReadableByAll)
	if err != nil {
		return err
	}
	w.changed[rel] = changed
	w.logger.Debug("fragment written", "file", rel, "bytes", len(data), "changed", changed)
	return nil
}

// Written returns every fragment path claimed so far, sorted.
func (w *Writer) Written() []string {
	return maputil.SortedKeys(w.owners)
}

// Changed returns the fragment paths whose bytes on disk changed, sorted.
// It is empty in dry-run mode.
func (w *Writer) Changed() []string {
	return maputil.SortedKeysWhere(w.changed, func(changed bool) bool { return changed })
}

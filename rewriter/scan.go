package rewriter

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"go.yaml.in/yaml/v4"
)

// ScanKinds are the component kinds Scan looks for besides schemas.
var ScanKinds = []string{
	parser.ComponentParameters,
	parser.ComponentResponses,
	parser.ComponentSecuritySchemes,
}

// Scan rebuilds a plan from a fragment tree on disk. Templates are recovered
// from the paths/<resource>/<action> layout with pathsplit.Join. Bodies are
// loaded so callers can inspect them; Regenerate only needs the names.
func Scan(dir, prefix, ext string) (*Plan, error) {
	if ext == "" {
		ext = fragment.DefaultExt
	}
	plan := &Plan{Ext: ext}

	schemaDir := filepath.Join(dir, fragment.ComponentsDir, parser.ComponentSchemas)
	files, err := fragmentFiles(schemaDir, ext)
	if err != nil {
		return nil, err
	}
	owner := make(map[string]string)
	for _, name := range files {
		rel := path.Join(fragment.ComponentsDir, parser.ComponentSchemas, name)
		node, err := readFragment(filepath.Join(schemaDir, name), rel)
		if err != nil {
			return nil, err
		}
		if node.Kind != yaml.MappingNode {
			return nil, &oaserrors.ParseError{Path: rel, Line: node.Line, Message: "schema fragment must be a mapping"}
		}
		category := strings.TrimSuffix(name, "."+ext)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if first, dup := owner[key.Value]; dup {
				return nil, &oaserrors.CollisionError{Kind: "schema", Name: key.Value, First: first, Second: rel}
			}
			owner[key.Value] = rel
			plan.Schemas = append(plan.Schemas, parser.SchemaEntity{
				Name:     key.Value,
				Body:     node.Content[i+1],
				Category: category,
				Line:     key.Line,
			})
		}
	}

	pathsDir := filepath.Join(dir, fragment.PathsDir)
	resources, err := subdirs(pathsDir)
	if err != nil {
		return nil, err
	}
	for _, resource := range resources {
		files, err := fragmentFiles(filepath.Join(pathsDir, resource), ext)
		if err != nil {
			return nil, err
		}
		for _, name := range files {
			action := strings.TrimSuffix(name, "."+ext)
			rel := path.Join(fragment.PathsDir, resource, name)
			template, err := pathsplit.Join(prefix, resource, action)
			if err != nil {
				return nil, &oaserrors.ParseError{Path: rel, Message: "cannot recover path template", Cause: err}
			}
			body, err := readFragment(filepath.Join(pathsDir, resource, name), rel)
			if err != nil {
				return nil, err
			}
			plan.Paths = append(plan.Paths, parser.PathEntity{
				Template: template,
				Resource: resource,
				Action:   action,
				Body:     body,
			})
		}
	}

	for _, kind := range ScanKinds {
		kindDir := filepath.Join(dir, fragment.ComponentsDir, kind)
		files, err := fragmentFiles(kindDir, ext)
		if err != nil {
			return nil, err
		}
		for _, name := range files {
			rel := path.Join(fragment.ComponentsDir, kind, name)
			body, err := readFragment(filepath.Join(kindDir, name), rel)
			if err != nil {
				return nil, err
			}
			plan.Components = append(plan.Components, parser.ComponentEntity{
				Kind: kind,
				Name: strings.TrimSuffix(name, "."+ext),
				Body: body,
			})
		}
	}
	return plan, nil
}

// Regenerate rebuilds existing's schema, path and component references from
// a scanned plan. Sections and component kinds the plan has nothing for are
// kept, and so are inline (non-$ref) path entries.
func Regenerate(existing *yaml.Node, plan *Plan) *yaml.Node {
	merged := *plan
	merged.Inline = nil
	scanned := make(map[string]bool, len(plan.Paths))
	for _, p := range plan.Paths {
		scanned[p.Template] = true
	}
	if paths, err := parser.Lookup(existing, parser.SectionPaths); err == nil && paths.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(paths.Content); i += 2 {
			template, body := paths.Content[i].Value, paths.Content[i+1]
			_, isRef := parser.RefValue(body)
			// with no path fragments on disk the existing entries stay as they are
			if len(plan.Paths) > 0 && (isRef || scanned[template]) {
				continue
			}
			merged.Inline = append(merged.Inline, parser.PathEntity{Template: template, Body: body})
		}
	}
	return build(existing, &merged)
}

func readFragment(path, rel string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &oaserrors.ParseError{Path: rel, Message: "failed to read fragment", Cause: err}
	}
	return parser.ParseFragment(data, rel)
}

// fragmentFiles lists the regular files with the given extension in dir,
// sorted. A missing directory yields no files.
func fragmentFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rewriter: scan %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), "."+ext) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rewriter: scan %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

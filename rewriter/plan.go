package rewriter

import (
	"sort"

	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"go.yaml.in/yaml/v4"
)

// Plan records where every extracted entity lives. Paths are relative to
// the directory of the root document.
type Plan struct {
	// Ext is the fragment extension; defaults to fragment.DefaultExt
	Ext string
	// Schemas are classified schemas (Category set)
	Schemas []parser.SchemaEntity
	// Paths are split paths (Resource and Action set)
	Paths []parser.PathEntity
	// Inline are paths kept in the root document
	Inline []parser.PathEntity
	// Components are extracted parameters, responses and security schemes
	Components []parser.ComponentEntity
	// Tags, when set, is inserted as the tags section if the root has none
	Tags *yaml.Node
}

func (p *Plan) ext() string {
	if p.Ext == "" {
		return fragment.DefaultExt
	}
	return p.Ext
}

// SchemaRef returns the reference to a schema in its category file.
func (p *Plan) SchemaRef(s parser.SchemaEntity) Reference {
	return Reference{
		File:   fragment.SchemaFile(s.Category, p.ext()),
		Anchor: "/" + pathutil.EscapePointerToken(s.Name),
	}
}

// PathRef returns the reference to a path item fragment.
func (p *Plan) PathRef(pe parser.PathEntity) Reference {
	return Reference{File: fragment.PathFile(routeOf(pe), p.ext())}
}

func routeOf(pe parser.PathEntity) pathsplit.Route {
	return pathsplit.Route{Template: pe.Template, Resource: pe.Resource, Action: pe.Action}
}

// ComponentRef returns the reference to a component fragment.
func (p *Plan) ComponentRef(c parser.ComponentEntity) Reference {
	return Reference{File: fragment.ComponentFile(c.Kind, c.Name, p.ext())}
}

// ComponentKinds returns the distinct kinds in Components, sorted.
func (p *Plan) ComponentKinds() []string {
	seen := make(map[string]bool)
	var kinds []string
	for _, c := range p.Components {
		if !seen[c.Kind] {
			seen[c.Kind] = true
			kinds = append(kinds, c.Kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// sortedSchemas returns the schemas ordered by (category, name).
func (p *Plan) sortedSchemas() []parser.SchemaEntity {
	out := append([]parser.SchemaEntity(nil), p.Schemas...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// sortedPaths returns the routed paths ordered by (resource, action).
func (p *Plan) sortedPaths() []parser.PathEntity {
	out := append([]parser.PathEntity(nil), p.Paths...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// componentsOf returns the components of one kind ordered by name.
func (p *Plan) componentsOf(kind string) []parser.ComponentEntity {
	var out []parser.ComponentEntity
	for _, c := range p.Components {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package rewriter builds the decomposed root document and keeps references
// valid when entity bodies move into fragment files.
package rewriter

import (
	"errors"
	"fmt"

	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"go.yaml.in/yaml/v4"
)

// ErrPlanMismatch is returned by Build when the plan does not reference
// every entity of the source exactly once.
var ErrPlanMismatch = errors.New("rewriter: plan does not match source")

// Build returns a new root document for source with inline bodies replaced by
// references to the fragments in plan.
//
// components.schemas becomes a (category, name) sorted list of schema
// references; paths becomes a (resource, action) sorted list of path
// references followed by the inline paths; component kinds present in the
// plan become name-sorted references. Every other section keeps its order
// and content. source is not modified.
func Build(source *yaml.Node, plan *Plan) (*yaml.Node, error) {
	if err := verify(source, plan); err != nil {
		return nil, err
	}
	return build(source, plan), nil
}

func build(source *yaml.Node, plan *Plan) *yaml.Node {
	root := parser.MappingNode()
	keys := parser.MappingKeys(source)
	_, tagsErr := parser.Lookup(source, parser.SectionTags)
	addTags := plan.Tags != nil && tagsErr != nil

	seenPaths, seenComponents := false, false
	for i, key := range keys {
		value := source.Content[2*i+1]
		switch key {
		case parser.SectionTags:
			if addTags {
				// present but empty
				appendPair(root, key, parser.Clone(plan.Tags))
				addTags = false
				continue
			}
			appendPair(root, key, parser.Clone(value))
		case parser.SectionPaths:
			if addTags {
				appendPair(root, parser.SectionTags, parser.Clone(plan.Tags))
				addTags = false
			}
			appendPair(root, key, buildPaths(plan))
			seenPaths = true
		case parser.SectionComponents:
			appendPair(root, key, buildComponents(value, plan))
			seenComponents = true
		default:
			appendPair(root, key, parser.Clone(value))
		}
	}

	if !seenComponents && (len(plan.Schemas) > 0 || len(plan.Components) > 0) {
		appendPair(root, parser.SectionComponents, buildComponents(parser.MappingNode(), plan))
	}
	if addTags {
		appendPair(root, parser.SectionTags, parser.Clone(plan.Tags))
	}
	if !seenPaths && (len(plan.Paths) > 0 || len(plan.Inline) > 0) {
		appendPair(root, parser.SectionPaths, buildPaths(plan))
	}
	return root
}

func buildPaths(plan *Plan) *yaml.Node {
	paths := parser.MappingNode()
	for _, p := range plan.sortedPaths() {
		appendPair(paths, p.Template, parser.RefNode(plan.PathRef(p).String()))
	}
	for _, p := range plan.Inline {
		appendPair(paths, p.Template, parser.Clone(p.Body))
	}
	return paths
}

func buildComponents(source *yaml.Node, plan *Plan) *yaml.Node {
	components := parser.MappingNode()
	extracted := make(map[string]bool)
	for _, kind := range plan.ComponentKinds() {
		extracted[kind] = true
	}

	done := make(map[string]bool)
	emit := func(kind string) {
		done[kind] = true
		if kind == parser.ComponentSchemas {
			appendPair(components, kind, buildSchemas(plan))
			return
		}
		refs := parser.MappingNode()
		for _, c := range plan.componentsOf(kind) {
			appendPair(refs, c.Name, parser.RefNode(plan.ComponentRef(c).String()))
		}
		appendPair(components, kind, refs)
	}

	for i, kind := range parser.MappingKeys(source) {
		switch {
		case kind == parser.ComponentSchemas && len(plan.Schemas) > 0:
			emit(kind)
		case extracted[kind]:
			emit(kind)
		default:
			appendPair(components, kind, parser.Clone(source.Content[2*i+1]))
		}
	}
	if len(plan.Schemas) > 0 && !done[parser.ComponentSchemas] {
		emit(parser.ComponentSchemas)
	}
	for _, kind := range plan.ComponentKinds() {
		if !done[kind] {
			emit(kind)
		}
	}
	return components
}

func buildSchemas(plan *Plan) *yaml.Node {
	schemas := parser.MappingNode()
	for _, s := range plan.sortedSchemas() {
		appendPair(schemas, s.Name, parser.RefNode(plan.SchemaRef(s).String()))
	}
	return schemas
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, parser.StringNode(key), value)
}

// verify checks that every source entity is placed exactly once and that
// the plan places nothing the source does not define.
func verify(source *yaml.Node, plan *Plan) error {
	res := &parser.ParseResult{Root: source}

	var schemaNames []string
	for _, s := range plan.Schemas {
		schemaNames = append(schemaNames, s.Name)
	}
	if schemas, err := res.Block(parser.SectionComponents, parser.ComponentSchemas); err == nil || len(schemaNames) > 0 {
		if err := balance("schema", parser.MappingKeys(schemas), schemaNames); err != nil {
			return err
		}
	}

	var templates []string
	for _, p := range plan.Paths {
		templates = append(templates, p.Template)
	}
	for _, p := range plan.Inline {
		templates = append(templates, p.Template)
	}
	if paths, err := res.Section(parser.SectionPaths); err == nil || len(templates) > 0 {
		if err := balance("path", parser.MappingKeys(paths), templates); err != nil {
			return err
		}
	}
	for _, p := range plan.Paths {
		if _, err := pathsplit.Join("", p.Resource, p.Action); err != nil {
			return fmt.Errorf("%w: path %s: %v", ErrPlanMismatch, p.Template, err)
		}
	}

	for _, kind := range plan.ComponentKinds() {
		var names []string
		for _, c := range plan.componentsOf(kind) {
			names = append(names, c.Name)
		}
		block, _ := res.Block(parser.SectionComponents, kind)
		if err := balance(kind, parser.MappingKeys(block), names); err != nil {
			return err
		}
	}
	return nil
}

func balance(kind string, source, placed []string) error {
	counts := make(map[string]int, len(placed))
	for _, name := range placed {
		counts[name]++
	}
	for _, name := range source {
		if n := counts[name]; n != 1 {
			return fmt.Errorf("%w: %s %q referenced %d times", ErrPlanMismatch, kind, name, n)
		}
		delete(counts, name)
	}
	for name := range counts {
		return fmt.Errorf("%w: %s %q is not defined in the source", ErrPlanMismatch, kind, name)
	}
	return nil
}

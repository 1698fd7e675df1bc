package parser

import (
	"fmt"

	"github.com/erraggy/oasplit/oaserrors"
	"go.yaml.in/yaml/v4"
)

// SchemaEntity is a named schema extracted from components.schemas.
type SchemaEntity struct {
	// Name is the schema's unique name
	Name string
	// Body is the schema definition
	Body *yaml.Node
	// Category is filled in by the classifier
	Category string
	// Line is the source line of the name (0 if unknown)
	Line int
}

// PathEntity is one path item extracted from the paths section.
type PathEntity struct {
	// Template is the URL template key, e.g. "/farcaster/cast/{hash}"
	Template string
	// Body is the path item object
	Body *yaml.Node
	// Resource and Action are filled in by the path splitter
	Resource string
	Action   string
	// Line is the source line of the template (0 if unknown)
	Line int
}

// ComponentEntity is a named entry of a components section other than schemas.
type ComponentEntity struct {
	// Kind is the components subsection, e.g. "parameters"
	Kind string
	// Name is the entry's unique name within its kind
	Name string
	// Body is the component definition
	Body *yaml.Node
	// Line is the source line of the name (0 if unknown)
	Line int
}

// Schemas extracts components.schemas in document order.
//
// A missing or empty section returns an ExtractionError. A name defined twice
// returns a CollisionError, and a name that is empty or does not start with a
// letter or digit returns a ParseError.
func (pr *ParseResult) Schemas() ([]SchemaEntity, error) {
	block, err := pr.Block(SectionComponents, ComponentSchemas)
	if err != nil {
		return nil, err
	}
	pairs, err := pr.namedEntries(block, "schema", "components.schemas")
	if err != nil {
		return nil, err
	}
	schemas := make([]SchemaEntity, 0, len(pairs))
	for _, p := range pairs {
		schemas = append(schemas, SchemaEntity{Name: p.name, Body: p.body, Line: p.line})
	}
	return schemas, nil
}

// Components extracts a components subsection (parameters, responses,
// securitySchemes) in document order, with the same checks as Schemas.
func (pr *ParseResult) Components(kind string) ([]ComponentEntity, error) {
	block, err := pr.Block(SectionComponents, kind)
	if err != nil {
		return nil, err
	}
	pairs, err := pr.namedEntries(block, "component", "components."+kind)
	if err != nil {
		return nil, err
	}
	entities := make([]ComponentEntity, 0, len(pairs))
	for _, p := range pairs {
		entities = append(entities, ComponentEntity{Kind: kind, Name: p.name, Body: p.body, Line: p.line})
	}
	return entities, nil
}

// Paths extracts the paths section in document order. Templates must be
// unique; Resource and Action are left empty.
func (pr *ParseResult) Paths() ([]PathEntity, error) {
	block, err := pr.Section(SectionPaths)
	if err != nil {
		return nil, err
	}
	if block.Kind != yaml.MappingNode {
		return nil, &oaserrors.ParseError{Path: pr.SourcePath, Line: block.Line, Column: block.Column, Message: "paths must be a mapping"}
	}
	if name, first, second, dup := firstDuplicateKey(block); dup {
		return nil, &oaserrors.CollisionError{
			Kind:   "path",
			Name:   name,
			First:  fmt.Sprintf("line %d", first),
			Second: fmt.Sprintf("line %d", second),
		}
	}
	paths := make([]PathEntity, 0, len(block.Content)/2)
	for i := 0; i+1 < len(block.Content); i += 2 {
		key := block.Content[i]
		paths = append(paths, PathEntity{Template: key.Value, Body: block.Content[i+1], Line: key.Line})
	}
	return paths, nil
}

type namedEntry struct {
	name string
	body *yaml.Node
	line int
}

func (pr *ParseResult) namedEntries(block *yaml.Node, kind, where string) ([]namedEntry, error) {
	if block.Kind != yaml.MappingNode {
		return nil, &oaserrors.ParseError{Path: pr.SourcePath, Line: block.Line, Column: block.Column, Message: where + " must be a mapping"}
	}
	if name, first, second, dup := firstDuplicateKey(block); dup {
		return nil, &oaserrors.CollisionError{
			Kind:   kind,
			Name:   name,
			First:  fmt.Sprintf("%s line %d", where, first),
			Second: fmt.Sprintf("%s line %d", where, second),
		}
	}
	entries := make([]namedEntry, 0, len(block.Content)/2)
	for i := 0; i+1 < len(block.Content); i += 2 {
		key := block.Content[i]
		if !validName(key.Value) {
			return nil, &oaserrors.ParseError{
				Path:    pr.SourcePath,
				Line:    key.Line,
				Column:  key.Column,
				Message: fmt.Sprintf("invalid %s name %q in %s: must start with a letter or digit", kind, key.Value, where),
			}
		}
		entries = append(entries, namedEntry{name: key.Value, body: block.Content[i+1], line: key.Line})
	}
	return entries, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

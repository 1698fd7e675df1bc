package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/erraggy/oasplit/oaserrors"
	"go.yaml.in/yaml/v4"
)

// Parser loads an OpenAPI document into a node tree.
type Parser struct {
	// Logger receives debug output about loaded sections.
	// Defaults to NopLogger when nil.
	Logger Logger
}

// New creates a new Parser instance with default settings
func New() *Parser {
	return &Parser{}
}

func (p *Parser) log() Logger {
	if p.Logger == nil {
		return NopLogger{}
	}
	return p.Logger
}

// ParseResult is the parsed root document. Root is the top-level mapping
// node; sections keep the order in which they appear in the source.
type ParseResult struct {
	// Root is the top-level mapping node of the document
	Root *yaml.Node
	// SourcePath is the file the document was read from
	SourcePath string
	// SourceFormat is the format of the source (JSON or YAML)
	SourceFormat SourceFormat
	// SourceSize is the size of the source in bytes
	SourceSize int64
	// LoadTime is the time spent reading the source
	LoadTime time.Duration
}

// Sections returns the top-level keys in source order.
func (pr *ParseResult) Sections() []string {
	return MappingKeys(pr.Root)
}

// OpenAPIVersion returns the value of the `openapi` field, or "" if absent.
func (pr *ParseResult) OpenAPIVersion() string {
	node, err := Lookup(pr.Root, "openapi")
	if err != nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

// Parse parses an OpenAPI document from a local file.
func (p *Parser) Parse(specPath string) (*ParseResult, error) {
	loadStart := time.Now()
	data, err := os.ReadFile(specPath)
	loadTime := time.Since(loadStart)
	if err != nil {
		return nil, &oaserrors.ParseError{Path: specPath, Message: "failed to read file", Cause: err}
	}

	res, err := p.parseBytes(data, specPath)
	if err != nil {
		return nil, err
	}
	res.LoadTime = loadTime
	return res, nil
}

// ParseReader parses an OpenAPI document from an io.Reader.
// SourcePath is set to ParseReader.yaml or ParseReader.json.
func (p *Parser) ParseReader(r io.Reader) (*ParseResult, error) {
	loadStart := time.Now()
	data, err := io.ReadAll(r)
	loadTime := time.Since(loadStart)
	if err != nil {
		return nil, fmt.Errorf("parser: failed to read data: %w", err)
	}
	res, err := p.parseBytes(data, "ParseReader."+string(DetectFormat("", data)))
	if err != nil {
		return nil, err
	}
	res.LoadTime = loadTime
	return res, nil
}

// ParseBytes parses an OpenAPI document from a byte slice.
// SourcePath is set to ParseBytes.yaml or ParseBytes.json.
func (p *Parser) ParseBytes(data []byte) (*ParseResult, error) {
	return p.parseBytes(data, "ParseBytes."+string(DetectFormat("", data)))
}

func (p *Parser) parseBytes(data []byte, sourcePath string) (*ParseResult, error) {
	root, err := decodeMapping(data, sourcePath)
	if err != nil {
		return nil, err
	}

	// yaml.Node decoding keeps duplicate keys, so a repeated top-level
	// section has to be caught here.
	if name, first, second, dup := firstDuplicateKey(root); dup {
		return nil, &oaserrors.CollisionError{
			Kind:   "section",
			Name:   name,
			First:  fmt.Sprintf("line %d", first),
			Second: fmt.Sprintf("line %d", second),
		}
	}

	res := &ParseResult{
		Root:         root,
		SourcePath:   sourcePath,
		SourceFormat: DetectFormat(sourcePath, data),
		SourceSize:   int64(len(data)),
	}
	p.log().Debug("parsed document",
		"source", sourcePath,
		"size", FormatBytes(res.SourceSize),
		"sections", len(root.Content)/2,
	)
	return res, nil
}

// ParseFragment decodes a fragment file's content into its top-level node.
// Unlike a root document, a fragment may be any node kind.
func ParseFragment(data []byte, sourcePath string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &oaserrors.ParseError{Path: sourcePath, Message: "empty document"}
		}
		return nil, &oaserrors.ParseError{Path: sourcePath, Cause: err}
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, &oaserrors.ParseError{Path: sourcePath, Message: "empty document"}
		}
		return doc.Content[0], nil
	}
	return &doc, nil
}

// decodeMapping decodes data and requires the top-level node to be a mapping.
func decodeMapping(data []byte, sourcePath string) (*yaml.Node, error) {
	node, err := ParseFragment(data, sourcePath)
	if err != nil {
		return nil, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, &oaserrors.ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Column:  node.Column,
			Message: "top-level value must be a mapping",
		}
	}
	return node, nil
}

// firstDuplicateKey reports the first key that appears twice in a mapping,
// with the lines of both occurrences.
func firstDuplicateKey(node *yaml.Node) (name string, first, second int, dup bool) {
	seen := make(map[string]int, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if line, ok := seen[key.Value]; ok {
			return key.Value, line, key.Line, true
		}
		seen[key.Value] = key.Line
	}
	return "", 0, 0, false
}

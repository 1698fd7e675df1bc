package parser

import (
	"strconv"
	"strings"

	"github.com/erraggy/oasplit/oaserrors"
	"go.yaml.in/yaml/v4"
)

// Section keys of an OpenAPI 3.x root document.
const (
	SectionOpenAPI    = "openapi"
	SectionInfo       = "info"
	SectionServers    = "servers"
	SectionSecurity   = "security"
	SectionTags       = "tags"
	SectionPaths      = "paths"
	SectionComponents = "components"
)

// Component kinds under the components section.
const (
	ComponentSchemas         = "schemas"
	ComponentParameters      = "parameters"
	ComponentResponses       = "responses"
	ComponentSecuritySchemes = "securitySchemes"
)

// Lookup returns the value node stored under key in a mapping node.
//
// It returns an *oaserrors.ExtractionError when node is not a mapping, the
// key is absent, or the value has no body (null, empty mapping or empty
// sequence). Callers treat that as "skip this section".
func Lookup(node *yaml.Node, key string) (*yaml.Node, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, &oaserrors.ExtractionError{Section: key}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != key {
			continue
		}
		value := node.Content[i+1]
		if IsEmpty(value) {
			return nil, &oaserrors.ExtractionError{Section: key, Empty: true}
		}
		return value, nil
	}
	return nil, &oaserrors.ExtractionError{Section: key}
}

// Section returns the top-level block under key.
func (pr *ParseResult) Section(key string) (*yaml.Node, error) {
	return Lookup(pr.Root, key)
}

// Block walks nested mapping keys from the root, e.g. Block("components", "schemas").
// On a miss the returned ExtractionError names the full parent path.
func (pr *ParseResult) Block(keys ...string) (*yaml.Node, error) {
	node := pr.Root
	for i, key := range keys {
		next, err := Lookup(node, key)
		if err != nil {
			if miss, ok := err.(*oaserrors.ExtractionError); ok {
				miss.Parent = strings.Join(keys[:i], ".")
			}
			return nil, err
		}
		node = next
	}
	return node, nil
}

// IsEmpty reports whether a node carries no body.
func IsEmpty(node *yaml.Node) bool {
	if node == nil {
		return true
	}
	switch node.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(node.Content) == 0
	case yaml.ScalarNode:
		return node.Tag == "!!null"
	default:
		return false
	}
}

// MappingKeys returns the keys of a mapping node in document order.
func MappingKeys(node *yaml.Node) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

// SetKey replaces the value stored under key in a mapping node, appending
// the pair when the key is absent.
func SetKey(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content[i+1] = value
			return
		}
	}
	node.Content = append(node.Content, StringNode(key), value)
}

// StringNode returns a plain string scalar node.
func StringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// MappingNode returns an empty mapping node.
func MappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// RefNode returns a mapping node holding a single $ref.
func RefNode(ref string) *yaml.Node {
	node := MappingNode()
	node.Content = append(node.Content, StringNode("$ref"), StringNode(ref))
	return node
}

// RefValue returns the $ref of a node whose only purpose is a reference.
// The second result is false when the node holds anything other than a $ref.
func RefValue(node *yaml.Node) (string, bool) {
	if node == nil || node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", false
	}
	if node.Content[0].Value != "$ref" || node.Content[1].Kind != yaml.ScalarNode {
		return "", false
	}
	return node.Content[1].Value, true
}

// ResolvePointer follows a JSON pointer (with or without a leading '#')
// from node. Alias nodes are followed. The empty pointer resolves to node.
func ResolvePointer(node *yaml.Node, pointer string) (*yaml.Node, bool) {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" {
		return node, node != nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}
	current := node
	for _, raw := range strings.Split(pointer[1:], "/") {
		token := strings.ReplaceAll(strings.ReplaceAll(raw, "~1", "/"), "~0", "~")
		for current != nil && (current.Kind == yaml.DocumentNode || current.Kind == yaml.AliasNode) {
			if current.Kind == yaml.AliasNode {
				current = current.Alias
			} else if len(current.Content) > 0 {
				current = current.Content[0]
			} else {
				current = nil
			}
		}
		if current == nil {
			return nil, false
		}
		switch current.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(current.Content); i += 2 {
				if current.Content[i].Value == token {
					next = current.Content[i+1]
					break
				}
			}
			if next == nil {
				return nil, false
			}
			current = next
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(current.Content) {
				return nil, false
			}
			current = current.Content[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v4"
)

// IndentSpaces is the indentation used for every emitted YAML document.
const IndentSpaces = 2

// Encode serializes a node as a YAML document with two-space indentation.
// Output is deterministic for a given node tree.
func Encode(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(IndentSpaces)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("parser: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJSON serializes a node as indented JSON. Mapping key order is
// preserved.
func EncodeJSON(node *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, node); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("parser: encode json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(node.Content[i].Value)
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("parser: encode json: line %d: %w", node.Line, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("parser: encode json: line %d: %w", node.Line, err)
		}
		buf.Write(data)
	default:
		return fmt.Errorf("parser: encode json: unsupported node kind %v", node.Kind)
	}
	return nil
}

// Clone returns a deep copy of a node tree. Alias targets are cloned in
// place, so the copy shares nothing with the original.
func Clone(node *yaml.Node) *yaml.Node {
	if node == nil {
		return nil
	}
	cp := *node
	if node.Alias != nil {
		cp.Alias = Clone(node.Alias)
	}
	if node.Content != nil {
		cp.Content = make([]*yaml.Node, len(node.Content))
		for i, child := range node.Content {
			cp.Content[i] = Clone(child)
		}
	}
	return &cp
}

// BlockStyle clears flow style on every mapping and sequence in the tree so
// that JSON-sourced nodes encode as block YAML. Scalar styles are kept.
func BlockStyle(node *yaml.Node) {
	if node == nil {
		return
	}
	if node.Kind == yaml.MappingNode || node.Kind == yaml.SequenceNode {
		node.Style &^= yaml.FlowStyle
	}
	for _, child := range node.Content {
		BlockStyle(child)
	}
}

package rewriter

import (
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
)

// Index maps components to the fragment files that hold them, so that local
// pointers inside moved bodies can be rewritten to file references.
type Index struct {
	rootFile string
	targets  map[string]Reference
}

// NewIndex indexes every schema and component placed by plan. rootFile is the
// slash-separated name of the root document relative to the output directory.
func NewIndex(plan *Plan, rootFile string) *Index {
	ix := &Index{rootFile: rootFile, targets: make(map[string]Reference, len(plan.Schemas)+len(plan.Components))}
	for _, s := range plan.Schemas {
		ix.targets[indexKey(parser.ComponentSchemas, s.Name)] = plan.SchemaRef(s)
	}
	for _, c := range plan.Components {
		ix.targets[indexKey(c.Kind, c.Name)] = plan.ComponentRef(c)
	}
	return ix
}

func indexKey(kind, name string) string {
	return kind + "/" + name
}

// RootFile returns the root document name the index points back to.
func (ix *Index) RootFile() string { return ix.rootFile }

// Locate returns the fragment reference (relative to the output directory)
// of a component.
func (ix *Index) Locate(kind, name string) (Reference, bool) {
	ref, ok := ix.targets[indexKey(kind, name)]
	return ref, ok
}

// Translate rewrites one local reference as seen from the fragment at from.
// References to indexed components point at their fragment; any other local
// pointer points back into the root document. Non-local references are
// returned unchanged.
func (ix *Index) Translate(ref, from string) string {
	if !pathutil.IsLocalRef(ref) {
		return ref
	}
	_, pointer := pathutil.SplitRef(ref)
	if kind, name, rest, ok := pathutil.ParseComponentRef("#" + pointer); ok {
		if target, found := ix.Locate(kind, name); found {
			return pathutil.RelativeRef(from, target.File, target.Anchor+rest)
		}
	}
	return pathutil.RelativeRef(from, ix.rootFile, pointer)
}

// Relocate returns a copy of body with every local $ref translated for a
// body that now lives in the fragment at from, and the number of references
// rewritten. body is not modified.
func (ix *Index) Relocate(body *yaml.Node, from string) (*yaml.Node, int) {
	cp := parser.Clone(body)
	n := 0
	walkRefs(cp, func(ref *yaml.Node) {
		if translated := ix.Translate(ref.Value, from); translated != ref.Value {
			ref.Value = translated
			n++
		}
	})
	return cp, n
}

// walkRefs calls fn with the value node of every $ref in the tree.
func walkRefs(node *yaml.Node, fn func(ref *yaml.Node)) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			walkRefs(child, fn)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == "$ref" && value.Kind == yaml.ScalarNode {
				fn(value)
				continue
			}
			walkRefs(value, fn)
		}
	}
}

// WalkRefs calls fn with the JSON pointer and value node of every $ref in
// the tree, in document order.
func WalkRefs(node *yaml.Node, fn func(pointer string, ref *yaml.Node)) {
	ptr := pathutil.Get()
	defer pathutil.Put(ptr)
	walkRefsAt(node, ptr, fn)
}

func walkRefsAt(node *yaml.Node, ptr *pathutil.Pointer, fn func(string, *yaml.Node)) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			walkRefsAt(child, ptr, fn)
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			ptr.PushIndex(i)
			walkRefsAt(child, ptr, fn)
			ptr.Pop()
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == "$ref" && value.Kind == yaml.ScalarNode {
				fn(ptr.String(), value)
				continue
			}
			ptr.Push(key.Value)
			walkRefsAt(value, ptr, fn)
			ptr.Pop()
		}
	}
}

package bundler

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
)

const (
	// MaxRefDepth is the maximum nesting of inlined file references
	MaxRefDepth = 100

	// MaxFileSize is the maximum size (in bytes) of a fragment file
	MaxFileSize = 10 * 1024 * 1024 // 10MB
)

// resolver rewrites the references of one bundle run. File names are
// slash-separated and relative to dir.
type resolver struct {
	dir      string
	rootFile string
	logger   parser.Logger

	// index maps "file#anchor" of every root entry target to the entry's
	// pointer in the bundled document
	index map[string]string
	// documents caches parsed files
	documents map[string]*yaml.Node
	// resolving tracks "file#anchor" keys on the current inline stack
	resolving map[string]bool
	depth     int

	inlined int
	mapped  int
	errs    []error
}

func newResolver(dir, rootFile string, logger parser.Logger) *resolver {
	return &resolver{
		dir:       dir,
		rootFile:  rootFile,
		logger:    logger,
		index:     make(map[string]string),
		documents: make(map[string]*yaml.Node),
		resolving: make(map[string]bool),
	}
}

func targetKey(file, anchor string) string {
	return file + "#" + anchor
}

// indexEntries records the fragment targets of path and component entries.
// When two entries share a target, the first one wins.
func (r *resolver) indexEntries(root *yaml.Node) {
	add := func(block *yaml.Node, pointer string) {
		if block == nil || block.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(block.Content); i += 2 {
			ref, ok := parser.RefValue(block.Content[i+1])
			if !ok || pathutil.IsLocalRef(ref) || isRemote(ref) {
				continue
			}
			file, anchor := pathutil.SplitRef(ref)
			if path.IsAbs(file) {
				continue
			}
			key := targetKey(pathutil.ResolveRef(r.rootFile, file), anchor)
			if _, seen := r.index[key]; !seen {
				r.index[key] = pointer + "/" + pathutil.EscapePointerToken(block.Content[i].Value)
			}
		}
	}
	if paths, err := parser.Lookup(root, parser.SectionPaths); err == nil {
		add(paths, "/"+parser.SectionPaths)
	}
	if components, err := parser.Lookup(root, parser.SectionComponents); err == nil {
		for i := 0; i+1 < len(components.Content); i += 2 {
			kind := components.Content[i].Value
			add(components.Content[i+1], "/"+parser.SectionComponents+"/"+pathutil.EscapePointerToken(kind))
		}
	}
	r.logger.Debug("root entries indexed", "entries", len(r.index))
}

// lookup maps a target to a local pointer, matching the longest indexed
// anchor prefix.
func (r *resolver) lookup(file, anchor string) (string, bool) {
	tokens := pathutil.PointerTokens(anchor)
	for n := len(tokens); n >= 0; n-- {
		prefix := ""
		if n > 0 {
			prefix = "/" + strings.Join(escapeAll(tokens[:n]), "/")
		}
		if pointer, ok := r.index[targetKey(file, prefix)]; ok {
			if n < len(tokens) {
				pointer += "/" + strings.Join(escapeAll(tokens[n:]), "/")
			}
			return pointer, true
		}
	}
	return "", false
}

func escapeAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = pathutil.EscapePointerToken(t)
	}
	return out
}

// entries replaces every entry of a paths or components block that
// references a fragment with the fragment content.
func (r *resolver) entries(block *yaml.Node, ptr *pathutil.Pointer) {
	if block == nil || block.Kind != yaml.MappingNode {
		r.walk(block, r.rootFile, ptr)
		return
	}
	for i := 0; i+1 < len(block.Content); i += 2 {
		ptr.Push(block.Content[i].Value)
		entry := block.Content[i+1]
		if ref, ok := parser.RefValue(entry); ok && !pathutil.IsLocalRef(ref) && !isRemote(ref) {
			if body := r.inline(ref, r.rootFile, ptr.String()); body != nil {
				block.Content[i+1] = body
			}
		} else {
			r.walk(entry, r.rootFile, ptr)
		}
		ptr.Pop()
	}
}

// walk rewrites every $ref below node, which lives in from.
func (r *resolver) walk(node *yaml.Node, from string, ptr *pathutil.Pointer) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.SequenceNode:
		for i, child := range node.Content {
			ptr.PushIndex(i)
			r.walk(child, from, ptr)
			ptr.Pop()
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == "$ref" && value.Kind == yaml.ScalarNode {
				r.rewrite(node, value, from, ptr.String())
				return
			}
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			ptr.Push(node.Content[i].Value)
			r.walk(node.Content[i+1], from, ptr)
			ptr.Pop()
		}
	}
}

// rewrite handles the $ref value held by the mapping owner.
func (r *resolver) rewrite(owner, value *yaml.Node, from, pointer string) {
	ref := value.Value
	if isRemote(ref) {
		return
	}
	file, anchor := pathutil.SplitRef(ref)
	if file == "" {
		file = from
	} else if path.IsAbs(file) {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{IsPathTraversal: true})
		return
	} else {
		file = pathutil.ResolveRef(from, file)
	}

	if file == r.rootFile {
		if from != r.rootFile {
			value.Value = pathutil.LocalRef(anchor)
			r.mapped++
		}
		return
	}
	if local, ok := r.lookup(file, anchor); ok {
		value.Value = pathutil.LocalRef(local)
		r.mapped++
		return
	}
	if body := r.inline(ref, from, pointer); body != nil {
		*owner = *body
	}
}

// inline loads the target of ref as seen from the file from, rewrites the
// references inside it and returns it. It returns nil after recording an
// error.
func (r *resolver) inline(ref, from, pointer string) *yaml.Node {
	file, anchor := pathutil.SplitRef(ref)
	if file == "" {
		file = from
	} else if path.IsAbs(file) {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{IsPathTraversal: true})
		return nil
	} else {
		file = pathutil.ResolveRef(from, file)
	}
	if file == ".." || strings.HasPrefix(file, "../") {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{IsPathTraversal: true})
		return nil
	}

	key := targetKey(file, anchor)
	if r.resolving[key] {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{IsCircular: true})
		return nil
	}
	if r.depth >= MaxRefDepth {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{Message: "maximum reference depth exceeded"})
		return nil
	}

	doc, err := r.load(file)
	if err != nil {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{Cause: err})
		return nil
	}
	target, ok := parser.ResolvePointer(doc, anchor)
	if !ok {
		r.fail(ref, from, pointer, &oaserrors.ReferenceError{Message: "anchor #" + anchor + " not found in " + file})
		return nil
	}

	body := parser.Clone(target)
	r.resolving[key] = true
	r.depth++
	ptr := pathutil.Get()
	for _, token := range pathutil.PointerTokens(anchor) {
		ptr.Push(token)
	}
	r.walk(body, file, ptr)
	pathutil.Put(ptr)
	r.depth--
	delete(r.resolving, key)

	r.inlined++
	return body
}

// load reads and caches a file below the root directory.
func (r *resolver) load(file string) (*yaml.Node, error) {
	if doc, ok := r.documents[file]; ok {
		return doc, nil
	}
	abs := filepath.Join(r.dir, filepath.FromSlash(file))
	if !pathutil.WithinDir(r.dir, abs) {
		return nil, &oaserrors.ReferenceError{IsPathTraversal: true, Ref: file}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, &oaserrors.ParseError{Path: file, Message: "file exceeds maximum size"}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	doc, err := parser.ParseFragment(data, file)
	if err != nil {
		return nil, err
	}
	r.documents[file] = doc
	r.logger.Debug("fragment loaded", "file", file, "size", parser.FormatBytes(info.Size()))
	return doc, nil
}

// fail completes refErr with the location of ref and records it.
func (r *resolver) fail(ref, from, pointer string, refErr *oaserrors.ReferenceError) {
	refErr.Ref = ref
	refErr.File = from
	refErr.Pointer = pointer
	r.logger.Error("reference unresolved", "ref", ref, "file", from, "pointer", pointer, "error", refErr.Error())
	r.errs = append(r.errs, refErr)
}

func isRemote(ref string) bool {
	file, _ := pathutil.SplitRef(ref)
	return strings.Contains(file, "://")
}

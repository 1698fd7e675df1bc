package reconciler

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/internal/fileutil"
	"github.com/erraggy/oasplit/internal/pathutil"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/rewriter"
	"go.yaml.in/yaml/v4"
)

func (r *run) checkPaths(paths *yaml.Node) {
	for i := 0; i+1 < len(paths.Content); i += 2 {
		template, body := paths.Content[i].Value, paths.Content[i+1]
		ref, isRef := parser.RefValue(body)
		if !isRef {
			continue
		}
		c := Check{
			Kind:    RefKindPath,
			Subject: template,
			Pointer: "/" + parser.SectionPaths + "/" + pathutil.EscapePointerToken(template),
			Ref:     ref,
		}
		target, ok := r.fragmentTarget(c, body)
		if !ok {
			continue
		}
		if r.resolves(target.File, target.Anchor) {
			c.State = StateValid
			r.record(c, body.Content[1])
			continue
		}

		if found := r.locatePath(template, target.File); found != "" {
			c.State = StateRepaired
			c.NewRef = pathutil.FileRef(found, "")
			c.Description = "located by content search"
		} else if sibling := r.duplicateSource(target.File); sibling != "" {
			c.State = StateDuplicated
			c.Source = sibling
			c.Description = "copied from sibling fragment"
			if !r.DryRun {
				if err := fileutil.CopyFile(r.abs(sibling), r.abs(target.File), fileutil.ReadableByAll); err != nil {
					c.State = StateIrreparable
					c.Description = err.Error()
				} else {
					r.result.Written = append(r.result.Written, target.File)
				}
			}
		} else {
			c.State = StateIrreparable
			c.Description = "target " + target.File + " is missing or not a mapping, and no fragment holds " + template
		}
		r.record(c, body.Content[1])
	}
}

func (r *run) checkComponents(components *yaml.Node) {
	for i := 0; i+1 < len(components.Content); i += 2 {
		kind, block := components.Content[i].Value, components.Content[i+1]
		if block.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(block.Content); j += 2 {
			name, body := block.Content[j].Value, block.Content[j+1]
			ref, isRef := parser.RefValue(body)
			if !isRef {
				continue
			}
			c := Check{
				Kind:    RefKindComponent,
				Subject: name,
				Pointer: "/" + parser.SectionComponents + "/" + pathutil.EscapePointerToken(kind) + "/" + pathutil.EscapePointerToken(name),
				Ref:     ref,
			}
			if kind == parser.ComponentSchemas {
				c.Kind = RefKindSchema
			}
			target, ok := r.fragmentTarget(c, body)
			if !ok {
				continue
			}

			if r.resolves(target.File, target.Anchor) {
				c.State = StateValid
			} else if found := r.locateEntry(kind, name, target.File); found != "" {
				c.State = StateRepaired
				if kind == parser.ComponentSchemas {
					c.NewRef = pathutil.FileRef(found, "/"+pathutil.EscapePointerToken(name))
					c.Description = "located by schema name"
				} else {
					c.NewRef = pathutil.FileRef(found, "")
					c.Description = "located by file name"
				}
			} else {
				c.State = StateIrreparable
				c.Description = "target " + target.File + " is missing or not a mapping"
				if target.Anchor != "" {
					c.Description = "target " + target.File + "#" + target.Anchor + " does not resolve"
				}
			}
			r.record(c, body.Content[1])
		}
	}
}

// fragmentTarget parses c.Ref as a reference to a fragment of the tree.
// Other references are settled and recorded here: an empty one is
// irreparable, a local one is checked against the root document, and a
// remote or absolute one is recorded as external.
func (r *run) fragmentTarget(c Check, body *yaml.Node) (rewriter.Reference, bool) {
	if target, err := rewriter.ParseReference(c.Ref); err == nil {
		return target, true
	}
	switch {
	case c.Ref == "" || c.Ref == "#":
		c.State = StateIrreparable
		c.Description = "empty reference"
	case pathutil.IsLocalRef(c.Ref):
		_, pointer := pathutil.SplitRef(c.Ref)
		node, ok := parser.ResolvePointer(r.root, pointer)
		switch {
		case !ok:
			c.State = StateIrreparable
			c.Description = "local reference " + c.Ref + " does not resolve in the root document"
		case node == body:
			c.State = StateIrreparable
			c.Description = "local reference " + c.Ref + " points at itself"
		default:
			c.State = StateValid
		}
	case strings.Contains(c.Ref, "://"):
		c.State = StateExternal
		c.Description = "remote reference"
	default:
		c.State = StateExternal
		c.Description = "absolute reference"
	}
	r.record(c, body.Content[1])
	return rewriter.Reference{}, false
}

// resolves reports whether rel parses as a mapping holding anchor.
func (r *run) resolves(rel, anchor string) bool {
	node, ok := r.loadMapping(rel)
	if !ok {
		return false
	}
	_, ok = parser.ResolvePointer(node, anchor)
	return ok
}

// notTemplateChar matches a character that cannot continue a path template.
const notTemplateChar = `[^A-Za-z0-9_/{}.~-]`

// mentionPattern matches template as a whole path, so "/farcaster/user" does
// not match inside "/farcaster/user/bulk" or "/v2/farcaster/user".
func mentionPattern(template string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|` + notTemplateChar + `)` + regexp.QuoteMeta(template) + `(?:` + notTemplateChar + `|$)`)
}

// locatePath searches the resource directory of missing, then the whole
// paths tree, for a fragment that mentions template as a whole path and
// which parses as a path item. Candidates are visited in sorted order.
func (r *run) locatePath(template, missing string) string {
	mention := mentionPattern(template)
	resourceDir := path.Dir(missing)
	tried := make(map[string]bool)
	candidates := r.listFragments(resourceDir)
	candidates = append(candidates, r.walkFragments(fragment.PathsDir)...)
	for _, rel := range candidates {
		if rel == missing || tried[rel] {
			continue
		}
		tried[rel] = true
		data, err := os.ReadFile(r.abs(rel))
		if err != nil || !mention.Match(data) {
			continue
		}
		if r.isPathItem(rel) {
			return rel
		}
	}
	return ""
}

// duplicateSource returns the sibling to copy onto a missing path target,
// or "" when duplication is off or the target exists.
func (r *run) duplicateSource(missing string) string {
	if !r.AllowDuplicate || fileutil.Exists(r.abs(missing)) {
		return ""
	}
	return r.firstSibling(missing)
}

// locateEntry finds the fragment that holds a component.
func (r *run) locateEntry(kind, name, missing string) string {
	if kind == parser.ComponentSchemas {
		return r.locateSchema(name)
	}
	return r.locateComponent(kind, name, missing)
}

// firstSibling returns the first path item fragment next to missing.
func (r *run) firstSibling(missing string) string {
	for _, rel := range r.listFragments(path.Dir(missing)) {
		if rel != missing && r.isPathItem(rel) {
			return rel
		}
	}
	return ""
}

var pathItemFields = map[string]bool{
	"$ref": true, "summary": true, "description": true, "servers": true, "parameters": true,
	"get": true, "put": true, "post": true, "delete": true, "options": true, "head": true, "patch": true, "trace": true,
}

// isPathItem reports whether rel parses as a non-empty Path Item Object.
func (r *run) isPathItem(rel string) bool {
	node, ok := r.loadMapping(rel)
	if !ok || len(node.Content) == 0 {
		return false
	}
	for _, key := range parser.MappingKeys(node) {
		if !pathItemFields[key] && !strings.HasPrefix(key, "x-") {
			return false
		}
	}
	return true
}

// locateSchema searches every schema fragment for a top-level key equal to name.
func (r *run) locateSchema(name string) string {
	for _, rel := range r.listFragments(path.Join(fragment.ComponentsDir, parser.ComponentSchemas)) {
		node, ok := r.loadMapping(rel)
		if !ok {
			continue
		}
		if _, err := parser.Lookup(node, name); err == nil {
			return rel
		}
	}
	return ""
}

// locateComponent looks in the kind directory for a fragment named after
// the component.
func (r *run) locateComponent(kind, name, missing string) string {
	if !fragment.ValidFileName(name) {
		return ""
	}
	for _, ext := range []string{"yaml", "yml"} {
		rel := fragment.ComponentFile(kind, name, ext)
		if rel == missing {
			continue
		}
		if _, ok := r.loadMapping(rel); ok {
			return rel
		}
	}
	return ""
}

// listFragments returns the YAML files directly inside dir (relative to the
// root directory), sorted.
func (r *run) listFragments(dir string) []string {
	if !pathutil.WithinDir(r.dir, r.abs(dir)) {
		return nil
	}
	entries, err := os.ReadDir(r.abs(dir))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && isYAML(e.Name()) {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// walkFragments returns every YAML file below dir, in lexical walk order.
func (r *run) walkFragments(dir string) []string {
	var out []string
	root := r.abs(dir)
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() && isYAML(d.Name()) {
			rel, relErr := filepath.Rel(r.dir, p)
			if relErr == nil {
				out = append(out, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	return out
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

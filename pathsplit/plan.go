package pathsplit

import (
	"errors"
	"sort"

	"github.com/erraggy/oasplit/parser"
)

// Plan is the outcome of splitting every path of a document.
type Plan struct {
	// Routed holds splittable paths with Resource and Action set,
	// sorted by (resource, action).
	Routed []parser.PathEntity
	// Inline holds paths that stay in the root, in source order.
	Inline []parser.PathEntity
}

// SplitAll splits every path. Split is injective, so every routed path gets
// its own fragment.
func (s *Splitter) SplitAll(paths []parser.PathEntity) (*Plan, error) {
	plan := &Plan{}
	for _, p := range paths {
		route, err := s.Split(p.Template)
		if errors.Is(err, ErrNotSplittable) {
			plan.Inline = append(plan.Inline, p)
			continue
		}
		if err != nil {
			return nil, err
		}
		p.Resource = route.Resource
		p.Action = route.Action
		plan.Routed = append(plan.Routed, p)
	}
	sort.Slice(plan.Routed, func(i, j int) bool {
		a, b := plan.Routed[i], plan.Routed[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Action < b.Action
	})
	return plan, nil
}

// Resources returns the distinct resources of the routed paths in sorted order.
func (p *Plan) Resources() []string {
	var out []string
	for _, r := range p.Routed {
		if len(out) == 0 || out[len(out)-1] != r.Resource {
			out = append(out, r.Resource)
		}
	}
	return out
}

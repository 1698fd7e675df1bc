// Package pathsplit maps OpenAPI path templates to a (resource, action)
// pair and back.
//
// Under a prefix such as "/farcaster", the first segment after the prefix is
// the resource and the remaining segments, joined with "_", are the action.
// A template with no segments after the resource gets the action "index":
//
//	/farcaster/channel/invite/accept -> channel, invite_accept
//	/farcaster/user                  -> user, index
//
// Inside a segment "~" is written "~0" and "_" is written "~1", so a bare
// "_" in an action is always a separator. A literal lone "index" segment is
// written "~2index" so it cannot be mistaken for the resource itself:
//
//	/farcaster/user/index            -> user, ~2index
//
// With these rules Join inverts Split.
package pathsplit

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/erraggy/oasplit/oaserrors"
)

// DefaultPrefix is the API prefix of the Farcaster hub API.
const DefaultPrefix = "/farcaster"

// IndexAction is the action for a template that ends at its resource.
const IndexAction = "index"

// LiteralIndexAction is the action for a template whose only segment after
// the resource is literally "index".
const LiteralIndexAction = "~2" + IndexAction

// ErrNotSplittable is returned for templates that have no (resource, action)
// form under the configured prefix. Such paths stay inline in the root.
var ErrNotSplittable = errors.New("pathsplit: template not splittable")

// Route is a path template with its derived resource and action.
type Route struct {
	Template string
	Resource string
	Action   string
}

// Fragment returns the slash-separated fragment path "resource/action.ext".
func (r Route) Fragment(ext string) string {
	return path.Join(r.Resource, r.Action+"."+ext)
}

// Key identifies the fragment a route maps to, independent of extension.
func (r Route) Key() string {
	return r.Resource + "/" + r.Action
}

// Splitter splits templates under one prefix.
type Splitter struct {
	prefix string
}

// New returns a Splitter for prefix. The prefix must be empty or start with
// "/"; a trailing "/" is ignored.
func New(prefix string) (*Splitter, error) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return nil, &oaserrors.ConfigError{Option: "prefix", Value: prefix, Message: `prefix must start with "/"`}
	}
	if strings.Contains(prefix, "//") {
		return nil, &oaserrors.ConfigError{Option: "prefix", Value: prefix, Message: "prefix has an empty segment"}
	}
	return &Splitter{prefix: prefix}, nil
}

// Prefix returns the normalized prefix.
func (s *Splitter) Prefix() string {
	return s.prefix
}

// Split maps a template to its route. It returns an error wrapping
// ErrNotSplittable when the template is outside the prefix, equals the
// prefix, or has an empty, "." or ".." segment.
func (s *Splitter) Split(template string) (Route, error) {
	rest, ok := strings.CutPrefix(template, s.prefix+"/")
	if !ok {
		return Route{}, fmt.Errorf("%w: %q is outside prefix %q", ErrNotSplittable, template, s.prefix)
	}
	segments := strings.Split(rest, "/")
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return Route{}, fmt.Errorf("%w: %q has an empty or relative segment", ErrNotSplittable, template)
		}
	}

	route := Route{Template: template, Resource: segments[0], Action: IndexAction}
	if len(segments) > 1 {
		escaped := make([]string, len(segments)-1)
		for i, seg := range segments[1:] {
			escaped[i] = EscapeSegment(seg)
		}
		route.Action = strings.Join(escaped, "_")
		if route.Action == IndexAction {
			route.Action = LiteralIndexAction
		}
	}
	return route, nil
}

// Join rebuilds the template for a resource and action under prefix.
// It is the inverse of Split for every splittable template.
func Join(prefix, resource, action string) (string, error) {
	prefix = strings.TrimRight(prefix, "/")
	if resource == "" || strings.Contains(resource, "/") {
		return "", fmt.Errorf("pathsplit: invalid resource %q", resource)
	}
	switch action {
	case IndexAction:
		return prefix + "/" + resource, nil
	case LiteralIndexAction:
		return prefix + "/" + resource + "/" + IndexAction, nil
	}
	if action == "" {
		return "", fmt.Errorf("pathsplit: empty action for resource %q", resource)
	}
	parts := strings.Split(action, "_")
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, resource)
	for _, part := range parts {
		seg, err := UnescapeSegment(part)
		if err != nil {
			return "", fmt.Errorf("pathsplit: action %q: %w", action, err)
		}
		if seg == "" {
			return "", fmt.Errorf("pathsplit: action %q has an empty segment", action)
		}
		segments = append(segments, seg)
	}
	return prefix + "/" + strings.Join(segments, "/"), nil
}

// EscapeSegment escapes "~" as "~0" and "_" as "~1".
func EscapeSegment(seg string) string {
	if !strings.ContainsAny(seg, "~_") {
		return seg
	}
	seg = strings.ReplaceAll(seg, "~", "~0")
	return strings.ReplaceAll(seg, "_", "~1")
}

// UnescapeSegment reverses EscapeSegment. A "~" not followed by "0" or "1"
// is an error; "~2" is only meaningful as the whole LiteralIndexAction.
func UnescapeSegment(seg string) (string, error) {
	if !strings.Contains(seg, "~") {
		return seg, nil
	}
	var b strings.Builder
	b.Grow(len(seg))
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c != '~' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(seg) {
			return "", fmt.Errorf("dangling escape in %q", seg)
		}
		switch seg[i+1] {
		case '0':
			b.WriteByte('~')
		case '1':
			b.WriteByte('_')
		default:
			return "", fmt.Errorf("invalid escape ~%c in %q", seg[i+1], seg)
		}
		i++
	}
	return b.String(), nil
}

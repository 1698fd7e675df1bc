package rewriter

import (
	"fmt"
	"path"
	"strings"

	"github.com/erraggy/oasplit/internal/pathutil"
)

// Reference is a relative file reference with an optional JSON pointer anchor.
type Reference struct {
	// File is the unescaped slash-separated path relative to the referencing document
	File string
	// Anchor is a JSON pointer into File without the leading '#' ("" for the whole file)
	Anchor string
}

// String renders the reference as it appears in a $ref value, with the
// file and anchor percent-encoded.
func (r Reference) String() string {
	return pathutil.FileRef(r.File, r.Anchor)
}

// ParseReference parses a relative file reference such as
// "./components/schemas/cast.yaml#/Cast". Local ("#/...") and absolute
// references, and references with a URL scheme, are rejected.
func ParseReference(ref string) (Reference, error) {
	file, anchor := pathutil.SplitRef(ref)
	switch {
	case file == "":
		return Reference{}, fmt.Errorf("rewriter: %q is a local reference", ref)
	case strings.Contains(file, "://"):
		return Reference{}, fmt.Errorf("rewriter: %q is a remote reference", ref)
	case path.IsAbs(file):
		return Reference{}, fmt.Errorf("rewriter: %q is an absolute reference", ref)
	}
	return Reference{File: path.Clean(file), Anchor: anchor}, nil
}

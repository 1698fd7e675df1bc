package pathutil

import (
	"net/url"
	"path"
	"strings"
)

// OAS 3.x local reference prefixes
const (
	RefPrefixComponents      = "#/components/"
	RefPrefixSchemas         = "#/components/schemas/"
	RefPrefixParameters      = "#/components/parameters/"
	RefPrefixResponses       = "#/components/responses/"
	RefPrefixSecuritySchemes = "#/components/securitySchemes/"
	RefPrefixPaths           = "#/paths/"
)

// SchemaRef builds "#/components/schemas/{name}".
func SchemaRef(name string) string {
	return RefPrefixSchemas + EscapePointerToken(name)
}

// ComponentRef builds "#/components/{kind}/{name}".
func ComponentRef(kind, name string) string {
	return RefPrefixComponents + kind + "/" + EscapePointerToken(name)
}

// ParseComponentRef splits a local "#/components/{kind}/{name}" reference.
// Deeper pointers (e.g. into a schema's properties) return the remainder as
// rest, still escaped, with its leading slash.
func ParseComponentRef(ref string) (kind, name, rest string, ok bool) {
	tail, found := strings.CutPrefix(ref, RefPrefixComponents)
	if !found {
		return "", "", "", false
	}
	kind, tail, found = strings.Cut(tail, "/")
	if !found || kind == "" || tail == "" {
		return "", "", "", false
	}
	if i := strings.IndexByte(tail, '/'); i >= 0 {
		rest = tail[i:]
		tail = tail[:i]
	}
	return kind, UnescapePointerToken(tail), rest, true
}

// EscapePointerToken escapes a JSON pointer reference token (RFC 6901).
func EscapePointerToken(token string) string {
	if !strings.ContainsAny(token, "~/") {
		return token
	}
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// UnescapePointerToken reverses EscapePointerToken.
func UnescapePointerToken(token string) string {
	if !strings.Contains(token, "~") {
		return token
	}
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// PointerTokens splits a JSON pointer ("/a/b~1c") into unescaped tokens.
// The empty pointer yields no tokens.
func PointerTokens(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		parts[i] = UnescapePointerToken(p)
	}
	return parts
}

// SplitRef splits a reference into its file part and its anchor (without
// the leading '#'), both percent-decoded. A local reference has an empty
// file part. A part that is not valid percent-encoding is returned as is.
func SplitRef(ref string) (file, anchor string) {
	file, anchor, _ = strings.Cut(ref, "#")
	return unescapeRef(file), unescapeRef(anchor)
}

func unescapeRef(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// EscapeRefPath percent-encodes each segment of a slash-separated file path
// for use as the path of a URI reference (RFC 3986).
func EscapeRefPath(file string) string {
	segments := strings.Split(file, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// EscapeRefFragment percent-encodes a JSON pointer for use as a URI
// fragment (RFC 6901 section 6). '/' and '~' are kept.
func EscapeRefFragment(pointer string) string {
	return (&url.URL{Fragment: pointer}).EscapedFragment()
}

// LocalRef builds "#{pointer}" with the pointer percent-encoded.
func LocalRef(pointer string) string {
	return "#" + EscapeRefFragment(pointer)
}

// IsLocalRef reports whether ref points into the same document.
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, "#")
}

// FileRef builds "./{file}" or "./{file}#{anchor}" for a slash-separated
// path relative to the referencing document. file and anchor are given
// unescaped and are percent-encoded in the result; SplitRef reverses it.
func FileRef(file, anchor string) string {
	ref := EscapeRefPath(file)
	if !strings.HasPrefix(ref, "./") && !strings.HasPrefix(ref, "../") {
		ref = "./" + ref
	}
	if anchor != "" {
		ref += LocalRef(anchor)
	}
	return ref
}

// RelativeRef builds a file reference from the document at from to the
// document at to. Both are slash-separated paths relative to the same root.
func RelativeRef(from, to, anchor string) string {
	fromDir := path.Dir(path.Clean(from))
	to = path.Clean(to)
	fromParts := splitDir(fromDir)
	toParts := strings.Split(to, "/")

	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}
	var rel []string
	for range fromParts[common:] {
		rel = append(rel, "..")
	}
	rel = append(rel, toParts[common:]...)
	return FileRef(strings.Join(rel, "/"), anchor)
}

// ResolveRef resolves a relative file reference against the slash-separated
// path of the document that holds it. The result is cleaned and relative to
// the same root; it may begin with ".." when the reference escapes it.
func ResolveRef(from, file string) string {
	return path.Clean(path.Join(path.Dir(from), file))
}

func splitDir(dir string) []string {
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

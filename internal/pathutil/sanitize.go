package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSymlink is returned by SanitizeOutputPath for a path that is a symlink.
var ErrSymlink = errors.New("pathutil: refusing to write through a symlink")

// SanitizeOutputPath returns the cleaned absolute form of an output
// directory or file. A path that does not exist yet is fine; one that
// exists as a symlink is rejected with ErrSymlink, so generated fragments
// never land outside the tree the user named.
func SanitizeOutputPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("pathutil: cannot resolve absolute path: %w", err)
	}
	info, err := os.Lstat(abs)
	if os.IsNotExist(err) {
		return abs, nil
	}
	if err != nil {
		return "", fmt.Errorf("pathutil: cannot stat path: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%w: %s", ErrSymlink, abs)
	}
	return abs, nil
}

// WithinDir reports whether target, once cleaned, is base itself or lies
// beneath it. Both paths should be absolute or both relative.
func WithinDir(base, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Package fileutil holds file permission constants and the write helpers
// used for fragment and root output.
package fileutil

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/erraggy/oasplit/oaserrors"
)

// OwnerReadWrite is the file permission mode for spec output files
// containing potentially sensitive API data (owner read/write only).
const OwnerReadWrite os.FileMode = 0o600

// ReadableByAll is the file permission mode for fragment files that
// external bundlers and linters read.
const ReadableByAll os.FileMode = 0o644

// DirMode is the permission mode for created output directories.
const DirMode os.FileMode = 0o755

// WriteFile writes data to path, creating parent directories on demand.
// Failures are returned as *oaserrors.WriteError.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return &oaserrors.WriteError{Path: filepath.Dir(path), Op: "mkdir", Cause: err}
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return &oaserrors.WriteError{Path: path, Op: "write", Cause: err}
	}
	return nil
}

// WriteFileIfChanged writes data only when the file is missing or its
// content differs. It reports whether a write happened.
func WriteFileIfChanged(path string, data []byte, perm os.FileMode) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, &oaserrors.WriteError{Path: path, Op: "read", Cause: err}
	}
	if err := WriteFile(path, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return &oaserrors.WriteError{Path: src, Op: "copy", Cause: err}
	}
	return WriteFile(dst, data, perm)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

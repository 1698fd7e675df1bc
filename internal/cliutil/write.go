// Package cliutil provides helpers shared by the oasplit commands.
package cliutil

import (
	"fmt"
	"io"
	"os"
)

// Writef writes formatted output to w. Command output has no caller that
// could act on a failed write, so the failure is reported on os.Stderr
// instead, unless w is os.Stderr itself.
func Writef(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err == nil || w == io.Writer(os.Stderr) {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "oasplit: write failed: %v\n", err)
}

// Writeln writes line and a newline to w. line is not a format string.
func Writeln(w io.Writer, line string) {
	Writef(w, "%s\n", line)
}

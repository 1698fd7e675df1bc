// Package options holds checks shared by the functional-option entry points.
package options

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSource is returned when no input source option was given.
	ErrNoSource = errors.New("no input source specified")
	// ErrMultipleSources is returned when more than one input source option was given.
	ErrMultipleSources = errors.New("multiple input sources specified")
)

// ExactlyOne checks that exactly one input source was set. names holds the
// option constructors in the same order as set and only feeds the message:
//
//	options.ExactlyOne([]string{"WithFilePath", "WithBytes"}, cfg.filePath != nil, cfg.bytes != nil)
func ExactlyOne(names []string, set ...bool) error {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("%w: use %s", ErrNoSource, orList(names))
	case n > 1:
		return fmt.Errorf("%w: use only one of %s", ErrMultipleSources, orList(names))
	}
	return nil
}

func orList(names []string) string {
	switch len(names) {
	case 0:
		return "an input option"
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

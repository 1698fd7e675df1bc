package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// SourceFormat is the serialization of a source document.
type SourceFormat string

const (
	// SourceFormatYAML marks a YAML source
	SourceFormatYAML SourceFormat = "yaml"
	// SourceFormatJSON marks a JSON source
	SourceFormatJSON SourceFormat = "json"
)

// DetectFormat reports the format of the document name holding data.
// A .json, .yaml or .yml extension decides; otherwise a leading '{' or '['
// means JSON and anything else YAML. The YAML decoder reads both, so the
// answer only picks the output style of regenerated documents.
func DetectFormat(name string, data []byte) SourceFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return SourceFormatJSON
	case ".yaml", ".yml":
		return SourceFormatYAML
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return SourceFormatJSON
	}
	return SourceFormatYAML
}

// FormatBytes renders a byte count with binary units for log records,
// e.g. "512 B" or "1.5 MiB".
func FormatBytes(size int64) string {
	const units = "KMGTPE"
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / 1024
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %ciB", value, units[i])
}

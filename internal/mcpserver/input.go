package mcpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/erraggy/oasplit/parser"
)

// inlineSourceName is reported as the source path of inline content.
const inlineSourceName = "inline.yaml"

// specInput is a source document given either as a path or inline.
type specInput struct {
	File    string `json:"file,omitempty"    jsonschema:"Path to an OAS 3.x file on disk"`
	Content string `json:"content,omitempty" jsonschema:"Inline OAS 3.x document content (JSON or YAML)"`
}

// cacheKey identifies the input's current bytes: files by absolute path,
// size and modification time, inline content by its SHA-256. It returns ""
// when the file cannot be stat'ed, which leaves the error to the parser.
func (s specInput) cacheKey() string {
	if s.File == "" {
		sum := sha256.Sum256([]byte(s.Content))
		return "content:" + hex.EncodeToString(sum[:])
	}
	abs, err := filepath.Abs(s.File)
	if err != nil {
		return ""
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ""
	}
	return "file:" + abs + ":" + strconv.FormatInt(info.Size(), 10) + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

func (s specInput) ttl() time.Duration {
	if s.File != "" {
		return cfg.Cache.FileTTL
	}
	return cfg.Cache.ContentTTL
}

func (s specInput) validate() error {
	switch {
	case (s.File == "") == (s.Content == ""):
		given := 0
		if s.File != "" {
			given = 2
		}
		return fmt.Errorf("exactly one of file or content must be provided (got %d)", given)
	case int64(len(s.Content)) > cfg.MaxInlineSize:
		return fmt.Errorf("inline content is %d bytes, over the %d byte limit; pass a file instead or raise %sMAX_INLINE_SIZE",
			len(s.Content), cfg.MaxInlineSize, envPrefix)
	}
	return nil
}

// resolve parses the input, serving repeated calls from the session cache.
func (s specInput) resolve() (*parser.ParseResult, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	var key string
	if cfg.Cache.Enabled {
		key = s.cacheKey()
	}
	if key != "" {
		if hit := documents.get(key); hit != nil {
			return hit, nil
		}
	}

	opts := []parser.Option{parser.WithFilePath(s.File)}
	if s.File == "" {
		opts = []parser.Option{parser.WithReader(strings.NewReader(s.Content)), parser.WithSourceName(inlineSourceName)}
	}
	result, err := parser.ParseWithOptions(opts...)
	if err != nil {
		return nil, err
	}
	if key != "" {
		documents.put(key, result, s.ttl())
	}
	return result, nil
}

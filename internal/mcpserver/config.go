package mcpserver

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// envPrefix namespaces the server settings. Pipeline defaults use the
// project config and its OASPLIT_* overrides instead; see pipelineDefaults.
const envPrefix = "OASPLIT_MCP_"

// cacheSettings controls the per-session cache of parsed source documents.
type cacheSettings struct {
	Enabled       bool
	Capacity      int
	FileTTL       time.Duration
	ContentTTL    time.Duration
	SweepInterval time.Duration
}

type serverConfig struct {
	Cache cacheSettings

	// PageSize is the default length of returned check and issue lists,
	// MaxPageSize the largest a client may ask for.
	PageSize    int
	MaxPageSize int

	// MaxInlineSize caps inline document content in bytes.
	MaxInlineSize int64
}

var cfg = loadConfig()

func loadConfig() *serverConfig {
	return &serverConfig{
		Cache: cacheSettings{
			Enabled:       fromEnv("CACHE_ENABLED", true, strconv.ParseBool),
			Capacity:      fromEnv("CACHE_MAX_SIZE", 10, positiveInt),
			FileTTL:       fromEnv("CACHE_FILE_TTL", 15*time.Minute, positiveDuration),
			ContentTTL:    fromEnv("CACHE_CONTENT_TTL", 15*time.Minute, positiveDuration),
			SweepInterval: fromEnv("CACHE_SWEEP_INTERVAL", time.Minute, positiveDuration),
		},
		PageSize:      fromEnv("LIST_LIMIT", 100, positiveInt),
		MaxPageSize:   fromEnv("MAX_LIMIT", 1000, positiveInt),
		MaxInlineSize: int64(fromEnv("MAX_INLINE_SIZE", 10<<20, positiveInt)),
	}
}

// fromEnv reads envPrefix+name. An unset variable yields fallback; one that
// parse rejects is logged and also yields fallback.
func fromEnv[T any](name string, fallback T, parse func(string) (T, error)) T {
	key := envPrefix + name
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid server setting", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err == nil && n <= 0 {
		err = strconv.ErrRange
	}
	return n, err
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil && d <= 0 {
		err = strconv.ErrRange
	}
	return d, err
}

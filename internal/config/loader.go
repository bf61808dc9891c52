package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix namespaces fully qualified environment overrides.
	EnvPrefix = "COURTSIDE_"
)

// envAliases maps the flat variable names used by deployments to config keys.
var envAliases = map[string]string{
	"SIMILARITY_METRIC":           "vector.metric",
	"MODEL_NAME":                  "generation.model",
	"MAX_LENGTH":                  "generation.max_length",
	"TEMPERATURE":                 "generation.temperature",
	"TOP_P":                       "generation.top_p",
	"HUGGINGFACEHUB_API_TOKEN":    "generation.api_token",
	"OPENAI_API_KEY":              "embedding.api_key",
	"CHROMEM_PATH":                "vector.chromem.path",
	"CHROMEM_IN_MEMORY":           "vector.chromem.in_memory",
	"QDRANT_HOST":                 "vector.qdrant.host",
	"QDRANT_PORT":                 "vector.qdrant.port",
	"QDRANT_USE_TLS":              "vector.qdrant.use_tls",
	"QDRANT_API_KEY":              "vector.qdrant.api_key",
	"LOG_LEVEL":                   "logging.level",
	"LOG_FORMAT":                  "logging.format",
	"OTEL_ENABLE":                 "telemetry.enabled",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "telemetry.endpoint",
}

// sections are the top-level keys an environment variable may address.
var sections = map[string]bool{
	"embedding":  true,
	"vector":     true,
	"generation": true,
	"retrieval":  true,
	"server":     true,
	"nats":       true,
	"logging":    true,
	"telemetry":  true,
}

// subsections are nested blocks whose name prefixes the field in an
// environment variable: VECTOR_QDRANT_HOST -> vector.qdrant.host.
var subsections = map[string][]string{
	"vector": {"chromem", "qdrant"},
}

// Load loads configuration from an optional YAML file, then overrides it with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (VECTOR_INDEX_NAME, MAX_LENGTH, COURTSIDE_SERVER_HTTP_PORT, ...)
//  2. YAML config file at path (skipped when path is empty or missing)
//  3. Defaults
//
// Environment variables split on the first underscore into section and field:
//
//	VECTOR_INDEX_NAME        -> vector.index_name
//	GENERATION_MAX_LENGTH    -> generation.max_length
//	COURTSIDE_RETRIEVAL_TOP_K -> retrieval.top_k
//	VECTOR_QDRANT_USE_TLS    -> vector.qdrant.use_tls
//
// Flat names such as MAX_LENGTH, TEMPERATURE and SIMILARITY_METRIC are
// resolved through an alias table. Variables naming no known section are
// ignored.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal over the defaults so keys that are set, even to zero, win.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable name to a config key, or "" to skip it.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}

	lower := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return ""
	}
	section, field := parts[0], parts[1]
	for _, sub := range subsections[section] {
		if rest, ok := strings.CutPrefix(field, sub+"_"); ok && rest != "" {
			return section + "." + sub + "." + rest
		}
	}
	return section + "." + field
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate via the open descriptor to avoid a stat/open race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties rejects oversized files and files writable by
// group or others. Config may carry API tokens.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

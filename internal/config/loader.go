package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	dotenvName        = ".env"
)

// sections are the top-level keys an environment variable may address.
var sections = map[string]bool{
	"pinecone":    true,
	"index":       true,
	"vectorstore": true,
	"qdrant":      true,
	"chromem":     true,
	"embeddings":  true,
	"splitter":    true,
	"log":         true,
	"otel":        true,
}

// envAliases maps variable names that do not follow the SECTION_FIELD pattern.
var envAliases = map[string]string{
	"PINECODE_INDEX": "index.name",
	"OPENAI_API_KEY": "embeddings.api_key",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is a YAML file. If empty, ~/.config/vectorctl/config.yaml is
	// used when it exists.
	ConfigFile string

	// EnvFile is a dotenv file. If empty, .env is searched for from the
	// working directory upward.
	EnvFile string

	// SkipDotenv disables .env loading entirely.
	SkipDotenv bool
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (PINECONE_API_KEY, INDEX_DIMENSION, ...)
//  2. .env file values (never override variables already set)
//  3. YAML config file
//  4. Defaults
//
// Environment variables map onto keys by splitting on the first underscore:
//
//	PINECONE_API_KEY   -> pinecone.api_key
//	EMBEDDINGS_MODEL   -> embeddings.model
//	QDRANT_USE_TLS     -> qdrant.use_tls
//
// PINECODE_INDEX and OPENAI_API_KEY are accepted as aliases for index.name
// and embeddings.api_key. A non-empty alias wins over INDEX_NAME or
// EMBEDDINGS_API_KEY.
func Load(opts LoadOptions) (Config, error) {
	if !opts.SkipDotenv {
		if err := loadDotenv(opts.EnvFile); err != nil {
			return Config{}, err
		}
	}

	k := koanf.New(".")

	configPath, explicit, err := resolveConfigPath(opts.ConfigFile)
	if err != nil {
		return Config{}, err
	}
	if configPath != "" {
		content, err := readConfigFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return Config{}, err
		default:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	// Aliases load in a second pass so they override regardless of
	// environment order.
	if err := k.Load(env.ProviderWithValue("", ".", aliasKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps a SECTION_FIELD environment variable name to a config key, or
// "" to skip it. Aliases are skipped.
func envKey(name string) string {
	if _, ok := envAliases[name]; ok {
		return ""
	}
	lower := strings.ToLower(name)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || parts[1] == "" || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// aliasKey maps a set alias variable to its config key, or "" to skip it.
func aliasKey(name, value string) (string, interface{}) {
	key, ok := envAliases[name]
	if !ok || value == "" {
		return "", nil
	}
	return key, value
}

// loadDotenv exports .env values into the process environment without
// overriding variables that are already set.
func loadDotenv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}

	found, err := findDotenv()
	if err != nil || found == "" {
		return err
	}
	if err := godotenv.Load(found); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", found, err)
	}
	return nil
}

// findDotenv walks from the working directory to the filesystem root and
// returns the first .env file found.
func findDotenv() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, dotenvName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// resolveConfigPath returns the YAML path to read and whether it was given
// explicitly. A missing default file is not an error.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		return ExpandPath(path), true, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, nil
	}
	return filepath.Join(home, ".config", "vectorctl", "config.yaml"), false, nil
}

// readConfigFile reads a config file after checking permissions and size on
// the opened descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file permissions and size.
// The file may hold API keys, so it must be 0600 or 0400.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

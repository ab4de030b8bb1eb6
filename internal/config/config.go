// Package config loads narcorisks.yaml, applies environment overrides and
// resolves the directories the tools write to.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "narcorisks.yaml"

	// StateDir holds logs and exports unless configured otherwise.
	StateDir = ".narcorisks"

	// DefaultSchemaSource is the published risks document.
	DefaultSchemaSource = "https://raw.githubusercontent.com/maxkayser/NarkoSafe/main/data/risks.json"

	defaultLanguage = "de"
	defaultHost     = "127.0.0.1"
	defaultPort     = 8470
	defaultTimeout  = 15 * time.Second
)

// Environment variables that override the file.
const (
	EnvSchema = "NARCORISKS_SCHEMA"
	EnvLang   = "NARCORISKS_LANG"
	EnvDebug  = "NARCORISKS_DEBUG"
	EnvHost   = "NARCORISKS_HOST"
	EnvPort   = "NARCORISKS_PORT"
)

const defaultConfigYAML = `# narcorisks configuration
version: 1

schema:
  # URL or local path of the risks document.
  source: ` + DefaultSchemaSource + `
  timeout: 15s

language:
  default: de
  fallback: de

export:
  dir: .narcorisks/exports

logging:
  dir: .narcorisks/logs
  debug: false

server:
  host: 127.0.0.1
  port: 8470
`

// SchemaConfig locates the risks document.
type SchemaConfig struct {
	Source  string        `yaml:"source"`
	Timeout time.Duration `yaml:"timeout"`
}

// LanguageConfig selects label languages.
type LanguageConfig struct {
	Default  string `yaml:"default"`
	Fallback string `yaml:"fallback"`
}

// ExportConfig controls summary file exports.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// ServerConfig is the HTTP API listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config models narcorisks.yaml.
type Config struct {
	Version  int            `yaml:"version"`
	Schema   SchemaConfig   `yaml:"schema"`
	Language LanguageConfig `yaml:"language"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`

	// Path is the file the config was read from, empty when defaults were used.
	Path string `yaml:"-"`
}

// Default returns the configuration used when no file exists, resolved
// against base.
func Default(base string) *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.normalize(base)
	return cfg
}

// Load reads the config at path. An empty path looks for FileName in the
// working directory and silently falls back to defaults when it is missing;
// an explicit path must exist. A .env file is loaded first so its values act
// as environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = FileName
	}
	base := filepath.Dir(path)
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.normalize(base)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WriteDefault creates a commented config file at path unless one exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Fallbacks returns the fallback languages for label resolution.
func (c *Config) Fallbacks() []string {
	if c.Language.Fallback == "" {
		return nil
	}
	return []string{c.Language.Fallback}
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if strings.TrimSpace(c.Schema.Source) == "" {
		c.Schema.Source = DefaultSchemaSource
	}
	if c.Schema.Timeout == 0 {
		c.Schema.Timeout = defaultTimeout
	}
	if strings.TrimSpace(c.Language.Default) == "" {
		c.Language.Default = defaultLanguage
	}
	if strings.TrimSpace(c.Language.Fallback) == "" {
		c.Language.Fallback = defaultLanguage
	}
	if strings.TrimSpace(c.Export.Dir) == "" {
		c.Export.Dir = filepath.Join(StateDir, "exports")
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = filepath.Join(StateDir, "logs")
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvSchema)); v != "" {
		c.Schema.Source = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLang)); v != "" {
		c.Language.Default = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		c.Logging.Debug = debug
	}
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		c.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) normalize(base string) {
	c.Schema.Source = strings.TrimSpace(c.Schema.Source)
	if !isURL(c.Schema.Source) {
		c.Schema.Source = resolvePath(base, c.Schema.Source)
	}
	c.Language.Default = NormalizeLanguage(c.Language.Default)
	c.Language.Fallback = NormalizeLanguage(c.Language.Fallback)
	c.Export.Dir = resolvePath(base, c.Export.Dir)
	c.Logging.Dir = resolvePath(base, c.Logging.Dir)
	c.Server.Host = strings.TrimSpace(c.Server.Host)
}

func (c *Config) validate() error {
	if c.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if c.Schema.Timeout < 0 {
		return fmt.Errorf("schema.timeout must not be negative")
	}
	if _, err := language.ParseBase(c.Language.Default); err != nil {
		return fmt.Errorf("language.default: unknown language %q", c.Language.Default)
	}
	if _, err := language.ParseBase(c.Language.Fallback); err != nil {
		return fmt.Errorf("language.fallback: unknown language %q", c.Language.Fallback)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

// NormalizeLanguage reduces a language tag such as "de-AT" or "EN_us" to its
// base code. Unparseable input is returned lower-cased and trimmed.
func NormalizeLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return strings.ToLower(trimmed)
	}
	base, _ := tag.Base()
	return base.String()
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "file://")
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

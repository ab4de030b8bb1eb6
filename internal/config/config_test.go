package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvSchema, EnvLang, EnvDebug, EnvHost, EnvPort} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected no config path, got %q", cfg.Path)
	}
	if cfg.Schema.Source != DefaultSchemaSource {
		t.Fatalf("schema source = %q", cfg.Schema.Source)
	}
	if cfg.Language.Default != "de" || cfg.Language.Fallback != "de" {
		t.Fatalf("languages = %+v", cfg.Language)
	}
	if cfg.Schema.Timeout != 15*time.Second {
		t.Fatalf("timeout = %v", cfg.Schema.Timeout)
	}
	if !strings.HasSuffix(cfg.Logging.Dir, filepath.Join(StateDir, "logs")) || !filepath.IsAbs(cfg.Logging.Dir) {
		t.Fatalf("logging dir = %q", cfg.Logging.Dir)
	}
	if cfg.Addr() != "127.0.0.1:8470" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
}

func TestLoadParsesYAMLAndResolvesPaths(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
schema:
  source: data/risks.json
  timeout: 3s
language:
  default: en-GB
  fallback: DE_at
export:
  dir: out
logging:
  dir: /var/tmp/narcorisks
  debug: true
server:
  port: 9000
`)
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Schema.Source != filepath.Join(dir, "data", "risks.json") {
		t.Fatalf("schema source not resolved: %q", cfg.Schema.Source)
	}
	if cfg.Schema.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", cfg.Schema.Timeout)
	}
	if cfg.Language.Default != "en" || cfg.Language.Fallback != "de" {
		t.Fatalf("languages not normalised: %+v", cfg.Language)
	}
	if cfg.Export.Dir != filepath.Join(dir, "out") {
		t.Fatalf("export dir = %q", cfg.Export.Dir)
	}
	if cfg.Logging.Dir != "/var/tmp/narcorisks" || !cfg.Logging.Debug {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Server.Host != defaultHost || cfg.Server.Port != 9000 {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("language:\n  default: de\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSchema, "https://example.org/risks.json")
	t.Setenv(EnvLang, "en")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "8080")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Schema.Source != "https://example.org/risks.json" {
		t.Fatalf("schema source = %q", cfg.Schema.Source)
	}
	if cfg.Language.Default != "en" || !cfg.Logging.Debug || cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cases := map[string]string{
		"bad port":     "server:\n  port: 70000\n",
		"bad language": "language:\n  default: \"not a language!\"\n",
		"bad yaml":     "schema: [",
		"bad version":  "version: -1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("explicit missing path should fail")
	}
}

func TestBadEnvPort(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvPort, "eighty")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), EnvPort) {
		t.Fatalf("err = %v, want %s error", err, EnvPort)
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatalf("second WriteDefault should refuse to overwrite")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load default file: %v", err)
	}
	if cfg.Schema.Source != DefaultSchemaSource || cfg.Server.Port != defaultPort {
		t.Fatalf("default file content mismatch: %+v", cfg)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	for in, want := range map[string]string{"de": "de", "de-AT": "de", "EN_us": "en", " fr ": "fr"} {
		if got := NormalizeLanguage(in); got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBackendURL, EnvOutputDir, EnvListen, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"backend_url": "http://file:5000/", "formats": ["png", "tga"], "preview_size": 512}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BackendURL != "http://file:5000/" || len(cfg.Formats) != 2 || cfg.PreviewSize != 512 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Listen != "" {
		t.Errorf("unset field Listen = %q, want empty", cfg.Listen)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("Load() of malformed JSON should fail")
	}
}

func TestResolve_Defaults(t *testing.T) {
	clearEnv(t)
	var cfg Config
	cfg.Resolve(Flags{})

	if cfg.BackendURL != DefaultBackendURL || cfg.OutputDir != DefaultOutputDir ||
		cfg.Listen != DefaultListen || cfg.LogLevel != DefaultLogLevel {
		t.Errorf("Resolve() = %+v", cfg)
	}
	if cfg.Listen != "localhost:3000" {
		t.Errorf("Listen = %q, viewer must default to loopback", cfg.Listen)
	}
	if len(cfg.Formats) != 1 || cfg.Formats[0] != DefaultFormat {
		t.Errorf("Formats = %v", cfg.Formats)
	}
	if cfg.TimeoutSecs != DefaultTimeoutSecs {
		t.Errorf("TimeoutSecs = %d", cfg.TimeoutSecs)
	}
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackendURL, "http://env:5000")
	t.Setenv(EnvOutputDir, "env-out")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Config{
		BackendURL: "http://file:5000/",
		OutputDir:  "file-out",
		Listen:     ":9000",
		LogLevel:   "warn",
		Formats:    []string{"png"},
	}
	cfg.Resolve(Flags{
		BackendURL: "http://flag:5000/",
		Formats:    "webp, tga",
	})

	if cfg.BackendURL != "http://flag:5000" {
		t.Errorf("BackendURL = %q, want flag value without trailing slash", cfg.BackendURL)
	}
	if cfg.OutputDir != "env-out" {
		t.Errorf("OutputDir = %q, want env value", cfg.OutputDir)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q, want file value", cfg.Listen)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want env value", cfg.LogLevel)
	}
	if len(cfg.Formats) != 2 || cfg.Formats[0] != "webp" || cfg.Formats[1] != "tga" {
		t.Errorf("Formats = %v", cfg.Formats)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvListen)
	path := filepath.Join(t.TempDir(), ".env")
	body := EnvListen + "=:7777\n" + EnvBackendURL + "=http://dotenv:5000\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	t.Setenv(EnvBackendURL, "http://already-set:5000")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv() failed: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvListen) })

	var cfg Config
	cfg.Resolve(Flags{})
	if cfg.Listen != ":7777" {
		t.Errorf("Listen = %q, want value from .env", cfg.Listen)
	}
	if cfg.BackendURL != "http://already-set:5000" {
		t.Errorf("BackendURL = %q, .env must not override the environment", cfg.BackendURL)
	}
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults applied by Resolve to fields left empty.
const (
	DefaultBackendURL  = "http://localhost:5000"
	DefaultOutputDir   = "output"
	DefaultListen      = "localhost:3000"
	DefaultLogLevel    = "info"
	DefaultFormat      = "webp"
	DefaultTimeoutSecs = 120
)

// Environment variables consulted by Resolve.
const (
	EnvBackendURL = "CROPMAP_BACKEND_URL"
	EnvOutputDir  = "CROPMAP_OUTPUT_DIR"
	EnvListen     = "CROPMAP_LISTEN"
	EnvLogLevel   = "CROPMAP_LOG_LEVEL"
)

// Config holds the backend location, export settings and viewer address.
type Config struct {
	BackendURL string `json:"backend_url"`
	OutputDir  string `json:"output_dir"`
	Listen     string `json:"listen"`
	LogLevel   string `json:"log_level"`

	// Export settings
	Formats     []string `json:"formats"`
	PreviewSize int      `json:"preview_size"`

	TimeoutSecs      int  `json:"timeout_seconds"`
	SkipArchiveCheck bool `json:"skip_archive_check"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadEnv reads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: env %s: %w", f, err)
		}
	}
	return nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	BackendURL string
	OutputDir  string
	Listen     string
	LogLevel   string
	Formats    string // comma separated
	Preview    int
}

// Resolve layers the environment and then CLI flags over the file values
// and fills whatever is still empty with defaults.
func (c *Config) Resolve(flags Flags) {
	// Environment overrides config file
	overrideEnv(&c.BackendURL, EnvBackendURL)
	overrideEnv(&c.OutputDir, EnvOutputDir)
	overrideEnv(&c.Listen, EnvListen)
	overrideEnv(&c.LogLevel, EnvLogLevel)

	// CLI flags override both
	if flags.BackendURL != "" {
		c.BackendURL = flags.BackendURL
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Listen != "" {
		c.Listen = flags.Listen
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.Formats != "" {
		c.Formats = splitList(flags.Formats)
	}
	if flags.Preview > 0 {
		c.PreviewSize = flags.Preview
	}

	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{DefaultFormat}
	}
	if c.PreviewSize < 0 {
		c.PreviewSize = 0
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = DefaultTimeoutSecs
	}
}

func overrideEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

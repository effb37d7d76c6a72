// Package config loads querybot settings from a TOML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// DefaultBaseURL is where the QueryBot server listens out of the box.
	DefaultBaseURL = "http://127.0.0.1:5000"

	// DefaultTimeout bounds a single /ask round trip.
	DefaultTimeout = 60 * time.Second

	// DefaultGlamourStyle lets glamour pick light or dark from the terminal.
	DefaultGlamourStyle = "auto"
)

// Config holds all querybot configuration.
type Config struct {
	BaseURL      string   `toml:"base_url"`
	Timeout      Duration `toml:"timeout"`
	Debug        bool     `toml:"debug"`
	LogFile      string   `toml:"log_file"`
	GlamourStyle string   `toml:"glamour_style"`
	NoColor      bool     `toml:"no_color"`
}

// Duration is a time.Duration written as a string ("45s", "2m") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration. LogFile is left empty when the
// home directory cannot be determined.
func Default() *Config {
	cfg := &Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      Duration{DefaultTimeout},
		GlamourStyle: DefaultGlamourStyle,
	}
	if dir, err := DefaultDir(); err == nil {
		cfg.LogFile = filepath.Join(dir, "querybot.log")
	}
	return cfg
}

// Load reads the TOML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error; an empty path skips
// the file entirely. The result is not validated: callers layer their own
// overrides on top first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("could not load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks that all required configuration fields are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", c.BaseURL)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	switch c.GlamourStyle {
	case "auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night":
	default:
		return fmt.Errorf("unknown glamour_style %q", c.GlamourStyle)
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func (c *Config) applyEnv() error {
	if v := getEnv("QUERYBOT_BASE_URL"); v != "" {
		c.BaseURL = v
	}

	if v := getEnv("QUERYBOT_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERYBOT_TIMEOUT value %q: %w", v, err)
		}
		c.Timeout = Duration{d}
	}

	debug, err := parseBoolEnv("QUERYBOT_DEBUG", c.Debug)
	if err != nil {
		return err
	}
	c.Debug = debug

	if v, ok := os.LookupEnv("QUERYBOT_LOG_FILE"); ok {
		c.LogFile = strings.TrimSpace(v)
	}

	if v := getEnv("QUERYBOT_GLAMOUR_STYLE"); v != "" {
		c.GlamourStyle = v
	}

	// https://no-color.org: any non-empty value disables color
	if getEnv("NO_COLOR") != "" {
		c.NoColor = true
	}

	return nil
}

// parseDuration accepts Go duration strings and bare integers as seconds.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key)
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

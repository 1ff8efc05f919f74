// Package config loads the settings of a greenstep run from a YAML file,
// .env files, and GREENSTEP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sarchlab/greenstep/sim"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes all the environment variables read by ApplyEnv.
const EnvPrefix = "GREENSTEP_"

// Errors returned while loading configuration.
var (
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Config holds the settings of a run.
type Config struct {
	// Speed is the initial speed in [0, 100].
	Speed int `yaml:"speed"`

	// Delay overrides the delay derived from Speed when set.
	Delay *time.Duration `yaml:"delay,omitempty"`

	StartPaused bool   `yaml:"start_paused"`
	LogLevel    string `yaml:"log_level"`

	Monitor   MonitorConfig   `yaml:"monitor"`
	Recording RecordingConfig `yaml:"recording"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Statsview StatsviewConfig `yaml:"statsview"`
}

// MonitorConfig configures the monitoring web server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// RecordingConfig configures the SQLite cycle recording.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`

	// StartCycle and EndCycle limit the recorded cycles. Zero leaves a side
	// of the range open.
	StartCycle uint64 `yaml:"start_cycle"`
	EndCycle   uint64 `yaml:"end_cycle"`
}

// SentryConfig configures fault reporting to Sentry. An empty DSN disables
// it.
type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

// StatsviewConfig configures the runtime statistics page. An empty address
// disables it.
type StatsviewConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Speed:       sim.DefaultSpeed,
		StartPaused: false,
		LogLevel:    "info",
		Monitor: MonitorConfig{
			Enabled: true,
		},
	}
}

// Load reads the defaults, overlays the YAML file at path if path is not
// empty, and then applies the environment.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) loadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("config: %s: %w", path, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	return c.Decode(f)
}

// Decode overlays YAML settings read from r.
func (c *Config) Decode(r io.Reader) error {
	err := yaml.NewDecoder(r).Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse yaml: %w", err)
	}

	return nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. With no arguments it loads
// ".env" if that file exists.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}

		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings with GREENSTEP_* variables found through
// lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.setInt("SPEED", &c.Speed)
	env.setDuration("DELAY", &c.Delay)
	env.setBool("START_PAUSED", &c.StartPaused)
	env.setString("LOG_LEVEL", &c.LogLevel)
	env.setBool("MONITOR_ENABLED", &c.Monitor.Enabled)
	env.setInt("MONITOR_PORT", &c.Monitor.Port)
	env.setBool("MONITOR_OPEN_BROWSER", &c.Monitor.OpenBrowser)
	env.setBool("RECORDING_ENABLED", &c.Recording.Enabled)
	env.setString("RECORDING_OUTPUT", &c.Recording.Output)
	env.setUint64("RECORDING_START_CYCLE", &c.Recording.StartCycle)
	env.setUint64("RECORDING_END_CYCLE", &c.Recording.EndCycle)
	env.setString("SENTRY_DSN", &c.Sentry.DSN)
	env.setString("STATSVIEW_ADDR", &c.Statsview.Addr)

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	val, ok := e.lookup(EnvPrefix + key)
	if !ok || val == "" {
		return "", false
	}

	return val, true
}

func (e *envReader) fail(key string, err error) {
	e.errs = append(e.errs,
		fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
}

func (e *envReader) setString(key string, dst *string) {
	if val, ok := e.get(key); ok {
		*dst = val
	}
}

func (e *envReader) setInt(key string, dst *int) {
	val, ok := e.get(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		e.fail(key, err)
		return
	}

	*dst = n
}

func (e *envReader) setUint64(key string, dst *uint64) {
	val, ok := e.get(key)
	if !ok {
		return
	}

	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		e.fail(key, err)
		return
	}

	*dst = n
}

func (e *envReader) setBool(key string, dst *bool) {
	val, ok := e.get(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		e.fail(key, err)
		return
	}

	*dst = b
}

func (e *envReader) setDuration(key string, dst **time.Duration) {
	val, ok := e.get(key)
	if !ok {
		return
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		e.fail(key, err)
		return
	}

	*dst = &d
}

// Validate checks that all the settings are in range.
func (c *Config) Validate() error {
	var errs []error

	if c.Speed < 0 || c.Speed > sim.MaxSpeed {
		errs = append(errs, fmt.Errorf("speed %d is not in [0, %d]",
			c.Speed, sim.MaxSpeed))
	}

	if c.Delay != nil && *c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay %s is negative", *c.Delay))
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		errs = append(errs, fmt.Errorf("monitor port %d is not valid",
			c.Monitor.Port))
	}

	if c.Recording.EndCycle != 0 &&
		c.Recording.StartCycle > c.Recording.EndCycle {
		errs = append(errs, fmt.Errorf(
			"recording range [%d, %d] ends before it starts",
			c.Recording.StartCycle, c.Recording.EndCycle))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// SlogLevel returns the configured log level. Unknown levels fall back to
// info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q is not valid", s)
	}

	return level, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

var log = commonlog.GetLogger("mdr.config")

// Config holds the runtime options for one engine instance.
type Config struct {
	// HotCallThreshold is how many calls with the same signature make it
	// eligible for specialization.
	HotCallThreshold int `toml:"hot-call-threshold" yaml:"hot-call-threshold"`

	EnableInlineCaches bool `toml:"inline-caches" yaml:"inline-caches"`
	EnableCounters     bool `toml:"counters" yaml:"counters"`
	EnableTimers       bool `toml:"timers" yaml:"timers"`

	// ProfileStats writes a stats report to ProfilerOutput on shutdown.
	ProfileStats   bool   `toml:"profile-stats" yaml:"profile-stats"`
	ProfilerOutput string `toml:"profiler-output" yaml:"profiler-output"`
	StatsFormat    string `toml:"stats-format" yaml:"stats-format"` // "toml" or "cbor"
	OutputDir      string `toml:"odir" yaml:"odir"`

	LogVerbosity int `toml:"log-verbosity" yaml:"log-verbosity"`

	DumpExceptions  bool `toml:"exception-dump" yaml:"exception-dump"`
	DumpStack       bool `toml:"stack-dump" yaml:"stack-dump"`
	FailOnException bool `toml:"fail-exceptions" yaml:"fail-exceptions"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HotCallThreshold:   8,
		EnableInlineCaches: true,
		EnableCounters:     true,
		ProfilerOutput:     "stats.toml",
		StatsFormat:        "toml",
		OutputDir:          ".",
	}
}

// Load reads a configuration file on top of the defaults. The format is
// chosen by extension: .toml, or .yaml/.yml.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debugf("loaded config from %s", path)
	return cfg, nil
}

// ApplyEnv overrides fields from MDR_* environment variables.
func (c *Config) ApplyEnv() *Config {
	c.HotCallThreshold = getEnvInt("MDR_HOT_CALL_THRESHOLD", c.HotCallThreshold)
	c.EnableInlineCaches = getEnvBool("MDR_INLINE_CACHES", c.EnableInlineCaches)
	c.EnableCounters = getEnvBool("MDR_COUNTERS", c.EnableCounters)
	c.EnableTimers = getEnvBool("MDR_TIMERS", c.EnableTimers)
	c.ProfileStats = getEnvBool("MDR_PROFILE_STATS", c.ProfileStats)
	c.ProfilerOutput = getEnvString("MDR_PROFILER_OUTPUT", c.ProfilerOutput)
	c.StatsFormat = getEnvString("MDR_STATS_FORMAT", c.StatsFormat)
	c.OutputDir = getEnvString("MDR_ODIR", c.OutputDir)
	c.LogVerbosity = getEnvInt("MDR_LOG_VERBOSITY", c.LogVerbosity)
	return c
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	if c.HotCallThreshold < 0 {
		return fmt.Errorf("hot-call-threshold must not be negative, got %d", c.HotCallThreshold)
	}
	switch c.StatsFormat {
	case "toml", "cbor":
	default:
		return fmt.Errorf("stats-format must be toml or cbor, got %q", c.StatsFormat)
	}
	return nil
}

// StatsPath is where the stats report is written.
func (c *Config) StatsPath() string {
	if filepath.IsAbs(c.ProfilerOutput) || c.OutputDir == "" {
		return c.ProfilerOutput
	}
	return filepath.Join(c.OutputDir, c.ProfilerOutput)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.ProfilerOutput == "" {
		c.ProfilerOutput = d.ProfilerOutput
	}
	if c.StatsFormat == "" {
		c.StatsFormat = d.StatsFormat
	}
}

// getEnvBool reads a boolean environment variable with a default value
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		log.Warningf("ignoring %s=%q: not a boolean", key, val)
	}
	return defaultVal
}

// getEnvInt reads an integer environment variable with a default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Warningf("ignoring %s=%q: not an integer", key, val)
	}
	return defaultVal
}

func getEnvString(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

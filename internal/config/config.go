// Package config loads netscope settings.
//
// Values are layered from lowest to highest priority: defaults in code, an
// optional YAML file, then NETSCOPE_* environment variables. Command-line
// flags are applied by the caller on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "netscope.yaml"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full netscope configuration.
type Config struct {
	Log      Log      `yaml:"log"`
	Analysis Analysis `yaml:"analysis"`
	Cache    Cache    `yaml:"cache"`
	Watch    Watch    `yaml:"watch"`
	Metrics  Metrics  `yaml:"metrics"`

	// LoadedFrom lists the sources that contributed, in order.
	LoadedFrom []string `yaml:"-"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Analysis holds engine defaults.
type Analysis struct {
	Weighted      bool          `yaml:"weighted"`
	HistogramBins int           `yaml:"histogram_bins"`
	GrowthSamples int           `yaml:"growth_samples"`
	TopK          int           `yaml:"top_k"`
	Timeout       time.Duration `yaml:"timeout"`
	Parallelism   int           `yaml:"parallelism"`
}

// Cache configures the on-disk result cache.
type Cache struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Watch configures file watching.
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Metrics configures the Prometheus endpoint of the serve command.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "console"},
		Analysis: Analysis{
			HistogramBins: 20,
			GrowthSamples: 200,
			TopK:          10,
			Timeout:       5 * time.Minute,
			Parallelism:   4,
		},
		Cache:   Cache{Enabled: true, Dir: ".netscope"},
		Watch:   Watch{Debounce: 500 * time.Millisecond},
		Metrics: Metrics{Addr: ":9464"},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path tries DefaultFile and ignores its absence; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.LoadedFrom = append(c.LoadedFrom, filepath.Clean(path))
	return nil
}

// applyEnv overlays NETSCOPE_* variables read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	applied := false

	if v, ok := lookup("NETSCOPE_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
		applied = true
	}
	if v, ok := lookup("NETSCOPE_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
		applied = true
	}
	if v, ok := lookup("NETSCOPE_WEIGHTED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: NETSCOPE_WEIGHTED: %w", ErrInvalidConfig, err)
		}
		c.Analysis.Weighted = b
		applied = true
	}
	if v, ok := lookup("NETSCOPE_HISTOGRAM_BINS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: NETSCOPE_HISTOGRAM_BINS: %w", ErrInvalidConfig, err)
		}
		c.Analysis.HistogramBins = n
		applied = true
	}
	if v, ok := lookup("NETSCOPE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: NETSCOPE_TIMEOUT: %w", ErrInvalidConfig, err)
		}
		c.Analysis.Timeout = d
		applied = true
	}
	if v, ok := lookup("NETSCOPE_CACHE_DIR"); ok && v != "" {
		c.Cache.Dir = v
		applied = true
	}
	if v, ok := lookup("NETSCOPE_METRICS_ADDR"); ok && v != "" {
		c.Metrics.Addr = v
		applied = true
	}

	if applied {
		c.LoadedFrom = append(c.LoadedFrom, "environment")
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if c.Analysis.HistogramBins <= 0 {
		errs = append(errs, fmt.Errorf("analysis.histogram_bins must be positive, got %d", c.Analysis.HistogramBins))
	}
	if c.Analysis.GrowthSamples < 0 {
		errs = append(errs, fmt.Errorf("analysis.growth_samples must not be negative, got %d", c.Analysis.GrowthSamples))
	}
	if c.Analysis.Timeout < 0 {
		errs = append(errs, fmt.Errorf("analysis.timeout must not be negative, got %s", c.Analysis.Timeout))
	}
	if c.Analysis.Parallelism <= 0 {
		errs = append(errs, fmt.Errorf("analysis.parallelism must be positive, got %d", c.Analysis.Parallelism))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Write encodes c as YAML in the layout Load reads.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

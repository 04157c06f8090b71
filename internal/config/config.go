// Package config loads the kstat command's configuration: a YAML
// file, then environment overrides, then (in cmd/kstat) flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kstat "github.com/illumos/go-kstat"
	"github.com/illumos/go-kstat/internal/logging"
	"github.com/illumos/go-kstat/internal/output"
)

// Environment variables that override the file.
const (
	EnvListen   = "KSTAT_LISTEN"
	EnvLogLevel = "LOG_LEVEL"
	EnvFixture  = "KSTAT_FIXTURE"
)

// Config is the complete configuration of the kstat command.
type Config struct {
	// Filter selects the kstats that list, read and the server's
	// /kstat/list and /kstat/read work with.
	Filter kstat.Filter `yaml:"filter"`

	// IsolateDecodeErrors reports undecodable kstats per record
	// instead of failing the whole read.
	IsolateDecodeErrors bool `yaml:"isolate_decode_errors"`

	// Fixture, if set, is a YAML kstat chain (see kstattest) that is
	// used instead of the system's kstats.
	Fixture string `yaml:"fixture"`

	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `yaml:"address"`

	// RateLimit is in requests per second.
	RateLimit      float64 `yaml:"rate_limit"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig picks the log level and format; see package logging
// for the values.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig configures where and how the CLI writes its results.
type OutputConfig struct {
	Format output.Format `yaml:"format"`
	// Path is the file to write to; empty means stdout.
	Path string `yaml:"path"`
}

// Default returns the configuration used when there is no file:
// every kstat, the jkstat port, info logging and JSON output.
func Default() *Config {
	return &Config{
		Filter: kstat.NewFilter(),
		Server: ServerConfig{
			Address:         ":3000",
			RateLimit:       100,
			RateLimitBurst:  200,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		Output: OutputConfig{
			Format: output.FormatJSON,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies the
// environment overrides and validates the result. An empty path
// means defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is Load for configuration that is already in memory. It does
// not look at the environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv applies the environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvFixture); v != "" {
		c.Fixture = v
	}
}

// Validate checks the configuration for values that can't work.
func (c *Config) Validate() error {
	var errs []error
	if c.Filter.Instance < kstat.AnyInstance {
		errs = append(errs, fmt.Errorf("filter.instance must be %d (any) or a real instance, not %d",
			kstat.AnyInstance, c.Filter.Instance))
	}
	if c.Output.Format.IsUnknown() {
		errs = append(errs, fmt.Errorf("output.format %q is not one of %s",
			c.Output.Format, strings.Join(output.SupportedFormats(), ", ")))
	}
	switch c.Logging.Format {
	case logging.FormatAuto, logging.FormatConsole, logging.FormatLogfmt, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of auto, console, logfmt, json", c.Logging.Format))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must not be empty"))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be positive, not %v", c.Server.RateLimit))
	}
	if c.Server.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_burst must be positive, not %d", c.Server.RateLimitBurst))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

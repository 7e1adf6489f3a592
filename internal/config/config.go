package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skypro1111/covertaudio/internal/audio"
	"github.com/skypro1111/covertaudio/internal/codec"
	"github.com/skypro1111/covertaudio/internal/framesync"
	"github.com/skypro1111/covertaudio/internal/modem"
	"github.com/skypro1111/covertaudio/internal/modifier"
	"github.com/skypro1111/covertaudio/internal/pipeline"
)

// ErrInvalidConfig matches every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError lists every problem found in a configuration.
type ConfigurationError struct {
	Problems []error
}

func (e *ConfigurationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%d configuration problem(s): %s", len(e.Problems), strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Unwrap() []error {
	return e.Problems
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Config represents the complete modem configuration
type Config struct {
	Modulation  modem.Params      `yaml:"modulation"`
	Modulator   ModulatorConfig   `yaml:"modulator"`
	Demodulator DemodulatorConfig `yaml:"demodulator"`
	Modifiers   []modifier.Spec   `yaml:"modifiers"`
	Data        DataConfig        `yaml:"data"`
	WAV         WAVConfig         `yaml:"wav"`
	Debug       DebugConfig       `yaml:"debug"`
	Workers     int               `yaml:"workers"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ModulatorConfig selects the modem and its frequencies
type ModulatorConfig struct {
	Kind             string  `yaml:"kind" json:"kind"`
	CarrierFrequency float64 `yaml:"carrier_frequency" json:"carrier_frequency,omitempty"`
	MinimumFrequency float64 `yaml:"minimum_frequency" json:"minimum_frequency,omitempty"`
	MaximumFrequency float64 `yaml:"maximum_frequency" json:"maximum_frequency,omitempty"`
	BandwidthDivisor float64 `yaml:"bandwidth_divisor" json:"bandwidth_divisor,omitempty"`
}

// DemodulatorConfig contains the detector and sentinel search settings
type DemodulatorConfig struct {
	modem.Detector    `yaml:",inline"`
	framesync.Options `yaml:",inline"`
}

// DataConfig describes the payload and how it is framed
type DataConfig struct {
	// Payload is the default text sent when the CLI is given none.
	Payload string `yaml:"payload"`
	// ByteCount truncates received payloads when positive.
	ByteCount int `yaml:"byte_count"`
	// Sentinel is hex encoded.
	Sentinel string       `yaml:"sentinel"`
	Codecs   []codec.Spec `yaml:"codecs"`
}

// WAVConfig contains WAV framing configuration
type WAVConfig struct {
	pipeline.WAVOptions `yaml:",inline"`
	Format              string `yaml:"format"`
}

// DebugConfig contains debug dump configuration
type DebugConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	Address         string `yaml:"address"`
	Enabled         bool   `yaml:"enabled"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var problems []error
	add := func(section string, err error) {
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", section, err))
		}
	}

	paramsErr := c.Modulation.Validate()
	add("modulation", paramsErr)
	// The modem checks depend on valid parameters
	if paramsErr == nil {
		add("modulator", c.ModemSpec().Validate(c.Modulation))
	}
	add("demodulator", c.Demodulator.Options.Validate())

	for i, spec := range c.Modifiers {
		add(fmt.Sprintf("modifiers[%d]", i), spec.Validate())
	}

	add("data", c.Data.Validate())
	add("wav", c.WAV.Validate())
	add("debug", c.Debug.Validate())
	if c.Workers < 0 {
		add("workers", fmt.Errorf("cannot be negative, got %d", c.Workers))
	}
	add("http", c.HTTP.Validate())
	add("logging", c.Logging.Validate())

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// Validate validates the payload framing
func (d *DataConfig) Validate() error {
	var errs []error
	if d.ByteCount < 0 {
		errs = append(errs, fmt.Errorf("byte_count cannot be negative, got %d", d.ByteCount))
	}
	if _, err := d.SentinelBytes(); err != nil {
		errs = append(errs, err)
	}
	for i, spec := range d.Codecs {
		if err := spec.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("codecs[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// SentinelBytes decodes the hex sentinel
func (d *DataConfig) SentinelBytes() ([]byte, error) {
	if d.Sentinel == "" {
		return nil, fmt.Errorf("sentinel cannot be empty")
	}
	b, err := hex.DecodeString(strings.TrimPrefix(d.Sentinel, "0x"))
	if err != nil {
		return nil, fmt.Errorf("sentinel must be hex encoded: %w", err)
	}
	return b, nil
}

// Validate validates WAV configuration
func (w *WAVConfig) Validate() error {
	if err := w.WAVOptions.Validate(); err != nil {
		return err
	}
	if w.Format != "" {
		if _, err := audio.ParseSampleFormat(w.Format); err != nil {
			return err
		}
	}
	return nil
}

// Options returns the framing options with the sample format resolved
func (w *WAVConfig) Options() pipeline.WAVOptions {
	opts := w.WAVOptions
	if format, err := audio.ParseSampleFormat(w.Format); err == nil {
		opts.Format = format
	}
	return opts
}

// Validate validates debug configuration
func (d *DebugConfig) Validate() error {
	if d.Enabled && d.Directory == "" {
		return fmt.Errorf("directory cannot be empty when debug is enabled")
	}
	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	if h.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes cannot be negative, got %d", h.MaxBodyBytes)
	}

	if h.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative, got %d", h.ShutdownTimeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout or stderr is a file path
	if strings.TrimSpace(l.Output) == "" && l.Output != "" {
		return fmt.Errorf("output cannot be blank")
	}

	return nil
}

// ModemSpec merges the modulator and detector sections
func (c *Config) ModemSpec() modem.Spec {
	return modem.Spec{
		Kind:             c.Modulator.Kind,
		CarrierFrequency: c.Modulator.CarrierFrequency,
		MinimumFrequency: c.Modulator.MinimumFrequency,
		MaximumFrequency: c.Modulator.MaximumFrequency,
		BandwidthDivisor: c.Modulator.BandwidthDivisor,
		Detector:         c.Demodulator.Detector,
	}
}

// Settings returns the pipeline settings described by the configuration
func (c *Config) Settings() (pipeline.Settings, error) {
	sentinel, err := c.Data.SentinelBytes()
	if err != nil {
		return pipeline.Settings{}, err
	}

	return pipeline.Settings{
		Params:    c.Modulation,
		Modem:     c.ModemSpec(),
		Modifiers: c.Modifiers,
		Codecs:    c.Data.Codecs,
		Sentinel:  sentinel,
		ByteCount: c.Data.ByteCount,
		Sync:      c.Demodulator.Options,
		Workers:   c.Workers,
	}, nil
}

// Sanitized returns a copy safe to expose over HTTP
func (c *Config) Sanitized() Config {
	out := *c
	out.Data.Payload = ""
	out.Debug.Directory = ""
	return out
}

// GetShutdownTimeoutDuration returns the shutdown timeout as a time.Duration
func (h *HTTPConfig) GetShutdownTimeoutDuration() time.Duration {
	if h.ShutdownTimeout == 0 {
		return 10 * time.Second
	}
	return time.Duration(h.ShutdownTimeout) * time.Second
}

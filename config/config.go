// Package config loads the YAML configuration shared by the CLI and the HTTP
// server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError = errors.New("configuration error")
	ErrUnexpectedField    = errors.New("unexpected field in configuration")
)

// HexColorRegex matches colors like "#1a237e".
var HexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: ErrConfigurationError}
}

// Scale modes for placing a signature image inside its field box.
const (
	ScaleStretch = "stretch"
	ScaleFit     = "fit"
	ScaleFill    = "fill"
)

// StampConfig controls how signature images are burned into PDF pages.
type StampConfig struct {
	// PointsPerPixel converts stored field box sizes to PDF points. The
	// default of 1.0 treats box sizes as points already.
	PointsPerPixel float64 `yaml:"points-per-pixel" json:"points_per_pixel"`

	// ScaleMode is "stretch" (fill the box exactly), "fit" (keep the aspect
	// ratio inside the box) or "fill" (keep the aspect ratio, clip overflow).
	ScaleMode string `yaml:"scale-mode" json:"scale_mode,omitempty"`

	// OutputVersion is the minimum PDF version of stamped output.
	OutputVersion string `yaml:"output-version" json:"output_version,omitempty"`
}

// SetDefaults sets default values for stamp configuration.
func (c *StampConfig) SetDefaults() {
	if c.PointsPerPixel == 0 {
		c.PointsPerPixel = 1.0
	}
	if c.ScaleMode == "" {
		c.ScaleMode = ScaleStretch
	}
	if c.OutputVersion == "" {
		c.OutputVersion = "1.4"
	}
}

// Validate validates the stamp configuration.
func (c *StampConfig) Validate() error {
	if c.PointsPerPixel <= 0 {
		return NewConfigError("stamp.points-per-pixel", "must be positive")
	}
	switch c.ScaleMode {
	case ScaleStretch, ScaleFit, ScaleFill:
	default:
		return NewConfigError("stamp.scale-mode", fmt.Sprintf("unknown mode %q", c.ScaleMode))
	}
	return nil
}

// CaptureConfig controls the raster produced by the signature pads.
type CaptureConfig struct {
	// CanvasWidth and CanvasHeight are the output image size in pixels.
	CanvasWidth  int `yaml:"canvas-width" json:"canvas_width"`
	CanvasHeight int `yaml:"canvas-height" json:"canvas_height"`

	// Background is "transparent" or "white".
	Background string `yaml:"background" json:"background,omitempty"`

	// InkColor is the stroke and text color as #rrggbb.
	InkColor string `yaml:"ink-color" json:"ink_color,omitempty"`

	// StrokeWidth is the freehand pen width in pixels.
	StrokeWidth float64 `yaml:"stroke-width" json:"stroke_width,omitempty"`
}

// SetDefaults sets default values for capture configuration.
func (c *CaptureConfig) SetDefaults() {
	if c.CanvasWidth == 0 {
		c.CanvasWidth = 400
	}
	if c.CanvasHeight == 0 {
		c.CanvasHeight = 150
	}
	if c.Background == "" {
		c.Background = "transparent"
	}
	if c.InkColor == "" {
		c.InkColor = "#000000"
	}
	if c.StrokeWidth == 0 {
		c.StrokeWidth = 2.5
	}
}

// Validate validates the capture configuration.
func (c *CaptureConfig) Validate() error {
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return NewConfigError("capture.canvas-width", "canvas size must be positive")
	}
	if c.Background != "transparent" && c.Background != "white" {
		return NewConfigError("capture.background", fmt.Sprintf("unknown background %q", c.Background))
	}
	if !HexColorRegex.MatchString(c.InkColor) {
		return NewConfigError("capture.ink-color", fmt.Sprintf("%q is not a #rrggbb color", c.InkColor))
	}
	if c.StrokeWidth <= 0 {
		return NewConfigError("capture.stroke-width", "must be positive")
	}
	return nil
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" json:"addr,omitempty"`

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `yaml:"max-body-bytes" json:"max_body_bytes,omitempty"`

	// Mode is the gin mode (debug, release, test).
	Mode string `yaml:"mode" json:"mode,omitempty"`
}

// SetDefaults sets default values for server configuration.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 32 << 20
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.MaxBodyBytes < 0 {
		return NewConfigError("server.max-body-bytes", "must not be negative")
	}
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return NewConfigError("server.mode", fmt.Sprintf("unknown mode %q", c.Mode))
	}
	return nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Format != "text" && c.Format != "json" {
		return NewConfigError("logging.format", fmt.Sprintf("unknown format %q", c.Format))
	}
	return nil
}

func (c *LoggingConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Level), Err: err}
	}
	return level, nil
}

// NewLogger builds a logger from the configuration. A file output is opened
// for appending and stays open for the life of the process.
func (c *LoggingConfig) NewLogger() (*slog.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := c.level()

	var out io.Writer
	switch c.Output {
	case "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output: %w", err)
		}
		out = f
	}
	return c.NewLoggerTo(out, level), nil
}

// NewLoggerTo builds a logger writing to w.
func (c *LoggingConfig) NewLoggerTo(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	Stamp   *StampConfig   `yaml:"stamp" json:"stamp,omitempty"`
	Capture *CaptureConfig `yaml:"capture" json:"capture,omitempty"`
	Server  *ServerConfig  `yaml:"server" json:"server,omitempty"`
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`
}

// SetDefaults fills missing sections and values.
func (c *AppConfig) SetDefaults() {
	if c.Stamp == nil {
		c.Stamp = &StampConfig{}
	}
	if c.Capture == nil {
		c.Capture = &CaptureConfig{}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Stamp.SetDefaults()
	c.Capture.SetDefaults()
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate validates every section.
func (c *AppConfig) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Stamp, c.Capture, c.Server, c.Logging} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultAppConfig returns a configuration with every default applied.
func DefaultAppConfig() *AppConfig {
	config := &AppConfig{}
	config.SetDefaults()
	return config
}

// LoadAppConfig loads the complete application configuration from a file.
// An empty filename yields the defaults.
func LoadAppConfig(filename string) (*AppConfig, error) {
	if filename == "" {
		return DefaultAppConfig(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&config); err != nil {
			if strings.Contains(err.Error(), "not found in type") {
				return nil, fmt.Errorf("%w: %v", ErrUnexpectedField, err)
			}
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

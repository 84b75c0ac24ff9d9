// Package config loads and validates ebitcompare settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoScenes is returned when neither scene images nor a watch directory
// were given.
var ErrNoScenes = errors.New("no scene image or watch directory")

// Config holds all ebitcompare configuration.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Slider     SliderConfig     `yaml:"slider"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails"`
	Watch      WatchConfig      `yaml:"watch"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Images are positional CLI arguments, not read from the file.
	Product string   `yaml:"-"`
	Scenes  []string `yaml:"-"`
}

// WindowConfig configures the Ebiten window.
type WindowConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Fullscreen bool   `yaml:"fullscreen"`
}

// SliderConfig configures the comparison slider.
type SliderConfig struct {
	Initial float64 `yaml:"initial"` // percent, 0 < initial <= 100
	Step    float64 `yaml:"step"`    // percent per arrow key press
	Label   string  `yaml:"label"`
}

// ThumbnailsConfig configures the scene history strip.
type ThumbnailsConfig struct {
	Visible bool `yaml:"visible"`
}

// WatchConfig configures the generated-scene directory watcher.
type WatchConfig struct {
	Dir      string `yaml:"dir"`
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 900,
			Title:  "ebitcompare",
		},
		Slider: SliderConfig{
			Initial: 50,
			Step:    2,
			Label:   "Image comparison slider",
		},
		Thumbnails: ThumbnailsConfig{Visible: true},
		Watch:      WatchConfig{Debounce: "300ms"},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the file-backed part of the config to path.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DebounceDuration parses Watch.Debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// Validate checks the config after CLI overrides have been applied.
func (c *Config) Validate() error {
	if c.Product == "" {
		return errors.New("product image is required")
	}
	if len(c.Scenes) == 0 && c.Watch.Dir == "" {
		return ErrNoScenes
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Slider.Initial <= 0 || c.Slider.Initial > 100 {
		return fmt.Errorf("slider initial %v out of range (0, 100]", c.Slider.Initial)
	}
	if c.Slider.Step <= 0 || c.Slider.Step > 100 {
		return fmt.Errorf("slider step %v out of range (0, 100]", c.Slider.Step)
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch debounce: %w", err)
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

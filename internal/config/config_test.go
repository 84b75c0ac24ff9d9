package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Product = "product.png"
	cfg.Scenes = []string{"scene.png"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50.0, cfg.Slider.Initial)
	assert.Equal(t, 2.0, cfg.Slider.Step)
	assert.True(t, cfg.Thumbnails.Visible)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDuration())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebitcompare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
window:
  width: 800
slider:
  step: 5
watch:
  dir: ./out
  debounce: 1s
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height, "unset keys keep defaults")
	assert.Equal(t, 5.0, cfg.Slider.Step)
	assert.Equal(t, 50.0, cfg.Slider.Initial)
	assert.Equal(t, "./out", cfg.Watch.Dir)
	assert.Equal(t, time.Second, cfg.DebounceDuration())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ebitcompare.yaml")
	cfg := DefaultConfig()
	cfg.Window.Title = "Scenes"
	cfg.Slider.Label = "Before and after"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		is      error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "watch only", mutate: func(c *Config) { c.Scenes = nil; c.Watch.Dir = "out" }},
		{name: "no product", mutate: func(c *Config) { c.Product = "" }, wantErr: true},
		{name: "nothing to compare", mutate: func(c *Config) { c.Scenes = nil }, wantErr: true, is: ErrNoScenes},
		{name: "bad window", mutate: func(c *Config) { c.Window.Width = 0 }, wantErr: true},
		{name: "initial too high", mutate: func(c *Config) { c.Slider.Initial = 101 }, wantErr: true},
		{name: "zero step", mutate: func(c *Config) { c.Slider.Step = 0 }, wantErr: true},
		{name: "bad debounce", mutate: func(c *Config) { c.Watch.Debounce = "soon" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

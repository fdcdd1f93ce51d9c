package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, PresentModeVSync, cfg.Renderer.PresentMode)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1.0}, cfg.Renderer.ClearColor)
	assert.Equal(t, float32(45), cfg.Camera.FOV)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
window:
  width: 800
renderer:
  present_mode: uncapped
  profiler: true
  profiler_interval: 250ms
camera:
  eye: [0, 0, 5]
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep defaults")
	assert.Equal(t, "oxy-view", cfg.Window.Title)
	assert.Equal(t, PresentModeUncapped, cfg.Renderer.PresentMode)
	assert.True(t, cfg.Renderer.Profiler)
	assert.Equal(t, 250*time.Millisecond, cfg.Renderer.ProfilerInterval)
	assert.Equal(t, [3]float32{0, 0, 5}, cfg.Camera.Eye)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"negative height", func(c *Config) { c.Window.Height = -1 }},
		{"fov too wide", func(c *Config) { c.Camera.FOV = 180 }},
		{"zero fov", func(c *Config) { c.Camera.FOV = 0 }},
		{"zero near", func(c *Config) { c.Camera.Near = 0 }},
		{"far before near", func(c *Config) { c.Camera.Far = c.Camera.Near }},
		{"present mode", func(c *Config) { c.Renderer.PresentMode = "triple" }},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"profiler interval", func(c *Config) { c.Renderer.Profiler = true; c.Renderer.ProfilerInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("window: [not, a, map"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("asset:\n  name: helmet\n  path: helmet.glb\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "helmet", cfg.Asset.Name)
	assert.Equal(t, "helmet.glb", cfg.Asset.Path)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadLayersWorkingDirThenConfigDir(t *testing.T) {
	work := t.TempDir()
	xdg := t.TempDir()
	t.Chdir(work)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", xdg)

	require.NoError(t, os.WriteFile(filepath.Join(work, FileName), []byte("window:\n  width: 640\n  height: 480\n"), 0o644))
	require.NoError(t, os.MkdirAll(ConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ConfigDir(), FileName), []byte("window:\n  height: 400\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 400, cfg.Window.Height)
}

func TestLoadWithoutFilesUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

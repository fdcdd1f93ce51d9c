// Package config holds the viewer settings and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/logger"
)

// Present mode names accepted in renderer.present_mode.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Camera   CameraConfig   `yaml:"camera"`
	Logging  LoggingConfig  `yaml:"logging"`
	Asset    AssetConfig    `yaml:"asset"`
}

// WindowConfig holds the initial window settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RendererConfig holds surface and frame settings.
type RendererConfig struct {
	PresentMode          string        `yaml:"present_mode"`
	ClearColor           [4]float64    `yaml:"clear_color"`
	ForceFallbackAdapter bool          `yaml:"force_fallback_adapter"`
	Profiler             bool          `yaml:"profiler"`
	ProfilerInterval     time.Duration `yaml:"profiler_interval"`
}

// CameraConfig holds the initial camera placement and input speeds.
type CameraConfig struct {
	FOV        float32    `yaml:"fov"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	Eye        [3]float32 `yaml:"eye"`
	Target     [3]float32 `yaml:"target"`
	MoveSpeed  float32    `yaml:"move_speed"`
	OrbitSpeed float32    `yaml:"orbit_speed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// AssetConfig selects the scene to show.
// Path, when set, is loaded from disk instead of the compiled-in asset.
type AssetConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Default returns a Config with the built-in defaults.
//
// Returns:
//   - *Config: a new Config
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-view",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode:      PresentModeVSync,
			ClearColor:       [4]float64{0.1, 0.2, 0.3, 1.0},
			ProfilerInterval: time.Second,
		},
		Camera: CameraConfig{
			FOV:        45,
			Near:       0.1,
			Far:        100,
			Eye:        [3]float32{0, 1, 2},
			Target:     [3]float32{0, 0, 0},
			MoveSpeed:  1.5,
			OrbitSpeed: 1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Asset: AssetConfig{
			Name: "scene",
		},
	}
}

// Validate reports the first setting that cannot drive the viewer.
//
// Returns:
//   - error: an error wrapping ErrInvalid, or nil
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d must be positive", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return fmt.Errorf("%w: camera fov %.1f must be within (0, 180)", ErrInvalid, c.Camera.FOV)
	case c.Camera.Near <= 0:
		return fmt.Errorf("%w: camera near %.3f must be positive", ErrInvalid, c.Camera.Near)
	case c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera far %.3f must exceed near %.3f", ErrInvalid, c.Camera.Far, c.Camera.Near)
	case c.Renderer.PresentMode != PresentModeVSync && c.Renderer.PresentMode != PresentModeUncapped:
		return fmt.Errorf("%w: unknown present mode %q", ErrInvalid, c.Renderer.PresentMode)
	case c.Renderer.Profiler && c.Renderer.ProfilerInterval <= 0:
		return fmt.Errorf("%w: profiler interval must be positive", ErrInvalid)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

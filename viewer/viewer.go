// Package viewer wires the window, the GPU device and the engine together for one scene.
package viewer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/logger"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
	"go.uber.org/zap"
)

// ErrNoAsset is returned by LoadAsset when neither a path nor embedded bytes are available.
var ErrNoAsset = errors.New("no asset configured")

// LoadAsset returns the scene cfg selects: the file at asset.path when set, otherwise the embedded GLB bytes.
//
// Parameters:
//   - cfg: the viewer configuration
//   - embedded: compiled-in GLB bytes, may be nil
//
// Returns:
//   - *model.SceneAsset: the parsed scene
//   - error: ErrNoAsset, an I/O error or a *loader.ParseError
func LoadAsset(cfg *config.Config, embedded []byte) (*model.SceneAsset, error) {
	l := loader.NewLoader()
	switch {
	case cfg.Asset.Path != "":
		return l.LoadFile(cfg.Asset.Path)
	case len(embedded) > 0:
		return l.LoadReader(cfg.Asset.Name, bytes.NewReader(embedded), true)
	default:
		return nil, ErrNoAsset
	}
}

// Run opens the window and the GPU device described by cfg and shows asset until the window closes.
// It must be called from the main goroutine.
//
// Parameters:
//   - cfg: the viewer configuration
//   - asset: the scene to show
//
// Returns:
//   - error: the window, device or frame error that ended the viewer
func Run(cfg *config.Config, asset *model.SceneAsset) error {
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := win.Close(); err != nil {
			logger.Warn("window close", zap.Error(err))
		}
	}()

	backend, err := gpu.NewWGPUBackend(win.SurfaceDescriptor(),
		gpu.WithForceFallbackAdapter(cfg.Renderer.ForceFallbackAdapter),
	)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(win, backend, asset, cfg)
	if err != nil {
		backend.Release()
		return fmt.Errorf("failed to build scene: %w", err)
	}
	return eng.Run()
}

// Main loads the configuration, initializes logging and runs the viewer, exiting through logger.Fatal
// on any error.
//
// Parameters:
//   - embedded: compiled-in GLB bytes used when the config names no asset path
func Main(embedded []byte) {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		logger.Fatal("logger", zap.Error(err))
	}
	defer logger.Sync()

	asset, err := LoadAsset(cfg, embedded)
	if err != nil {
		logger.Fatal("load asset", zap.Error(err))
	}
	if err := Run(cfg, asset); err != nil {
		logger.Fatal("viewer stopped", zap.Error(err))
	}
}

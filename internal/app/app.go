package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/bus"
	"github.com/specialistvlad/scenegrid/internal/coordinator"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/model"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/orchestrator"
	"github.com/specialistvlad/scenegrid/internal/simulator"
	"github.com/specialistvlad/scenegrid/internal/template"
)

const connectTimeout = 15 * time.Second

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	ctx    context.Context
	logger *slog.Logger
	config *Config
	scene  *model.Scene

	bus          bus.Bus
	index        *annotation.Index
	orchestrator atomic.Pointer[orchestrator.Orchestrator]
	httpServer   *http.Server
}

// NewApp is the constructor for the main application. It builds the logger
// and loads the scene file, applying the command-line overrides. Services are
// only contacted once Run is called.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	scene, err := model.LoadScene(ctx, cfg.ScenePath)
	if err != nil {
		return nil, err
	}
	if cfg.Iterations > 0 {
		scene.Iterations = cfg.Iterations
	}
	if cfg.Seed != nil {
		scene.Seed = *cfg.Seed
	}
	if cfg.OutputDir != "" {
		scene.OutputDir = cfg.OutputDir
	}
	if cfg.Simulate {
		scene.Bus.Transport = model.TransportMemory
	}
	logger.Debug("Scene loaded.", "iterations", scene.Iterations, "output_dir", scene.OutputDir)

	return &App{
		outW:   outW,
		ctx:    ctx,
		logger: logger,
		config: cfg,
		scene:  scene,
	}, nil
}

// Scene returns the effective scene configuration.
func (a *App) Scene() *model.Scene {
	return a.scene
}

// wire connects every component of a generation run.
func (a *App) wire(ctx context.Context) error {
	s := a.scene

	templates, skipped, err := template.Load(ctx, s.TemplateDir)
	for _, e := range skipped {
		a.logger.Warn("Template skipped", "error", e)
	}
	if err != nil {
		return err
	}
	a.logger.Info("Templates loaded.", "objects", len(templates.Objects()), "lights", len(templates.Lights()))

	topics := msgs.NewTopics(s.Bus.TopicPrefix)
	switch s.Bus.Transport {
	case model.TransportMemory:
		mem := bus.NewMemory()
		a.bus = mem
		if _, err := simulator.New(ctx, mem, topics, simulator.Config{
			Width:  s.Simulator.Width,
			Height: s.Simulator.Height,
			HFOV:   s.Simulator.HFOV,
		}); err != nil {
			return fmt.Errorf("starting loopback services: %w", err)
		}
		a.logger.Info("Using in-process loopback services.")
	default:
		sio, err := bus.DialSocketIO(ctx, bus.SocketIOOptions{
			URL:            s.Bus.URL,
			Namespace:      s.Bus.Namespace,
			ConnectTimeout: connectTimeout,
		})
		if err != nil {
			return err
		}
		a.bus = sio
	}

	coord, err := coordinator.New(ctx, a.bus, topics, s.Bus.Timeout)
	if err != nil {
		return err
	}

	if s.Index.Enabled {
		if a.index, err = annotation.OpenIndex(ctx, s.Index.Path); err != nil {
			return err
		}
	}
	writer, err := annotation.NewWriter(s.OutputDir, a.index)
	if err != nil {
		return err
	}

	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], s.Seed)
	orch, err := orchestrator.New(orchestrator.Config{
		Iterations: s.Iterations,
		MinObjects: s.Objects.Min,
		MaxObjects: s.Objects.Max,
		Rows:       s.Grid.Rows,
		Columns:    s.Grid.Columns,
		CellSize:   s.Grid.CellSize,
		Jitter:     s.Grid.Jitter,
		Camera:     s.Camera,
		Light:      s.Light,
		Physics:    s.Objects.Physics,
	}, orchestrator.Deps{
		Requester: coord,
		Templates: templates,
		Tokens:    template.NewTokens(rand.NewChaCha8(seed)),
		Writer:    writer,
		Rand:      rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)),
	})
	if err != nil {
		return err
	}
	// The health server may already be reading it.
	a.orchestrator.Store(orch)
	return nil
}

// close releases whatever wire opened.
func (a *App) close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("Closing bus failed", "error", err)
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("Closing index failed", "error", err)
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/visualizer"
)

// ErrNothingGenerated is returned when a run ends without a single completed
// iteration.
var ErrNothingGenerated = errors.New("no iteration completed")

// Run executes the generation run, or renders an overlay when the
// configuration asks for one.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Visualize >= 0 {
		return a.visualize()
	}

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	if err := a.wire(a.ctx); err != nil {
		a.close()
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close()

	orch := a.orchestrator.Load()
	if err := orch.Setup(a.ctx); err != nil {
		return fmt.Errorf("failed to configure world: %w", err)
	}

	a.logger.Info("🚀 Starting generation...", "iterations", a.scene.Iterations, "seed", a.scene.Seed)
	report, err := orch.Run(a.ctx)
	if err != nil {
		return fmt.Errorf("generation interrupted: %w", err)
	}
	a.logger.Info("🏁 Generation finished.", "completed", report.Completed, "failed", report.Failed, "output_dir", a.scene.OutputDir)

	if a.index != nil {
		counts, err := a.index.TemplateCounts(a.ctx)
		if err != nil {
			a.logger.Warn("Reading index summary failed", "error", err)
		} else {
			a.logger.Info("Annotations per template.", "counts", counts)
		}
	}

	if report.Completed == 0 {
		return ErrNothingGenerated
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) visualize() error {
	out := visualizer.OverlayPath(a.scene.OutputDir, a.config.Visualize)
	if err := visualizer.Render(a.scene.OutputDir, a.config.Visualize, out); err != nil {
		return fmt.Errorf("failed to render iteration %d: %w", a.config.Visualize, err)
	}
	a.logger.Info("Overlay written.", "path", out)
	return nil
}

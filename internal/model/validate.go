// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements static validation of a decoded Scene.
//
// Why collect every error?
//
// A scene file is edited by hand and rerun. Reporting all problems in one pass
// saves a round trip per mistake.
package model

import (
	"errors"
	"fmt"
	"math"
)

// Validate checks the scene for values no run could use.
func (s *Scene) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Iterations >= 1, "iterations must be at least 1, got %d", s.Iterations)
	check(s.TemplateDir != "", "template_dir is required")
	check(s.OutputDir != "", "output_dir is required")

	check(s.Grid.Rows >= 1, "grid.rows must be at least 1, got %d", s.Grid.Rows)
	check(s.Grid.Columns >= 1, "grid.columns must be at least 1, got %d", s.Grid.Columns)
	check(s.Grid.CellSize > 0, "grid.cell_size must be positive, got %v", s.Grid.CellSize)
	check(s.Grid.Jitter >= 0 && s.Grid.Jitter < s.Grid.CellSize/2,
		"grid.jitter must lie in [0, cell_size/2), got %v", s.Grid.Jitter)

	check(s.Objects.Min >= 1, "scene.min_objects must be at least 1, got %d", s.Objects.Min)
	check(s.Objects.Max >= s.Objects.Min,
		"scene.max_objects (%d) must not be less than min_objects (%d)", s.Objects.Max, s.Objects.Min)

	if err := s.Camera.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if err := s.Light.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("light: %w", err))
	}

	switch s.Bus.Transport {
	case TransportSocketIO:
		check(s.Bus.URL != "", "bus.url is required for the socketio transport")
	case TransportMemory:
	default:
		errs = append(errs, fmt.Errorf("bus.transport must be %q or %q, got %q", TransportSocketIO, TransportMemory, s.Bus.Transport))
	}
	check(s.Bus.Timeout >= 0, "bus.timeout must not be negative, got %s", s.Bus.Timeout)

	check(s.Simulator.Width > 0 && s.Simulator.Height > 0,
		"simulator size must be positive, got %dx%d", s.Simulator.Width, s.Simulator.Height)
	check(s.Simulator.HFOV > 0 && s.Simulator.HFOV < math.Pi,
		"simulator.hfov must lie in (0, 180) degrees")

	return errors.Join(errs...)
}

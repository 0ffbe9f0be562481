// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Scene structure, which is the root container for all
// configuration loaded from a scene file.
//
// Why resolve paths against the file?
//
// A scene file usually sits next to its templates and output directory. Making
// relative paths relative to the file, not to the working directory, lets the
// same file be run from anywhere.
package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/pose"
)

// Scene is a fully decoded scene configuration.
type Scene struct {
	// Path is the file the scene was loaded from.
	Path string

	Iterations  int
	Seed        uint64
	OutputDir   string
	TemplateDir string

	Objects   Objects
	Grid      Grid
	Camera    pose.Dome
	Light     pose.Dome
	Bus       Bus
	Index     Index
	Simulator Simulator
}

// hclSceneFile represents the top-level structure of a scene file for decoding.
type hclSceneFile struct {
	Iterations  int     `hcl:"iterations,attr"`
	Seed        *uint64 `hcl:"seed,optional"`
	OutputDir   string  `hcl:"output_dir,attr"`
	TemplateDir string  `hcl:"template_dir,attr"`

	Objects   hclObjects    `hcl:"scene,block"`
	Grid      hclGrid       `hcl:"grid,block"`
	Camera    hclDome       `hcl:"camera,block"`
	Light     hclDome       `hcl:"light,block"`
	Bus       *hclBus       `hcl:"bus,block"`
	Index     *hclIndex     `hcl:"index,block"`
	Simulator *hclSimulator `hcl:"simulator,block"`
}

// LoadScene parses and validates the scene file at path.
func LoadScene(ctx context.Context, path string) (*Scene, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scene", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scene file %s: %w", path, diags)
	}

	var raw hclSceneFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode scene file %s: %w", path, diags)
	}

	s, err := newScene(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("scene file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene file %s: %w", path, err)
	}

	if s.Objects.Max > s.Grid.Capacity() {
		logger.Warn("max_objects exceeds grid capacity, some iterations will fail to place",
			"max_objects", s.Objects.Max, "capacity", s.Grid.Capacity())
	}
	logger.Debug("Scene loaded", "iterations", s.Iterations, "seed", s.Seed, "transport", s.Bus.Transport)
	return s, nil
}

func newScene(path string, raw *hclSceneFile) (*Scene, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(abs)

	bus, err := newBus(raw.Bus)
	if err != nil {
		return nil, err
	}

	s := &Scene{
		Path:        abs,
		Iterations:  raw.Iterations,
		OutputDir:   resolve(base, raw.OutputDir),
		TemplateDir: resolve(base, raw.TemplateDir),
		Objects:     raw.Objects.model(),
		Grid:        raw.Grid.model(),
		Camera:      raw.Camera.model(),
		Light:       raw.Light.model(),
		Bus:         bus,
		Index:       newIndex(raw.Index, base),
		Simulator:   newSimulator(raw.Simulator),
	}
	if raw.Seed != nil {
		s.Seed = *raw.Seed
	} else {
		s.Seed = uint64(time.Now().UnixNano())
	}
	return s, nil
}

// resolve makes p absolute relative to base. Empty stays empty.
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

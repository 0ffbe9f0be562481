// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Grid and Objects blocks.
//
// Why are they separate?
//
// The grid is the placement surface and never changes during a run; the
// objects block says how much of it each iteration tries to fill. Keeping
// them apart lets max_objects exceed the capacity on purpose, which makes
// placement fail for that iteration instead of being rejected at load time.
package model

// Grid is the placement surface.
type Grid struct {
	Rows     int
	Columns  int
	CellSize float64
	// Jitter bounds the random offset from a cell center on each axis.
	Jitter float64
}

// Capacity is the number of cells.
func (g Grid) Capacity() int {
	return g.Rows * g.Columns
}

// Objects controls how many objects each iteration draws.
type Objects struct {
	Min     int
	Max     int
	Physics bool
}

type hclGrid struct {
	Rows     int      `hcl:"rows,attr"`
	Columns  int      `hcl:"columns,attr"`
	CellSize float64  `hcl:"cell_size,attr"`
	Jitter   *float64 `hcl:"jitter,optional"`
}

func (h hclGrid) model() Grid {
	g := Grid{Rows: h.Rows, Columns: h.Columns, CellSize: h.CellSize}
	if h.Jitter != nil {
		g.Jitter = *h.Jitter
	}
	return g
}

type hclObjects struct {
	Min     int   `hcl:"min_objects,attr"`
	Max     int   `hcl:"max_objects,attr"`
	Physics *bool `hcl:"physics,optional"`
}

func (h hclObjects) model() Objects {
	o := Objects{Min: h.Min, Max: h.Max}
	if h.Physics != nil {
		o.Physics = *h.Physics
	}
	return o
}

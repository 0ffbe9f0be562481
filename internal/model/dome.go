// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the camera and light dome blocks.
package model

import "github.com/specialistvlad/scenegrid/internal/pose"

type hclDome struct {
	RadiusMin    float64 `hcl:"radius_min,attr"`
	RadiusMax    float64 `hcl:"radius_max,attr"`
	ElevationMin float64 `hcl:"elevation_min,attr"`
	ElevationMax float64 `hcl:"elevation_max,attr"`
}

// model converts the degrees written in HCL to radians.
func (h hclDome) model() pose.Dome {
	return pose.Dome{
		RadiusMin:    h.RadiusMin,
		RadiusMax:    h.RadiusMax,
		ElevationMin: pose.Degrees(h.ElevationMin),
		ElevationMax: pose.Degrees(h.ElevationMax),
	}
}

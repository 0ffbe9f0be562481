// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Camera and Iteration.
package scene

import (
	"fmt"

	"github.com/specialistvlad/scenegrid/internal/pose"
)

// Camera is the capture camera. Width and Height are reported by the camera
// service with each capture; they are zero until the first capture.
type Camera struct {
	Pose   pose.Pose
	Width  int
	Height int
}

// NewCamera returns a camera at the identity pose.
func NewCamera() *Camera {
	return &Camera{Pose: pose.Identity()}
}

// Iteration is the state of a single pass of the pipeline.
type Iteration struct {
	Index   int
	Objects []*Object
	Light   *Object
	Camera  pose.Pose

	// StagedImage is where the camera service was asked to write the frame.
	StagedImage string
	Width       int
	Height      int
}

// NewIteration returns an empty iteration with the given index.
func NewIteration(index int) *Iteration {
	return &Iteration{Index: index}
}

// Entities returns every spawned object, light included.
func (it *Iteration) Entities() []*Object {
	all := make([]*Object, 0, len(it.Objects)+1)
	all = append(all, it.Objects...)
	if it.Light != nil {
		all = append(all, it.Light)
	}
	return all
}

// Names returns the names of every spawned object, light included.
func (it *Iteration) Names() []string {
	entities := it.Entities()
	names := make([]string, len(entities))
	for i, o := range entities {
		names[i] = o.Name
	}
	return names
}

// ArtifactName returns the base file name used for this iteration's outputs.
func ArtifactName(index int) string {
	return fmt.Sprintf("%06d", index)
}

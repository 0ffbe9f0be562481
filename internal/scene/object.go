// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Object and its Kind.
//
// Why keep Bounds in the local frame?
//
// Templates describe their geometry around their own origin. The object's pose
// is only known after grid placement, so the box stays local and Corners maps it
// into the world on demand. The same corners feed the projection request.
package scene

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/scenegrid/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind distinguishes how the simulator should spawn an object.
type Kind int

const (
	// KindMesh is an ordinary model referenced by URI.
	KindMesh Kind = iota
	// KindCustom is a model spawned from its inline description.
	KindCustom
	// KindLight is a light source; it does not occupy a grid cell.
	KindLight
)

var kindNames = [...]string{
	KindMesh:   "mesh",
	KindCustom: "custom",
	KindLight:  "light",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown object kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a template's kind attribute to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown object kind %q (expected mesh, custom or light)", s)
}

// Object is one template instance in a scene.
type Object struct {
	Name     string
	Token    string
	Template string
	Kind     Kind
	URI      string
	Source   []byte

	Pose      pose.Pose
	Bounds    r3.Box
	Materials []string
	Material  string
}

// IsLight reports whether the object is a light source.
func (o *Object) IsLight() bool {
	return o.Kind == KindLight
}

// Corners returns the eight world-space corners of the object's bounds.
func (o *Object) Corners() []r3.Vec {
	local := o.Bounds.Vertices()
	world := make([]r3.Vec, len(local))
	for i, v := range local {
		world[i] = o.Pose.Transform(v)
	}
	return world
}

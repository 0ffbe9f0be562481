// Package template loads object descriptions from a directory of HCL files
// and instantiates them with unique identifiers.
//
// A template file holds exactly one model block:
//
//	model "box" {
//	  kind = "mesh"
//	  uri  = "model://box"
//	  uid  = "TEMPLATE_UID"
//	  bounds {
//	    min = [-0.1, -0.1, 0]
//	    max = [0.1, 0.1, 0.2]
//	  }
//	  visual {
//	    materials = ["Gazebo/Red"]
//	  }
//	}
//
// Attributes other than these are carried through to the simulator untouched.
package template

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/fsutil"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTemplate matches every *Error.
var ErrTemplate = errors.New("template error")

// Error reports a template that could not be loaded or instantiated.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrTemplate, e.Err} }

// Template is a parsed object description.
type Template struct {
	Name      string
	Path      string
	Kind      scene.Kind
	URI       string
	Bounds    r3.Box
	Materials []string

	source []byte
}

type fileRoot struct {
	Models []*modelBlock `hcl:"model,block"`
	Remain hcl.Body      `hcl:",remain"`
}

type modelBlock struct {
	Name   string       `hcl:"name,label"`
	Kind   string       `hcl:"kind"`
	URI    string       `hcl:"uri,optional"`
	UID    string       `hcl:"uid,optional"`
	Bounds *boundsBlock `hcl:"bounds,block"`
	Visual *visualBlock `hcl:"visual,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type boundsBlock struct {
	Min []float64 `hcl:"min"`
	Max []float64 `hcl:"max"`
}

type visualBlock struct {
	Materials []string `hcl:"materials,optional"`
}

// Set is the collection of templates loaded at startup.
type Set struct {
	objects []*Template
	lights  []*Template
}

// Objects returns the templates that occupy grid cells.
func (s *Set) Objects() []*Template { return s.objects }

// Lights returns the light templates.
func (s *Set) Lights() []*Template { return s.lights }

// Len returns the number of loaded templates.
func (s *Set) Len() int { return len(s.objects) + len(s.lights) }

// Load parses every .hcl file under dir. Files that fail to parse are
// reported as *Error and skipped. The returned error is non-nil only when the
// directory cannot be read or no object template survives.
func Load(ctx context.Context, dir string) (*Set, []error, error) {
	logger := ctxlog.FromContext(ctx).With("template_dir", dir)

	files, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, nil, fmt.Errorf("scanning template directory: %w", err)
	}
	logger.Debug("Discovered template files.", "count", len(files))

	set := &Set{}
	var skipped []error
	parser := hclparse.NewParser()
	for _, path := range files {
		t, err := parseFile(parser, path)
		if err != nil {
			logger.Warn("Skipping malformed template", "path", path, "error", err)
			skipped = append(skipped, err)
			continue
		}
		if t.Kind == scene.KindLight {
			set.lights = append(set.lights, t)
		} else {
			set.objects = append(set.objects, t)
		}
	}

	if len(set.objects) == 0 {
		return nil, skipped, fmt.Errorf("no usable object templates in %s", dir)
	}
	logger.Info("Templates loaded", "objects", len(set.objects), "lights", len(set.lights), "skipped", len(skipped))
	return set, skipped, nil
}

func parseFile(parser *hclparse.Parser, path string) (*Template, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return parse(parser, src, path)
}

// Parse reads a single template from src. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Template, error) {
	return parse(hclparse.NewParser(), src, filename)
}

func parse(parser *hclparse.Parser, src []byte, path string) (*Template, error) {
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, &Error{Path: path, Err: diags}
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, &Error{Path: path, Err: diags}
	}
	if len(root.Models) != 1 {
		return nil, &Error{Path: path, Err: fmt.Errorf("expected exactly one model block, found %d", len(root.Models))}
	}

	t, err := fromBlock(root.Models[0])
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	t.Path = path
	t.source = src
	return t, nil
}

func fromBlock(b *modelBlock) (*Template, error) {
	kind, err := scene.ParseKind(b.Kind)
	if err != nil {
		return nil, err
	}
	if kind == scene.KindMesh && b.URI == "" {
		return nil, fmt.Errorf("model %q: mesh templates require a uri", b.Name)
	}

	t := &Template{Name: b.Name, Kind: kind, URI: b.URI}
	if b.Bounds != nil {
		if len(b.Bounds.Min) != 3 || len(b.Bounds.Max) != 3 {
			return nil, fmt.Errorf("model %q: bounds min and max need three components", b.Name)
		}
		lo := r3.Vec{X: b.Bounds.Min[0], Y: b.Bounds.Min[1], Z: b.Bounds.Min[2]}
		hi := r3.Vec{X: b.Bounds.Max[0], Y: b.Bounds.Max[1], Z: b.Bounds.Max[2]}
		if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
			return nil, fmt.Errorf("model %q: bounds min exceeds max", b.Name)
		}
		t.Bounds = r3.Box{Min: lo, Max: hi}
	} else if kind != scene.KindLight {
		return nil, fmt.Errorf("model %q: missing bounds block", b.Name)
	}
	if b.Visual != nil {
		t.Materials = b.Visual.Materials
	}
	return t, nil
}

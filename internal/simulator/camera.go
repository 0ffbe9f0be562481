package simulator

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

var background = color.RGBA{R: 96, G: 96, B: 96, A: 255}

// Project maps a world point to pixel coordinates for a camera at cam.
// Points at or behind the image plane map to NaN.
func (c Config) Project(cam pose.Pose, p r3.Vec) msgs.Point2 {
	local := cam.Inverse(p)
	if local.X <= 1e-9 {
		return msgs.Point2{U: math.NaN(), V: math.NaN()}
	}
	cx, cy := float64(c.Width)/2, float64(c.Height)/2
	f := cx / math.Tan(c.HFOV/2)
	return msgs.Point2{
		U: cx - f*local.Y/local.X,
		V: cy - f*local.Z/local.X,
	}
}

func (s *Simulator) moveCamera(_ context.Context, payload []byte) (any, error) {
	var req msgs.CameraRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Pose == nil {
		return nil, fmt.Errorf("camera move %d without pose", req.ID)
	}

	s.mu.Lock()
	s.camera = req.Pose.Pose()
	s.mu.Unlock()
	return &msgs.CameraResponse{ID: req.ID, Type: msgs.CameraMove}, nil
}

func (s *Simulator) project(_ context.Context, payload []byte) (any, error) {
	var req msgs.CameraRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}

	cam := s.CameraPose()
	points := make([]msgs.Point2, len(req.Points))
	for i, p := range req.Points {
		points[i] = s.cfg.Project(cam, p.Vec())
	}
	return &msgs.CameraResponse{
		ID:     req.ID,
		Type:   msgs.CameraProjection,
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
		Points: points,
	}, nil
}

func (s *Simulator) capture(_ context.Context, payload []byte) (any, error) {
	var req msgs.CameraRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}
	if req.File == "" {
		return nil, fmt.Errorf("capture %d without file", req.ID)
	}

	img := s.render()
	if err := os.MkdirAll(filepath.Dir(req.File), 0o755); err != nil {
		return nil, fmt.Errorf("capture %d: %w", req.ID, err)
	}
	f, err := os.Create(req.File)
	if err != nil {
		return nil, fmt.Errorf("capture %d: %w", req.ID, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("capture %d: %w", req.ID, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("capture %d: %w", req.ID, err)
	}

	return &msgs.CameraResponse{
		ID:     req.ID,
		Type:   msgs.CameraCapture,
		File:   req.File,
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
	}, nil
}

// render draws every object's projected bounds as a filled rectangle.
func (s *Simulator) render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.Kind == scene.KindLight {
			continue
		}
		obj := scene.Object{Pose: e.Pose.Pose(), Bounds: e.bounds}
		corners := obj.Corners()
		points := make([]msgs.Point2, len(corners))
		for i, c := range corners {
			points[i] = s.cfg.Project(s.camera, c)
		}
		box, ok := annotation.BoundingBox(points, s.cfg.Width, s.cfg.Height)
		if !ok {
			continue
		}
		rect := image.Rect(box.XMin, box.YMin, box.XMax+1, box.YMax+1)
		draw.Draw(img, rect, &image.Uniform{C: colorOf(e.material, e.Name)}, image.Point{}, draw.Over)
	}
	return img
}

func colorOf(keys ...string) color.RGBA {
	h := fnv.New32a()
	for _, k := range keys {
		if k != "" {
			h.Write([]byte(k))
			break
		}
	}
	sum := h.Sum32()
	return color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
}

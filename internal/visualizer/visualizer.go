// Package visualizer renders the stored annotations of an iteration on top of
// its frame, for debugging datasets.
package visualizer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// screenDPI converts frame pixels to plot lengths so the overlay keeps the
// frame's size.
const screenDPI = 96

var boxColor = color.RGBA{R: 255, G: 40, B: 40, A: 255}

// OverlayPath returns where Render writes the overlay of iteration by default.
func OverlayPath(dir string, iteration int) string {
	return filepath.Join(dir, scene.ArtifactName(iteration)+"_overlay.png")
}

// Render draws every annotated box of iteration over its frame and saves the
// result to out as a PNG the size of the frame.
func Render(dir string, iteration int, out string) error {
	rec, err := annotation.Read(dir, iteration)
	if err != nil {
		return fmt.Errorf("reading annotations: %w", err)
	}
	img, err := loadImage(filepath.Join(dir, rec.Image))
	if err != nil {
		return fmt.Errorf("reading frame: %w", err)
	}

	w, h := float64(rec.Width), float64(rec.Height)
	if w == 0 || h == 0 {
		b := img.Bounds()
		w, h = float64(b.Dx()), float64(b.Dy())
	}

	p := plot.New()
	p.X.Min, p.X.Max = 0, w
	p.Y.Min, p.Y.Max = 0, h
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.Add(plotter.NewImage(img, 0, 0, w, h))

	labels := plotter.XYLabels{}
	for _, a := range rec.Annotations {
		line, err := plotter.NewLine(outline(a.Box, h))
		if err != nil {
			return fmt.Errorf("outlining %s: %w", a.Object, err)
		}
		line.Color = boxColor
		line.Width = vg.Points(2)
		p.Add(line)

		labels.XYs = append(labels.XYs, plotter.XY{X: float64(a.Box.XMin), Y: h - float64(a.Box.YMin)})
		labels.Labels = append(labels.Labels, a.Object)
	}
	if len(labels.XYs) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("labelling boxes: %w", err)
		}
		for i := range l.TextStyle {
			l.TextStyle[i].Color = boxColor
		}
		p.Add(unpadded{l})
	}

	width := vg.Length(w) * vg.Inch / screenDPI
	height := vg.Length(h) * vg.Inch / screenDPI
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(screenDPI))
	p.Draw(draw.New(c))

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding overlay: %w", err)
	}
	return f.Close()
}

// unpadded hides a plotter's glyph boxes so labels near the frame edge do
// not shrink the data area away from the frame.
type unpadded struct {
	plot.Plotter
}

// outline returns the closed polyline of a box. Plot Y grows upwards while
// image rows grow downwards.
func outline(b annotation.BBox, height float64) plotter.XYs {
	x0, x1 := float64(b.XMin), float64(b.XMax+1)
	y0, y1 := height-float64(b.YMin), height-float64(b.YMax+1)
	return plotter.XYs{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
		{X: x0, Y: y0},
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

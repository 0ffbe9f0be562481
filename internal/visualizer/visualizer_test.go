package visualizer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func writeIteration(t *testing.T, dir string) {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	w, err := annotation.NewWriter(dir, nil)
	require.NoError(t, err)

	it := scene.NewIteration(7)
	it.Width, it.Height = 64, 48
	it.Camera = pose.Identity()
	it.Objects = []*scene.Object{{Name: "box_0123abcd", Template: "box", Kind: scene.KindMesh}}
	it.StagedImage = w.StagingPath(7)

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(it.StagedImage), 0o755))
	f, err := os.Create(it.StagedImage)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	_, err = w.Write(ctx, it, [][]msgs.Point2{{{U: 10, V: 5}, {U: 30, V: 20}}})
	require.NoError(t, err)
}

func TestRender_WritesOverlay(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	writeIteration(t, dir)
	out := OverlayPath(filepath.Join(dir, "debug"), 7)

	// --- Act ---
	err := Render(dir, 7, out)

	// --- Assert ---
	require.NoError(t, err)
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds(), "overlay keeps the frame size")

	// The left edge of the box runs along column 10 between rows 5 and 20.
	var red int
	for y := 8; y <= 17; y++ {
		for x := 9; x <= 11; x++ {
			if isBoxColor(img.At(x, y)) {
				red++
				break
			}
		}
	}
	assert.GreaterOrEqual(t, red, 8, "overlay contains the left edge of the box outline")
	assert.False(t, isBoxColor(img.At(50, 40)), "pixels away from the box keep the frame colour")
}

func isBoxColor(c color.Color) bool {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return rgba.R > 200 && rgba.G < 100
}

func TestRender_MissingIteration(t *testing.T) {
	t.Parallel()

	err := Render(t.TempDir(), 3, filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutline_FlipsRowsAndCloses(t *testing.T) {
	t.Parallel()

	got := outline(annotation.BBox{XMin: 10, YMin: 5, XMax: 29, YMax: 19}, 48)

	want := plotter.XYs{
		{X: 10, Y: 43},
		{X: 30, Y: 43},
		{X: 30, Y: 28},
		{X: 10, Y: 28},
		{X: 10, Y: 43},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
}

package scene

import (
	"math"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want Kind
	}{
		{"mesh", KindMesh},
		{"Custom", KindCustom},
		{"LIGHT", KindLight},
	} {
		got, err := ParseKind(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseKind("sphere")
	require.Error(t, err)
}

func TestKind_TextRoundTrip(t *testing.T) {
	t.Parallel()

	text, err := KindLight.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "light", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("custom")))
	assert.Equal(t, KindCustom, k)

	_, err = Kind(42).MarshalText()
	require.Error(t, err)
}

func TestObject_CornersFollowPose(t *testing.T) {
	t.Parallel()

	o := &Object{
		Bounds: r3.NewBox(-0.5, -0.5, 0, 0.5, 0.5, 1),
		Pose:   pose.FromYaw(r3.Vec{X: 10, Y: 0, Z: 0}, math.Pi/2),
	}

	corners := o.Corners()

	require.Len(t, corners, 8)
	for _, c := range corners {
		assert.InDelta(t, 10, c.X, 0.5+1e-9)
		assert.InDelta(t, 0, c.Y, 0.5+1e-9)
		assert.GreaterOrEqual(t, c.Z, -1e-9)
		assert.LessOrEqual(t, c.Z, 1+1e-9)
	}
}

func TestIteration_NamesIncludeLight(t *testing.T) {
	t.Parallel()

	it := NewIteration(3)
	it.Objects = []*Object{{Name: "box_1"}, {Name: "cyl_2"}}
	it.Light = &Object{Name: "sun_3", Kind: KindLight}

	assert.Equal(t, []string{"box_1", "cyl_2", "sun_3"}, it.Names())
	assert.Equal(t, "000003", ArtifactName(it.Index))
}

package template

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func loadFixtures(t *testing.T, extra map[string]string) (*Set, []error) {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.Templates())
	testutil.WriteFiles(t, dir, extra)

	set, skipped, err := Load(ctx, filepath.Join(dir, "models"))
	require.NoError(t, err)
	return set, skipped
}

func TestLoad_SplitsObjectsAndLights(t *testing.T) {
	t.Parallel()

	set, skipped := loadFixtures(t, nil)

	require.Empty(t, skipped)
	require.Len(t, set.Objects(), 2)
	require.Len(t, set.Lights(), 1)
	assert.Equal(t, 3, set.Len())

	box := set.Objects()[0]
	assert.Equal(t, "box", box.Name)
	assert.Equal(t, scene.KindMesh, box.Kind)
	assert.Equal(t, "model://box", box.URI)
	assert.Equal(t, r3.Box{Min: r3.Vec{X: -0.1, Y: -0.1}, Max: r3.Vec{X: 0.1, Y: 0.1, Z: 0.2}}, box.Bounds)
	assert.Equal(t, []string{"Gazebo/Red", "Gazebo/Green", "Gazebo/Blue"}, box.Materials)

	assert.Equal(t, scene.KindCustom, set.Objects()[1].Kind)
	assert.Equal(t, "sun", set.Lights()[0].Name)
}

func TestLoad_SkipsMalformedTemplates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	extra := map[string]string{
		"models/broken.hcl":   `model "broken" { kind = `,
		"models/nokind.hcl":   `model "nokind" { uri = "x" }`,
		"models/twice.hcl":    `model "a" { kind = "custom" } ` + "\n" + `model "b" { kind = "custom" }`,
		"models/nouri.hcl":    "model \"nouri\" {\n  kind = \"mesh\"\n  bounds {\n    min = [0, 0, 0]\n    max = [1, 1, 1]\n  }\n}\n",
		"models/badbox.hcl":   "model \"badbox\" {\n  kind = \"custom\"\n  bounds {\n    min = [1, 0, 0]\n    max = [0, 1, 1]\n  }\n}\n",
		"models/notes.txt":    `not a template`,
		"models/sub/deep.hcl": testutil.BoxTemplate,
	}

	// --- Act ---
	set, skipped := loadFixtures(t, extra)

	// --- Assert ---
	require.Len(t, skipped, 5)
	for _, err := range skipped {
		assert.ErrorIs(t, err, ErrTemplate)
		var te *Error
		require.True(t, errors.As(err, &te))
		assert.True(t, strings.HasSuffix(te.Path, ".hcl"))
	}
	assert.Len(t, set.Objects(), 3, "valid templates are unaffected by broken siblings")
}

func TestLoad_NoUsableTemplates(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.NewContext(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"sun.hcl": testutil.LightTemplate})

	_, _, err := Load(ctx, dir)
	require.Error(t, err)

	_, _, err = Load(ctx, filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestInstantiate_RewritesIdentifierStructurally(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	set, _ := loadFixtures(t, nil)
	box := set.Objects()[0]
	token := "0123456789abcdef0123456789abcdef"

	// --- Act ---
	obj, err := Instantiate(box, token)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "box_01234567", obj.Name)
	assert.Equal(t, token, obj.Token)
	assert.Equal(t, "box", obj.Template)
	assert.Equal(t, box.Bounds, obj.Bounds)

	file, diags := hclparse.NewParser().ParseHCL(obj.Source, "instance.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	var root fileRoot
	require.False(t, gohcl.DecodeBody(file.Body, nil, &root).HasErrors())
	require.Len(t, root.Models, 1)
	assert.Equal(t, "box_01234567", root.Models[0].Name)
	assert.Equal(t, token, root.Models[0].UID)
	assert.Equal(t, "model://box", root.Models[0].URI)

	assert.NotContains(t, string(obj.Source), "TEMPLATE_UID")
	assert.False(t, bytes.Equal(obj.Source, box.source), "template source must not be mutated")
	assert.Contains(t, string(box.source), "TEMPLATE_UID")
}

func TestInstantiate_AddsMissingUID(t *testing.T) {
	t.Parallel()

	set, _ := loadFixtures(t, map[string]string{
		"models/plain.hcl": `model "plain" {
  kind = "custom"
  bounds {
    min = [0, 0, 0]
    max = [1, 1, 1]
  }
}
`,
	})
	var plain *Template
	for _, tmpl := range set.Objects() {
		if tmpl.Name == "plain" {
			plain = tmpl
		}
	}
	require.NotNil(t, plain)

	obj, err := Instantiate(plain, "feedfacefeedfacefeedfacefeedface")

	require.NoError(t, err)
	file, diags := hclparse.NewParser().ParseHCL(obj.Source, "instance.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	var root fileRoot
	require.False(t, gohcl.DecodeBody(file.Body, nil, &root).HasErrors())
	require.Len(t, root.Models, 1)
	assert.Equal(t, "plain_feedface", root.Models[0].Name)
	assert.Equal(t, "feedfacefeedfacefeedfacefeedface", root.Models[0].UID)

	_, err = Instantiate(plain, "short")
	require.ErrorIs(t, err, ErrTemplate)
}

func TestTokens_NeverRepeatWithinRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tokens := NewTokens(rand.NewChaCha8([32]byte{1, 2, 3}))
	seen := make(map[string]bool)
	seenShort := make(map[string]bool)

	// --- Act & Assert ---
	// Several iterations' worth of spawn batches.
	for iteration := 0; iteration < 50; iteration++ {
		for i := 0; i < 16; i++ {
			tok, err := tokens.Next()
			require.NoError(t, err)
			require.Len(t, tok, 32)
			require.False(t, seen[tok], "token %s issued twice", tok)
			require.False(t, seenShort[tok[:shortLen]], "short token %s issued twice", tok[:shortLen])
			seen[tok] = true
			seenShort[tok[:shortLen]] = true
		}
	}
	assert.Equal(t, 800, tokens.Issued())
}

func TestTokens_SeededReaderIsReproducible(t *testing.T) {
	t.Parallel()

	a := NewTokens(rand.NewChaCha8([32]byte{9}))
	b := NewTokens(rand.NewChaCha8([32]byte{9}))

	for i := 0; i < 10; i++ {
		ta, err := a.Next()
		require.NoError(t, err)
		tb, err := b.Next()
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
	}

	_, err := NewTokens(nil).Next()
	require.NoError(t, err)
}

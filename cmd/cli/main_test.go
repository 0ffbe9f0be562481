package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidScene(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A scene file with a syntax error fails while the app is being built.
	invalidHCL := `
		iterations = 3
		scene {
			min_objects = 1
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "scene.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{filePath}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "failed to load configuration")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_Simulated(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.Templates())
	testutil.WriteFiles(t, dir, map[string]string{
		"scene.hcl": testutil.SceneHCL(testutil.SceneOptions{Iterations: 1, Rows: 2, Columns: 2, MinObjects: 1, MaxObjects: 3}),
	})
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-simulate", "-log-format", "text", "-output", filepath.Join(dir, "run"), filepath.Join(dir, "scene.hcl")})

	// --- Assert ---
	require.NoError(t, err, out.String())
	require.FileExists(t, filepath.Join(dir, "run", "000000.json"))
	require.FileExists(t, filepath.Join(dir, "run", "000000.png"))
}

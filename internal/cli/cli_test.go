package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/scenegrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	seven := uint64(7)

	testCases := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantCode int
	}{
		{
			name: "positional path with defaults",
			args: []string{"scene.hcl"},
			want: &app.Config{ScenePath: "scene.hcl", LogFormat: "json", LogLevel: "info", Visualize: -1},
		},
		{
			name: "every override",
			args: []string{
				"-c", "s.hcl", "-log-format", "TEXT", "-log-level", "debug",
				"-iterations", "3", "-seed", "7", "-output", "out", "-simulate", "-healthcheck-port", "8080",
			},
			want: &app.Config{
				ScenePath: "s.hcl", LogFormat: "text", LogLevel: "debug", HealthcheckPort: 8080,
				Iterations: 3, Seed: &seven, OutputDir: "out", Simulate: true, Visualize: -1,
			},
		},
		{
			name: "visualize",
			args: []string{"-config", "s.hcl", "-visualize", "2"},
			want: &app.Config{ScenePath: "s.hcl", LogFormat: "json", LogLevel: "info", Visualize: 2},
		},
		{name: "no path prints usage", args: nil, wantExit: true},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "bad format", args: []string{"-log-format", "xml", "s.hcl"}, wantCode: 2},
		{name: "bad level", args: []string{"-log-level", "loud", "s.hcl"}, wantCode: 2},
		{name: "bad seed", args: []string{"-seed", "-1", "s.hcl"}, wantCode: 2},
		{name: "negative iterations", args: []string{"-iterations", "-1", "s.hcl"}, wantCode: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, exit, err := Parse(tc.args, &bytes.Buffer{})

			if tc.wantCode != 0 {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if diff := cmp.Diff(tc.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

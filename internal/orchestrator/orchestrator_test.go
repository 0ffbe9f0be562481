package orchestrator

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/bus"
	"github.com/specialistvlad/scenegrid/internal/coordinator"
	"github.com/specialistvlad/scenegrid/internal/grid"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/simulator"
	"github.com/specialistvlad/scenegrid/internal/template"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type env struct {
	ctx   context.Context
	out   string
	sim   *simulator.Simulator
	index *annotation.Index
	orch  *Orchestrator
}

func testConfig() Config {
	return Config{
		Iterations: 3,
		MinObjects: 10,
		MaxObjects: 10,
		Rows:       4,
		Columns:    4,
		CellSize:   0.4,
		Jitter:     0.05,
		Camera: pose.Dome{
			RadiusMin: 2.5, RadiusMax: 3.5,
			ElevationMin: pose.Degrees(30), ElevationMax: pose.Degrees(75),
		},
		Light: pose.Dome{
			RadiusMin: 4, RadiusMax: 6,
			ElevationMin: pose.Degrees(40), ElevationMax: pose.Degrees(85),
		},
	}
}

func newEnv(t *testing.T, cfg Config, timeout time.Duration) *env {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, testutil.Templates())

	set, skipped, err := template.Load(ctx, filepath.Join(dir, "models"))
	require.NoError(t, err)
	require.Empty(t, skipped)

	b := bus.NewMemory()
	t.Cleanup(func() { _ = b.Close() })
	topics := msgs.NewTopics(msgs.DefaultTopicPrefix)
	sim, err := simulator.New(ctx, b, topics, simulator.Config{Width: 320, Height: 240, HFOV: pose.Degrees(60)})
	require.NoError(t, err)
	coord, err := coordinator.New(ctx, b, topics, timeout)
	require.NoError(t, err)

	index, err := annotation.OpenIndex(ctx, filepath.Join(dir, "annotations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	out := filepath.Join(dir, "dataset")
	writer, err := annotation.NewWriter(out, index)
	require.NoError(t, err)

	var seed [32]byte
	seed[0] = 42
	orch, err := New(cfg, Deps{
		Requester: coord,
		Templates: set,
		Tokens:    template.NewTokens(rand.NewChaCha8(seed)),
		Writer:    writer,
		Rand:      rand.New(rand.NewPCG(42, 42)),
	})
	require.NoError(t, err)

	return &env{ctx: ctx, out: out, sim: sim, index: index, orch: orch}
}

func TestNew_RejectsMissingDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), Deps{})
	require.Error(t, err)
}

func TestStage_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUILD_LAYOUT", StageBuildLayout.String())
	assert.Equal(t, "SPAWN_ACKED", (StageSpawnSent + 1).String())
	assert.Equal(t, "PROJECTION_ACKED", StageProjectionAcked.String())
	assert.Equal(t, "DONE", StageDone.String())
	assert.Equal(t, "Stage(99)", Stage(99).String())
}

func TestSetup_SetsPhysics(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Physics = true
	e := newEnv(t, cfg, 2*time.Second)

	require.NoError(t, e.orch.Setup(e.ctx))
	assert.True(t, e.sim.Physics())
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	e := newEnv(t, testConfig(), 2*time.Second)

	// --- Act ---
	report, err := e.orch.Run(e.ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 3, report.Completed)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Failures)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		assert.FileExists(t, annotation.ImagePath(e.out, i))

		rec, err := annotation.Read(e.out, i)
		require.NoError(t, err)
		assert.Equal(t, i, rec.Iteration)
		assert.Equal(t, 320, rec.Width)
		assert.Equal(t, 240, rec.Height)
		assert.LessOrEqual(t, len(rec.Annotations), 10)
		assert.Equal(t, 10, len(rec.Annotations)+len(rec.Omitted))

		for _, a := range rec.Annotations {
			assert.False(t, seen[a.Object], "object %s reused across iterations", a.Object)
			seen[a.Object] = true
			assert.True(t, 0 <= a.Box.XMin && a.Box.XMin <= a.Box.XMax && a.Box.XMax < rec.Width, "x range of %s: %+v", a.Object, a.Box)
			assert.True(t, 0 <= a.Box.YMin && a.Box.YMin <= a.Box.YMax && a.Box.YMax < rec.Height, "y range of %s: %+v", a.Object, a.Box)
		}

		n, err := e.index.Count(e.ctx, i)
		require.NoError(t, err)
		assert.Equal(t, len(rec.Annotations), n)
	}
	assert.NoFileExists(t, annotation.ImagePath(e.out, 3))

	staged, err := os.ReadDir(filepath.Join(e.out, ".staging"))
	require.NoError(t, err)
	assert.Empty(t, staged)
	assert.Empty(t, e.sim.Entities(), "every iteration cleans up after itself")

	assert.Equal(t, Progress{Iteration: 2, Completed: 3, Stage: StageDone}, e.orch.Progress())
	cam := e.orch.Camera()
	assert.True(t, testConfig().Camera.Contains(cam.Pose, 1e-9))
	assert.Equal(t, 320, cam.Width)
}

func TestRunIteration_PosesDoNotOverlap(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e := newEnv(t, cfg, 2*time.Second)

	it, err := e.orch.RunIteration(e.ctx, 0)

	require.NoError(t, err)
	require.Len(t, it.Objects, 10)
	require.NotNil(t, it.Light)
	assert.True(t, cfg.Light.Contains(it.Light.Pose, 1e-9))

	minGap := cfg.CellSize - 2*cfg.Jitter
	for i, a := range it.Objects {
		assert.Equal(t, -a.Bounds.Min.Z, a.Pose.Position.Z, "%s rests on the ground", a.Name)
		for _, b := range it.Objects[i+1:] {
			d := r3.Sub(a.Pose.Position, b.Pose.Position)
			d.Z = 0
			assert.GreaterOrEqual(t, r3.Norm(d), minGap-1e-9, "%s and %s overlap", a.Name, b.Name)
		}
	}
}

func TestRun_SingleCellGrid(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Rows, cfg.Columns = 1, 1
	cfg.MinObjects, cfg.MaxObjects = 1, 1
	cfg.Jitter = 0
	cfg.Iterations = 2
	e := newEnv(t, cfg, 2*time.Second)

	report, err := e.orch.Run(e.ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Completed)
	for i := 0; i < 2; i++ {
		rec, err := annotation.Read(e.out, i)
		require.NoError(t, err)
		assert.Equal(t, 1, len(rec.Annotations)+len(rec.Omitted))
	}
}

func TestRun_GridFullAbandonsEveryIteration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := testConfig()
	cfg.Rows, cfg.Columns = 2, 2
	cfg.MinObjects, cfg.MaxObjects = 5, 5
	cfg.Iterations = 2
	e := newEnv(t, cfg, 2*time.Second)

	// --- Act ---
	report, err := e.orch.Run(e.ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Zero(t, report.Completed)
	assert.Equal(t, 2, report.Failed)
	for i, f := range report.Failures {
		assert.Equal(t, i, f.Iteration)
		assert.Equal(t, StageBuildLayout, f.Stage)
		assert.ErrorIs(t, f.Err, grid.ErrGridFull)
		var full *grid.FullError
		require.ErrorAs(t, f.Err, &full)
		assert.Equal(t, 5, full.Requested)
		assert.Equal(t, 4, full.Free)
	}
	assert.Zero(t, e.sim.Received(msgs.World, msgs.WorldSpawn))
	assert.NoFileExists(t, annotation.RecordPath(e.out, 0))
}

func TestRun_WorldTimeoutAdvancesToNextIteration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The first two SPAWN requests go unanswered; the third iteration must
	// still complete.
	const (
		timeout = 100 * time.Millisecond
		slack   = time.Second
		dropped = 2
	)
	cfg := testConfig()
	cfg.Iterations = dropped + 1
	e := newEnv(t, cfg, timeout)
	e.sim.Drop(msgs.World, msgs.WorldSpawn, dropped)
	before := e.orch.Camera()

	// --- Act ---
	start := time.Now()
	report, err := e.orch.Run(e.ctx)
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, dropped, report.Failed)
	require.Len(t, report.Failures, dropped)

	for i, f := range report.Failures {
		assert.Equal(t, i, f.Iteration)
		assert.Equal(t, StageSpawnSent, f.Stage)
		assert.ErrorIs(t, f.Err, coordinator.ErrTimeout)
		var te *coordinator.TimeoutError
		require.ErrorAs(t, f.Err, &te)
		assert.Equal(t, msgs.World, te.Channel)

		assert.NoFileExists(t, annotation.RecordPath(e.out, i))
		assert.NoFileExists(t, annotation.ImagePath(e.out, i))
	}

	// Each failed iteration waits out exactly one bound.
	assert.GreaterOrEqual(t, elapsed, dropped*timeout)
	assert.Less(t, elapsed, dropped*(timeout+slack))

	assert.FileExists(t, annotation.RecordPath(e.out, dropped))
	assert.Equal(t, dropped+1, e.sim.Received(msgs.World, msgs.WorldSpawn))

	// Only the completed iteration moved the camera.
	assert.Equal(t, pose.Identity(), before.Pose)
	assert.Equal(t, 1, e.sim.Received(msgs.Camera, msgs.CameraMove))
	after := e.orch.Camera()
	assert.NotEqual(t, before.Pose, after.Pose)
	want := e.sim.CameraPose().Position
	assert.InDelta(t, want.X, after.Pose.Position.X, 1e-9)
	assert.InDelta(t, want.Y, after.Pose.Position.Y, 1e-9)
	assert.InDelta(t, want.Z, after.Pose.Position.Z, 1e-9)
}

func TestRunIteration_WorldTimeoutReturnsWithinBound(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	const timeout = 100 * time.Millisecond
	e := newEnv(t, testConfig(), timeout)
	e.sim.Drop(msgs.World, msgs.WorldSpawn, 1)

	// --- Act ---
	start := time.Now()
	it, err := e.orch.RunIteration(e.ctx, 0)
	elapsed := time.Since(start)

	// --- Assert ---
	require.ErrorIs(t, err, coordinator.ErrTimeout)
	assert.Nil(t, it)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
	assert.Equal(t, pose.Identity(), e.orch.Camera().Pose)
	assert.Equal(t, StageSpawnSent, e.orch.Progress().Stage)

	next, err := e.orch.RunIteration(e.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)
	assert.FileExists(t, annotation.RecordPath(e.out, 1))
}

func TestRunIteration_CameraKeptWhenMoveIsNotAcknowledged(t *testing.T) {
	t.Parallel()

	e := newEnv(t, testConfig(), 50*time.Millisecond)
	e.sim.Drop(msgs.Camera, msgs.CameraMove, 1)

	_, err := e.orch.RunIteration(e.ctx, 0)

	require.ErrorIs(t, err, coordinator.ErrTimeout)
	assert.Equal(t, pose.Identity(), e.orch.Camera().Pose)
	assert.Empty(t, e.sim.Entities())
}

func TestRunIteration_PersistenceFailureLeavesNoArtifacts(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	e := newEnv(t, testConfig(), 2*time.Second)
	// A directory where the frame should go makes promotion fail.
	require.NoError(t, os.MkdirAll(annotation.ImagePath(e.out, 0), 0o755))

	// --- Act ---
	_, err := e.orch.RunIteration(e.ctx, 0)

	// --- Assert ---
	require.ErrorIs(t, err, annotation.ErrPersistence)
	assert.NoFileExists(t, annotation.RecordPath(e.out, 0))
	assert.NoFileExists(t, e.orch.writer.StagingPath(0))
	n, err := e.index.Count(e.ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_CancelledDuringUnboundedWait(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	e := newEnv(t, testConfig(), 0)
	e.sim.Drop(msgs.Camera, msgs.CameraCapture, -1)
	ctx, cancel := context.WithCancel(e.ctx)
	time.AfterFunc(100*time.Millisecond, cancel)

	// --- Act ---
	report, err := e.orch.Run(ctx)

	// --- Assert ---
	require.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, report.Completed)
	assert.Equal(t, StageCaptureSent, e.orch.Progress().Stage)
}

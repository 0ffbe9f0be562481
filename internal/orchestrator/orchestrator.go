// Package orchestrator drives the iterations of a generation run. Each
// iteration lays out objects on the grid, spawns them, moves the camera,
// updates visuals, captures a frame, projects the object bounds and writes
// the annotations, waiting for every acknowledgment before moving on.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/specialistvlad/scenegrid/internal/annotation"
	"github.com/specialistvlad/scenegrid/internal/coordinator"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/grid"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"github.com/specialistvlad/scenegrid/internal/template"
	"gonum.org/v1/gonum/spatial/r3"
)

// cornersPerObject is the number of projected anchor points per object.
const cornersPerObject = 8

// cleanupTimeout bounds the REMOVE sent after an iteration when requests
// otherwise wait without a bound.
const cleanupTimeout = 10 * time.Second

// ErrRejected matches every *RejectedError.
var ErrRejected = errors.New("request rejected by service")

// RejectedError reports a world request answered with FAILURE.
type RejectedError struct {
	Op      msgs.WorldOp
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("world %s failed: %s", e.Op, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Requester sends requests and waits for their acknowledgments. It is
// satisfied by *coordinator.Coordinator.
type Requester interface {
	Send(ctx context.Context, req msgs.Request) (uint64, error)
	Await(ctx context.Context, ch msgs.Channel, timeout time.Duration) (coordinator.Response, error)
	Timeout() time.Duration
}

// Config holds the run parameters.
type Config struct {
	Iterations int
	MinObjects int
	MaxObjects int

	Rows     int
	Columns  int
	CellSize float64
	Jitter   float64

	Camera pose.Dome
	Light  pose.Dome

	Physics bool
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Requester Requester
	Templates *template.Set
	Tokens    *template.Tokens
	Writer    *annotation.Writer
	Rand      *rand.Rand
}

// Failure records an abandoned iteration.
type Failure struct {
	Iteration int
	Stage     Stage
	Err       error
}

// Report summarises a run.
type Report struct {
	Completed int
	Failed    int
	Failures  []Failure
}

// Progress is a point-in-time view of a run.
type Progress struct {
	Iteration int   `json:"iteration"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
	Stage     Stage `json:"stage"`
}

// Orchestrator runs iterations one at a time. Only Progress may be called
// concurrently with Run.
type Orchestrator struct {
	cfg       Config
	requester Requester
	templates *template.Set
	tokens    *template.Tokens
	writer    *annotation.Writer
	rng       *rand.Rand
	sampler   *pose.Sampler
	camera    *scene.Camera

	mu       sync.Mutex
	progress Progress
}

// New returns an orchestrator. It does not talk to any service until Setup
// or Run is called.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Requester == nil || deps.Templates == nil || deps.Tokens == nil || deps.Writer == nil || deps.Rand == nil {
		return nil, errors.New("orchestrator: missing dependency")
	}
	if len(deps.Templates.Objects()) == 0 {
		return nil, errors.New("orchestrator: no object templates")
	}
	if cfg.MinObjects < 1 || cfg.MaxObjects < cfg.MinObjects {
		return nil, fmt.Errorf("orchestrator: invalid object range [%d, %d]", cfg.MinObjects, cfg.MaxObjects)
	}
	return &Orchestrator{
		cfg:       cfg,
		requester: deps.Requester,
		templates: deps.Templates,
		tokens:    deps.Tokens,
		writer:    deps.Writer,
		rng:       deps.Rand,
		sampler:   pose.NewSampler(cfg.Camera, cfg.Light, deps.Rand),
		camera:    scene.NewCamera(),
	}, nil
}

// Camera returns the persisted camera state.
func (o *Orchestrator) Camera() scene.Camera {
	return *o.camera
}

// Progress returns a snapshot of the run.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Setup configures physics stepping on the world service.
func (o *Orchestrator) Setup(ctx context.Context) error {
	resp, err := o.roundTrip(ctx, msgs.Physics(o.cfg.Physics))
	if err != nil {
		return fmt.Errorf("setting physics: %w", err)
	}
	return checkWorld(msgs.WorldPhysics, resp)
}

// Run executes the configured number of iterations. A failed iteration is
// recorded and the loop moves on to the next index; only cancellation of
// ctx stops the run early.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	logger := ctxlog.FromContext(ctx)
	var report Report

	for i := 0; i < o.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		it, err := o.RunIteration(ctx, i)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			stage := o.Progress().Stage
			report.Failed++
			report.Failures = append(report.Failures, Failure{Iteration: i, Stage: stage, Err: err})
			o.update(func(p *Progress) { p.Failed++ })

			level := slog.LevelWarn
			if errors.Is(err, annotation.ErrPersistence) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "Iteration abandoned", "iteration", i, "stage", stage, "error", err)
			continue
		}

		report.Completed++
		o.update(func(p *Progress) { p.Completed++ })
		logger.Info("Iteration complete", "iteration", i, "objects", len(it.Objects))
	}

	logger.Info("Run finished", "completed", report.Completed, "failed", report.Failed)
	return report, nil
}

// RunIteration walks one iteration through every stage. On failure the
// staged frame is discarded and the camera keeps its previous state.
func (o *Orchestrator) RunIteration(ctx context.Context, index int) (_ *scene.Iteration, err error) {
	ctx, logger := ctxlog.With(ctx, "iteration", index)
	it := scene.NewIteration(index)
	o.update(func(p *Progress) { p.Iteration = index })

	spawnSent := false
	defer func() {
		if err != nil {
			o.writer.Discard(it)
		}
		if spawnSent {
			o.cleanup(ctx, it)
		}
	}()

	o.enter(ctx, StageBuildLayout)
	if err := o.buildLayout(it); err != nil {
		return nil, err
	}

	spawnSent = true
	resp, err := o.exchange(ctx, StageSpawnSent, grid.SpawnRequest(it.Objects, it.Light))
	if err != nil {
		return nil, err
	}
	if err := checkWorld(msgs.WorldSpawn, resp); err != nil {
		return nil, err
	}

	camPose := o.sampler.SampleCameraPose()
	if _, err := o.exchange(ctx, StageCameraMoveSent, msgs.MoveCamera(camPose)); err != nil {
		return nil, err
	}
	o.camera.Pose = camPose
	it.Camera = camPose

	if _, err := o.exchange(ctx, StageVisualUpdateSent, grid.VisualRequest(it.Objects, o.rng)); err != nil {
		return nil, err
	}

	it.StagedImage = o.writer.StagingPath(index)
	resp, err = o.exchange(ctx, StageCaptureSent, msgs.Capture(it.StagedImage))
	if err != nil {
		return nil, err
	}
	var frame msgs.CameraResponse
	if err := resp.Decode(&frame); err != nil {
		return nil, fmt.Errorf("decoding capture response: %w", err)
	}
	if frame.File != "" {
		it.StagedImage = frame.File
	}
	it.Width, it.Height = frame.Width, frame.Height
	o.camera.Width, o.camera.Height = frame.Width, frame.Height

	resp, err = o.exchange(ctx, StageProjectionSent, msgs.Projection(anchors(it.Objects)))
	if err != nil {
		return nil, err
	}
	projections, err := splitProjection(resp, len(it.Objects))
	if err != nil {
		return nil, err
	}

	o.enter(ctx, StageAnnotate)
	rec, err := o.writer.Write(ctx, it, projections)
	if err != nil {
		return nil, err
	}

	o.enter(ctx, StageDone)
	logger.Debug("Annotations written", "annotations", len(rec.Annotations), "omitted", len(rec.Omitted))
	return it, nil
}

// buildLayout picks the objects of the iteration, places them on a fresh
// grid and samples the light.
func (o *Orchestrator) buildLayout(it *scene.Iteration) error {
	k := o.cfg.MinObjects
	if span := o.cfg.MaxObjects - o.cfg.MinObjects; span > 0 {
		k += o.rng.IntN(span + 1)
	}

	layout := grid.NewLayout(o.cfg.Rows, o.cfg.Columns, o.cfg.CellSize, o.cfg.Jitter, o.rng)
	if k > layout.Free() {
		return &grid.FullError{Requested: k, Free: layout.Free()}
	}

	pool := o.templates.Objects()
	objects := make([]*scene.Object, 0, k)
	for range k {
		obj, err := o.instantiate(pool[o.rng.IntN(len(pool))])
		if err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	placements, err := layout.Place(objects)
	if err != nil {
		return err
	}
	layout.Resolve(placements)
	it.Objects = objects

	if lights := o.templates.Lights(); len(lights) > 0 {
		light, err := o.instantiate(lights[o.rng.IntN(len(lights))])
		if err != nil {
			return err
		}
		light.Pose = o.sampler.SampleLightPose()
		it.Light = light
	}
	return nil
}

func (o *Orchestrator) instantiate(t *template.Template) (*scene.Object, error) {
	token, err := o.tokens.Next()
	if err != nil {
		return nil, err
	}
	return template.Instantiate(t, token)
}

// exchange sends req, marking sent, and waits for the acknowledgment, marking
// the stage that follows sent.
func (o *Orchestrator) exchange(ctx context.Context, sent Stage, req msgs.Request) (coordinator.Response, error) {
	o.enter(ctx, sent)
	resp, err := o.roundTrip(ctx, req)
	if err != nil {
		return resp, err
	}
	o.enter(ctx, sent+1)
	return resp, nil
}

func (o *Orchestrator) roundTrip(ctx context.Context, req msgs.Request) (coordinator.Response, error) {
	if _, err := o.requester.Send(ctx, req); err != nil {
		return coordinator.Response{}, err
	}
	return o.requester.Await(ctx, req.Channel(), o.requester.Timeout())
}

// cleanup removes everything the iteration spawned. Failures are logged and
// otherwise ignored.
func (o *Orchestrator) cleanup(ctx context.Context, it *scene.Iteration) {
	logger := ctxlog.FromContext(ctx)
	names := it.Names()
	if len(names) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cleanupBound())
	defer cancel()
	resp, err := o.roundTrip(ctx, msgs.Remove(names))
	if err == nil {
		err = checkWorld(msgs.WorldRemove, resp)
	}
	if err != nil {
		logger.Debug("Cleanup incomplete", "entities", len(names), "error", err)
	}
}

func (o *Orchestrator) cleanupBound() time.Duration {
	if t := o.requester.Timeout(); t > 0 {
		return t
	}
	return cleanupTimeout
}

func (o *Orchestrator) enter(ctx context.Context, s Stage) {
	o.update(func(p *Progress) { p.Stage = s })
	ctxlog.FromContext(ctx).Info("Stage reached", "stage", s)
}

func (o *Orchestrator) update(fn func(p *Progress)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.progress)
}

func checkWorld(op msgs.WorldOp, resp coordinator.Response) error {
	var body msgs.WorldResponse
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("decoding world %s response: %w", op, err)
	}
	if body.Type != msgs.WorldSuccess {
		return &RejectedError{Op: op, Message: body.Message}
	}
	return nil
}

// anchors returns the corners of every object, eight per object, in object
// order.
func anchors(objects []*scene.Object) []r3.Vec {
	points := make([]r3.Vec, 0, cornersPerObject*len(objects))
	for _, obj := range objects {
		points = append(points, obj.Corners()...)
	}
	return points
}

func splitProjection(resp coordinator.Response, objects int) ([][]msgs.Point2, error) {
	var body msgs.CameraResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding projection response: %w", err)
	}
	if len(body.Points) != cornersPerObject*objects {
		return nil, fmt.Errorf("projection returned %d points for %d objects", len(body.Points), objects)
	}

	out := make([][]msgs.Point2, objects)
	for i := range out {
		out[i] = body.Points[i*cornersPerObject : (i+1)*cornersPerObject]
	}
	return out, nil
}

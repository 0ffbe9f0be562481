package annotation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/fsutil"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/scene"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrPersistence matches every *PersistenceError.
var ErrPersistence = errors.New("persistence failed")

// PersistenceError reports an iteration whose artifacts could not be written.
// Nothing of that iteration is left on disk.
type PersistenceError struct {
	Iteration int
	Op        string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("iteration %d: %s: %v", e.Iteration, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Annotation is one object's box in one frame.
type Annotation struct {
	Object   string `json:"object"`
	Template string `json:"template"`
	Kind     string `json:"kind"`
	Box      BBox   `json:"bbox"`
}

// Record is the annotation artifact of one iteration.
type Record struct {
	Iteration   int          `json:"iteration"`
	Image       string       `json:"image"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Camera      msgs.Pose    `json:"camera"`
	Annotations []Annotation `json:"annotations"`
	// Omitted lists objects whose projection fell entirely outside the frame.
	Omitted []string `json:"omitted,omitempty"`
}

// Writer persists iteration artifacts into a directory.
type Writer struct {
	dir   string
	index *Index
}

// NewWriter creates dir if needed. index may be nil.
func NewWriter(dir string, index *Index) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{dir: dir, index: index}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// StagingPath returns where the camera should save the frame of iteration
// before it is promoted.
func (w *Writer) StagingPath(iteration int) string {
	return filepath.Join(w.dir, ".staging", scene.ArtifactName(iteration)+".png")
}

// ImagePath returns the final image path of iteration.
func ImagePath(dir string, iteration int) string {
	return filepath.Join(dir, scene.ArtifactName(iteration)+".png")
}

// RecordPath returns the annotation path of iteration.
func RecordPath(dir string, iteration int) string {
	return filepath.Join(dir, scene.ArtifactName(iteration)+".json")
}

// Build computes the record of it from one projection per object, in the
// order of it.Objects.
func Build(ctx context.Context, it *scene.Iteration, projections [][]msgs.Point2) (*Record, error) {
	if len(projections) != len(it.Objects) {
		return nil, fmt.Errorf("%d projections for %d objects", len(projections), len(it.Objects))
	}
	logger := ctxlog.FromContext(ctx)

	rec := &Record{
		Iteration:   it.Index,
		Image:       scene.ArtifactName(it.Index) + ".png",
		Width:       it.Width,
		Height:      it.Height,
		Camera:      msgs.FromPose(it.Camera),
		Annotations: make([]Annotation, 0, len(it.Objects)),
	}
	for i, obj := range it.Objects {
		box, ok := BoundingBox(projections[i], it.Width, it.Height)
		if !ok {
			logger.Debug("Object outside frame, omitted", "object", obj.Name)
			rec.Omitted = append(rec.Omitted, obj.Name)
			continue
		}
		rec.Annotations = append(rec.Annotations, Annotation{
			Object:   obj.Name,
			Template: obj.Template,
			Kind:     obj.Kind.String(),
			Box:      box,
		})
	}
	return rec, nil
}

// Write builds the record of it and persists the frame, the record and the
// index rows. On failure everything this call created is removed and the
// error is a *PersistenceError.
func (w *Writer) Write(ctx context.Context, it *scene.Iteration, projections [][]msgs.Point2) (*Record, error) {
	fail := func(op string, err error) (*Record, error) {
		return nil, &PersistenceError{Iteration: it.Index, Op: op, Err: err}
	}

	rec, err := Build(ctx, it, projections)
	if err != nil {
		return fail("annotate", err)
	}
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fail("encode", err)
	}

	imagePath := ImagePath(w.dir, it.Index)
	recordPath := RecordPath(w.dir, it.Index)

	if err := os.Rename(it.StagedImage, imagePath); err != nil {
		return fail("promote image", err)
	}
	if err := fsutil.WriteFileAtomic(recordPath, payload, 0o644); err != nil {
		os.Remove(imagePath)
		return fail("write record", err)
	}
	if w.index != nil {
		if err := w.index.Insert(ctx, rec); err != nil {
			os.Remove(recordPath)
			os.Remove(imagePath)
			return fail("index", err)
		}
	}
	return rec, nil
}

// Read loads the record of iteration from dir.
func Read(dir string, iteration int) (*Record, error) {
	payload, err := os.ReadFile(RecordPath(dir, iteration))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RecordPath(dir, iteration), err)
	}
	return &rec, nil
}

// Discard removes the staged frame of an abandoned iteration, if any.
func (w *Writer) Discard(it *scene.Iteration) {
	if it != nil && it.StagedImage != "" {
		os.Remove(it.StagedImage)
	}
}

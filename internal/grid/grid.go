// Package grid assigns the objects of one scene to distinct cells of a fixed
// rows×columns layout centered on the world origin.
package grid

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrGridFull matches every *FullError.
var ErrGridFull = errors.New("grid full")

// FullError reports a placement that asked for more cells than were free.
type FullError struct {
	Requested int
	Free      int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("grid full: %d objects requested, %d cells free", e.Requested, e.Free)
}

func (e *FullError) Unwrap() error { return ErrGridFull }

// Cell is one slot of the layout.
type Cell struct {
	Row      int
	Col      int
	Occupied bool
	Object   *scene.Object
}

// Placement pairs an object with the cell it was assigned.
type Placement struct {
	Object *scene.Object
	Row    int
	Col    int
}

// Layout is the grid of one iteration. It is not safe for concurrent use.
type Layout struct {
	rows     int
	cols     int
	cellSize float64
	jitter   float64
	rng      *rand.Rand

	cells []Cell
	// free holds the indices of unoccupied cells, in no particular order.
	free []int
}

// NewLayout returns an empty rows×cols layout. jitter bounds the random
// offset applied to each axis of a resolved position.
func NewLayout(rows, cols int, cellSize, jitter float64, rng *rand.Rand) *Layout {
	l := &Layout{
		rows:     rows,
		cols:     cols,
		cellSize: cellSize,
		jitter:   jitter,
		rng:      rng,
		cells:    make([]Cell, rows*cols),
		free:     make([]int, rows*cols),
	}
	for i := range l.cells {
		l.cells[i] = Cell{Row: i / cols, Col: i % cols}
		l.free[i] = i
	}
	return l
}

// Capacity returns rows×cols.
func (l *Layout) Capacity() int { return len(l.cells) }

// Free returns the number of unoccupied cells.
func (l *Layout) Free() int { return len(l.free) }

// Cells returns a copy of every cell in row-major order.
func (l *Layout) Cells() []Cell {
	return append([]Cell(nil), l.cells...)
}

// Place assigns each object a cell drawn uniformly from the free cells. If
// there are fewer free cells than objects nothing is placed and the error
// matches ErrGridFull.
func (l *Layout) Place(objects []*scene.Object) ([]Placement, error) {
	if len(objects) > len(l.free) {
		return nil, &FullError{Requested: len(objects), Free: len(l.free)}
	}

	placements := make([]Placement, 0, len(objects))
	for _, obj := range objects {
		i := l.rng.IntN(len(l.free))
		idx := l.free[i]
		last := len(l.free) - 1
		l.free[i] = l.free[last]
		l.free = l.free[:last]

		c := &l.cells[idx]
		c.Occupied = true
		c.Object = obj
		placements = append(placements, Placement{Object: obj, Row: c.Row, Col: c.Col})
	}
	return placements, nil
}

// CellCenter returns the world position of the center of a cell on the
// ground plane.
func (l *Layout) CellCenter(row, col int) r3.Vec {
	return r3.Vec{
		X: (float64(col) - float64(l.cols-1)/2) * l.cellSize,
		Y: (float64(row) - float64(l.rows-1)/2) * l.cellSize,
	}
}

// Resolve sets the pose of every placed object: its cell center plus jitter,
// lifted so its bounds rest on the ground, with a random yaw.
func (l *Layout) Resolve(placements []Placement) {
	for _, p := range placements {
		position := l.CellCenter(p.Row, p.Col)
		if l.jitter > 0 {
			offset := distuv.Uniform{Min: -l.jitter, Max: l.jitter, Src: l.rng}
			position.X += offset.Rand()
			position.Y += offset.Rand()
		}
		position.Z = -p.Object.Bounds.Min.Z
		yaw := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: l.rng}.Rand()
		p.Object.Pose = pose.FromYaw(position, yaw)
	}
}

package msgs

import (
	"math"

	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Request is implemented by every outbound message.
type Request interface {
	Channel() Channel
	// Accepts reports whether a response carrying discriminant answers
	// this request.
	Accepts(discriminant string) bool
	SetID(id uint64)
}

// Header is the part every message shares. The coordinator reads it before
// handing the full payload to the waiting caller.
type Header struct {
	ID   uint64 `json:"id"`
	Type string `json:"type"`
}

// Vec3 is a point on the wire.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation on the wire.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is a pose on the wire.
type Pose struct {
	Position    Vec3       `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// FromVec converts a gonum vector to its wire form.
func FromVec(v r3.Vec) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Vec returns the gonum vector.
func (v Vec3) Vec() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// FromPose converts a pose to its wire form.
func FromPose(p pose.Pose) Pose {
	q := p.Orientation
	return Pose{
		Position:    FromVec(p.Position),
		Orientation: Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag},
	}
}

// Pose returns the pose the wire form describes.
func (p Pose) Pose() pose.Pose {
	o := p.Orientation
	return pose.Pose{
		Position:    p.Position.Vec(),
		Orientation: quat.Number{Real: o.W, Imag: o.X, Jmag: o.Y, Kmag: o.Z},
	}
}

// Point2 is an image-space point. Points the camera cannot see (behind the
// image plane) travel as null and decode to NaN.
type Point2 struct {
	U float64
	V float64
}

// Valid reports whether both coordinates are finite.
func (p Point2) Valid() bool {
	return !math.IsNaN(p.U) && !math.IsNaN(p.V) && !math.IsInf(p.U, 0) && !math.IsInf(p.V, 0)
}

type point2Wire struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// MarshalJSON implements json.Marshaler.
func (p Point2) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(point2Wire(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Point2) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Point2{U: math.NaN(), V: math.NaN()}
		return nil
	}
	var w point2Wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Point2(w)
	return nil
}

// Entity is an object as the world service sees it.
type Entity struct {
	Name   string     `json:"name"`
	Kind   scene.Kind `json:"kind"`
	URI    string     `json:"uri,omitempty"`
	Source string     `json:"source,omitempty"`
	Pose   Pose       `json:"pose"`
}

// EntityOf builds the wire entity for a scene object.
func EntityOf(o *scene.Object) Entity {
	return Entity{
		Name:   o.Name,
		Kind:   o.Kind,
		URI:    o.URI,
		Source: string(o.Source),
		Pose:   FromPose(o.Pose),
	}
}

// WorldRequest is sent on the world channel.
type WorldRequest struct {
	ID       uint64   `json:"id"`
	Type     WorldOp  `json:"type"`
	Entities []Entity `json:"entities,omitempty"`
	Names    []string `json:"names,omitempty"`
	Physics  *bool    `json:"physics,omitempty"`
}

func (*WorldRequest) Channel() Channel  { return World }
func (r *WorldRequest) SetID(id uint64) { r.ID = id }

// Accepts matches both SUCCESS and FAILURE; the caller inspects the status.
func (*WorldRequest) Accepts(d string) bool {
	_, err := enumParse[WorldStatus](d, worldStatusNames, "world status")
	return err == nil
}

// WorldResponse answers a WorldRequest.
type WorldResponse struct {
	ID      uint64      `json:"id"`
	Type    WorldStatus `json:"type"`
	Message string      `json:"message,omitempty"`
}

// Spawn builds a SPAWN request.
func Spawn(entities []Entity) *WorldRequest {
	return &WorldRequest{Type: WorldSpawn, Entities: entities}
}

// Move builds a MOVE request repositioning named entities.
func Move(entities []Entity) *WorldRequest {
	return &WorldRequest{Type: WorldMove, Entities: entities}
}

// Physics builds a PHYSICS request.
func Physics(enabled bool) *WorldRequest {
	return &WorldRequest{Type: WorldPhysics, Physics: &enabled}
}

// Remove builds a REMOVE request.
func Remove(names []string) *WorldRequest {
	return &WorldRequest{Type: WorldRemove, Names: names}
}

// VisualChange sets the material of one named entity.
type VisualChange struct {
	Name     string `json:"name"`
	Material string `json:"material"`
}

// VisualRequest is sent on the visual channel.
type VisualRequest struct {
	ID      uint64         `json:"id"`
	Type    VisualOp       `json:"type"`
	Changes []VisualChange `json:"changes"`
}

func (*VisualRequest) Channel() Channel      { return Visual }
func (r *VisualRequest) SetID(id uint64)     { r.ID = id }
func (*VisualRequest) Accepts(d string) bool { return d == VisualUpdated.String() }

// VisualResponse answers a VisualRequest.
type VisualResponse struct {
	ID   uint64       `json:"id"`
	Type VisualStatus `json:"type"`
}

// CameraRequest is sent on the camera channel.
type CameraRequest struct {
	ID     uint64   `json:"id"`
	Type   CameraOp `json:"type"`
	Pose   *Pose    `json:"pose,omitempty"`
	File   string   `json:"file,omitempty"`
	Points []Vec3   `json:"points,omitempty"`
}

func (*CameraRequest) Channel() Channel        { return Camera }
func (r *CameraRequest) SetID(id uint64)       { r.ID = id }
func (r *CameraRequest) Accepts(d string) bool { return d == r.Type.String() }

// CameraResponse answers a CameraRequest. Width and Height describe the
// captured frame; Points holds one entry per requested point, in order.
type CameraResponse struct {
	ID     uint64   `json:"id"`
	Type   CameraOp `json:"type"`
	File   string   `json:"file,omitempty"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Points []Point2 `json:"points,omitempty"`
}

// MoveCamera builds a camera MOVE request.
func MoveCamera(p pose.Pose) *CameraRequest {
	wire := FromPose(p)
	return &CameraRequest{Type: CameraMove, Pose: &wire}
}

// Capture builds a CAPTURE request saving the frame to file.
func Capture(file string) *CameraRequest {
	return &CameraRequest{Type: CameraCapture, File: file}
}

// Projection builds a PROJECTION request for points.
func Projection(points []r3.Vec) *CameraRequest {
	wire := make([]Vec3, len(points))
	for i, p := range points {
		wire[i] = FromVec(p)
	}
	return &CameraRequest{Type: CameraProjection, Points: wire}
}

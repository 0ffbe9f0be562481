// Package pose samples camera and light poses on a dome around the scene
// origin and provides the small amount of rigid-body math the rest of the
// generator needs.
//
// Orientation follows the simulator camera convention: the body +X axis is
// the viewing direction and +Z is up.
package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// Pose is a position and orientation in world coordinates.
type Pose struct {
	Position    r3.Vec
	Orientation quat.Number
}

// Identity returns the pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// Forward returns the unit viewing direction of the pose.
func (p Pose) Forward() r3.Vec {
	return r3.Rotation(p.Orientation).Rotate(axisX)
}

// Transform maps a point from the pose's body frame into world coordinates.
func (p Pose) Transform(v r3.Vec) r3.Vec {
	return r3.Add(r3.Rotation(p.Orientation).Rotate(v), p.Position)
}

// Inverse maps a world point into the pose's body frame.
func (p Pose) Inverse(v r3.Vec) r3.Vec {
	inv := quat.Conj(p.Orientation)
	return r3.Rotation(inv).Rotate(r3.Sub(v, p.Position))
}

// Spherical returns the position in spherical coordinates around the origin.
// Azimuth is normalised to [0, 2π).
func (p Pose) Spherical() (radius, elevation, azimuth float64) {
	radius = r3.Norm(p.Position)
	if radius == 0 {
		return 0, 0, 0
	}
	elevation = math.Asin(p.Position.Z / radius)
	azimuth = math.Atan2(p.Position.Y, p.Position.X)
	if azimuth < 0 {
		azimuth += 2 * math.Pi
	}
	return radius, elevation, azimuth
}

// FromYaw builds an upright pose at position rotated by yaw around +Z.
func FromYaw(position r3.Vec, yaw float64) Pose {
	return Pose{
		Position:    position,
		Orientation: quat.Number(r3.NewRotation(yaw, axisZ)),
	}
}

// LookAt returns the zero-roll orientation whose forward axis points from
// position towards target. Coincident points yield the identity rotation.
func LookAt(position, target r3.Vec) quat.Number {
	d := r3.Sub(target, position)
	if r3.Norm(d) == 0 {
		return quat.Number{Real: 1}
	}
	yaw := math.Atan2(d.Y, d.X)
	pitch := math.Atan2(-d.Z, math.Hypot(d.X, d.Y))

	return quat.Mul(
		quat.Number(r3.NewRotation(yaw, axisZ)),
		quat.Number(r3.NewRotation(pitch, axisY)),
	)
}

// RPY decomposes the orientation into roll, pitch and yaw (ZYX order).
func (p Pose) RPY() (roll, pitch, yaw float64) {
	q := p.Orientation
	roll = math.Atan2(2*(q.Real*q.Imag+q.Jmag*q.Kmag), 1-2*(q.Imag*q.Imag+q.Jmag*q.Jmag))
	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
	return roll, pitch, yaw
}

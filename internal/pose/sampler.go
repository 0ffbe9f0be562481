package pose

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dome bounds the region poses are drawn from. Angles are in radians;
// elevation is measured from the ground plane.
type Dome struct {
	RadiusMin    float64
	RadiusMax    float64
	ElevationMin float64
	ElevationMax float64
}

// Validate reports whether the bounds describe a non-empty dome.
func (d Dome) Validate() error {
	if d.RadiusMin <= 0 {
		return fmt.Errorf("radius_min must be positive, got %v", d.RadiusMin)
	}
	if d.RadiusMax < d.RadiusMin {
		return fmt.Errorf("radius_max (%v) must not be less than radius_min (%v)", d.RadiusMax, d.RadiusMin)
	}
	if d.ElevationMin < -math.Pi/2 || d.ElevationMax > math.Pi/2 {
		return errors.New("elevation bounds must lie within [-90, 90] degrees")
	}
	if d.ElevationMax < d.ElevationMin {
		return fmt.Errorf("elevation_max (%v) must not be less than elevation_min (%v)", d.ElevationMax, d.ElevationMin)
	}
	return nil
}

// Contains reports whether p lies inside the dome bounds, with tol slack.
func (d Dome) Contains(p Pose, tol float64) bool {
	r, e, _ := p.Spherical()
	return r >= d.RadiusMin-tol && r <= d.RadiusMax+tol &&
		e >= d.ElevationMin-tol && e <= d.ElevationMax+tol
}

// Sampler draws camera and light poses. It is not safe for concurrent use;
// the orchestrator is its only caller.
type Sampler struct {
	camera Dome
	light  Dome
	rng    *rand.Rand
}

// NewSampler returns a sampler drawing from rng. A generator seeded with a
// fixed value yields the same pose sequence on every run.
func NewSampler(camera, light Dome, rng *rand.Rand) *Sampler {
	return &Sampler{camera: camera, light: light, rng: rng}
}

// SampleCameraPose draws a camera pose facing the origin.
func (s *Sampler) SampleCameraPose() Pose {
	return s.sample(s.camera)
}

// SampleLightPose draws a light pose facing the origin.
func (s *Sampler) SampleLightPose() Pose {
	return s.sample(s.light)
}

func (s *Sampler) sample(d Dome) Pose {
	radius := distuv.Uniform{Min: d.RadiusMin, Max: d.RadiusMax, Src: s.rng}.Rand()
	elevation := distuv.Uniform{Min: d.ElevationMin, Max: d.ElevationMax, Src: s.rng}.Rand()
	azimuth := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: s.rng}.Rand()

	position := r3.Vec{
		X: radius * math.Cos(elevation) * math.Cos(azimuth),
		Y: radius * math.Cos(elevation) * math.Sin(azimuth),
		Z: radius * math.Sin(elevation),
	}
	return Pose{
		Position:    position,
		Orientation: LookAt(position, r3.Vec{}),
	}
}

// Degrees converts degrees to radians.
func Degrees(deg float64) float64 {
	return deg * math.Pi / 180
}

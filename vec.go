package boxdd

import (
	"math"

	"github.com/ByteArena/box2d"
	"github.com/jakecoffman/cp"
)

// Vec2 is a 2D vector in meters.
type Vec2 struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// V is shorthand for constructing a Vec2.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// VecLike enumerates the vector representations accepted by Vec. Arrays cover
// plain literals, cp.Vector covers callers already working against the engine
// math type, and box2d.B2Vec2 eases migration from the ByteArena engine.
type VecLike interface {
	Vec2 | [2]float64 | [2]float32 | cp.Vector | box2d.B2Vec2
}

// Vec converts any supported vector representation into a Vec2.
func Vec[T VecLike](v T) Vec2 {
	switch t := any(v).(type) {
	case Vec2:
		return t
	case [2]float64:
		return Vec2{X: t[0], Y: t[1]}
	case [2]float32:
		return Vec2{X: float64(t[0]), Y: float64(t[1])}
	case cp.Vector:
		return Vec2{X: t.X, Y: t.Y}
	case box2d.B2Vec2:
		return Vec2{X: t.X, Y: t.Y}
	}
	return Vec2{}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsValid reports whether both components are finite.
func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// CP returns the engine representation of v.
func (v Vec2) CP() cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

// B2 returns the ByteArena representation of v.
func (v Vec2) B2() box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v.X, v.Y)
}

func fromCP(v cp.Vector) Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}

// Transform is a rigid body pose: position plus rotation angle in radians.
type Transform struct {
	Position Vec2    `yaml:"position"`
	Angle    float64 `yaml:"angle"`
}

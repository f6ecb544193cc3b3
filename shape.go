package boxdd

import "math"

// Filter controls which shape pairs may collide. Two shapes collide when each
// one's Categories intersect the other's Mask, unless they share a non-zero
// Group (same group never collides).
type Filter struct {
	Group      uint `yaml:"group"`
	Categories uint `yaml:"categories"`
	Mask       uint `yaml:"mask"`
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{Group: 0, Categories: ^uint(0), Mask: ^uint(0)}
}

// ShapeDef configures the material and filtering of a shape, independent of
// its geometry.
type ShapeDef struct {
	Density    float64 `yaml:"density"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
	Sensor     bool    `yaml:"sensor"`
	Filter     Filter  `yaml:"filter"`
}

// DefaultShapeDef returns density 1, friction 0.6, no bounce, collide with
// everything.
func DefaultShapeDef() ShapeDef {
	return ShapeDef{
		Density:    1.0,
		Friction:   0.6,
		Elasticity: 0,
		Filter:     DefaultFilter(),
	}
}

// ShapeDefBuilder assembles a ShapeDef fluently.
type ShapeDefBuilder struct {
	def ShapeDef
}

// NewShapeDef starts a builder seeded with DefaultShapeDef.
func NewShapeDef() ShapeDefBuilder {
	return ShapeDefBuilder{def: DefaultShapeDef()}
}

func (b ShapeDefBuilder) Density(d float64) ShapeDefBuilder {
	b.def.Density = d
	return b
}

func (b ShapeDefBuilder) Friction(f float64) ShapeDefBuilder {
	b.def.Friction = f
	return b
}

func (b ShapeDefBuilder) Elasticity(e float64) ShapeDefBuilder {
	b.def.Elasticity = e
	return b
}

// Sensor shapes detect overlap but produce no collision response. They appear
// in sensor events instead of contact events.
func (b ShapeDefBuilder) Sensor(on bool) ShapeDefBuilder {
	b.def.Sensor = on
	return b
}

func (b ShapeDefBuilder) Filter(f Filter) ShapeDefBuilder {
	b.def.Filter = f
	return b
}

func (b ShapeDefBuilder) Build() ShapeDef {
	return b.def
}

// Circle geometry, in body-local coordinates.
type Circle struct {
	Center Vec2    `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

// Segment geometry: a thick line from A to B, in body-local coordinates.
type Segment struct {
	A      Vec2    `yaml:"a"`
	B      Vec2    `yaml:"b"`
	Radius float64 `yaml:"radius"`
}

// Polygon geometry: a convex hull of at least 3 counterclockwise vertices in
// body-local coordinates, optionally rounded by Radius.
type Polygon struct {
	Verts  []Vec2  `yaml:"verts"`
	Radius float64 `yaml:"radius"`
}

// PolygonOf builds a Polygon from any supported vector representation.
func PolygonOf[T VecLike](verts ...T) Polygon {
	out := make([]Vec2, len(verts))
	for i, v := range verts {
		out[i] = Vec(v)
	}
	return Polygon{Verts: out}
}

// Box returns an axis-aligned box polygon with the given half extents,
// centered on the body origin.
func Box(halfWidth, halfHeight float64) Polygon {
	return BoxAt(Vec2{}, halfWidth, halfHeight)
}

// BoxAt returns an axis-aligned box polygon centered at a body-local point.
func BoxAt(center Vec2, halfWidth, halfHeight float64) Polygon {
	return Polygon{Verts: []Vec2{
		{X: center.X - halfWidth, Y: center.Y - halfHeight},
		{X: center.X + halfWidth, Y: center.Y - halfHeight},
		{X: center.X + halfWidth, Y: center.Y + halfHeight},
		{X: center.X - halfWidth, Y: center.Y + halfHeight},
	}}
}

// ChainDef describes a chain of connected segments in body-local coordinates.
// Loop closes the chain from the last point back to the first.
type ChainDef struct {
	Points []Vec2  `yaml:"points"`
	Loop   bool    `yaml:"loop"`
	Radius float64 `yaml:"radius"`
}

// ChainOf builds a ChainDef from any supported vector representation.
func ChainOf[T VecLike](loop bool, points ...T) ChainDef {
	out := make([]Vec2, len(points))
	for i, p := range points {
		out[i] = Vec(p)
	}
	return ChainDef{Points: out, Loop: loop}
}

// Mass properties of a shape: total mass and moment of inertia about the body
// origin, derived from the shape definition's density.

func circleMass(density float64, c Circle) (mass, moment float64) {
	mass = density * math.Pi * c.Radius * c.Radius
	moment = mass * (c.Radius*c.Radius/2 + c.Center.Dot(c.Center))
	return mass, moment
}

func segmentMass(density float64, s Segment) (mass, moment float64) {
	length := s.B.Sub(s.A).Length()
	mass = density * (2*s.Radius*length + math.Pi*s.Radius*s.Radius)
	mid := s.A.Add(s.B).Scale(0.5)
	moment = mass * (length*length/12 + mid.Dot(mid))
	return mass, moment
}

func polygonArea(verts []Vec2) float64 {
	var twice float64
	for i := range verts {
		j := (i + 1) % len(verts)
		twice += verts[i].X*verts[j].Y - verts[j].X*verts[i].Y
	}
	return twice / 2
}

func polygonMass(density float64, p Polygon) (mass, moment float64) {
	area := math.Abs(polygonArea(p.Verts))
	mass = density * area
	var num, den float64
	for i := range p.Verts {
		a := p.Verts[i]
		b := p.Verts[(i+1)%len(p.Verts)]
		cross := a.X*b.Y - b.X*a.Y
		num += cross * (a.Dot(a) + a.Dot(b) + b.Dot(b))
		den += cross
	}
	if den == 0 {
		return mass, 0
	}
	moment = mass * num / (6 * den)
	return mass, moment
}

// Shape is the owned wrapper around a ShapeID. Create one through the Body
// creation helpers; Destroy is idempotent.
type Shape struct {
	id       ShapeID
	world    *World
	released bool
}

// ID returns the underlying handle without giving up ownership.
func (s *Shape) ID() ShapeID {
	return s.id
}

// Release escapes the wrapper: the caller takes over the lifetime and a later
// Destroy on the wrapper does nothing.
func (s *Shape) Release() ShapeID {
	s.released = true
	return s.id
}

// Destroy removes the shape from its world. Safe to call more than once and
// after the world itself has been destroyed.
func (s *Shape) Destroy() {
	if s == nil || s.released || s.world == nil {
		return
	}
	s.released = true
	_ = s.world.DestroyShape(s.id, true)
}

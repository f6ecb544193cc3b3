package boxdd

// Body is the owned wrapper around a BodyID. Create one with World.CreateBody
// and pair it with `defer body.Destroy()`; Release hands the lifetime back to
// the caller as a bare id.
//
// Getters on a stale wrapper return zero values; use the id-based World
// accessors when the error matters.
type Body struct {
	id       BodyID
	world    *World
	released bool
}

// ID returns the underlying handle without giving up ownership.
func (b *Body) ID() BodyID {
	return b.id
}

// World returns the world that issued this body.
func (b *Body) World() *World {
	return b.world
}

// Release escapes the wrapper: the caller takes over the lifetime and a later
// Destroy on the wrapper does nothing.
func (b *Body) Release() BodyID {
	b.released = true
	return b.id
}

// Destroy removes the body and everything attached to it. Safe to call more
// than once and after the world itself has been destroyed.
func (b *Body) Destroy() {
	if b == nil || b.released || b.world == nil {
		return
	}
	b.released = true
	_ = b.world.DestroyBody(b.id)
}

func (b *Body) Position() Vec2 {
	p, _ := b.world.BodyPosition(b.id)
	return p
}

func (b *Body) Angle() float64 {
	a, _ := b.world.BodyAngle(b.id)
	return a
}

func (b *Body) Transform() Transform {
	t, _ := b.world.BodyTransform(b.id)
	return t
}

func (b *Body) LinearVelocity() Vec2 {
	v, _ := b.world.BodyLinearVelocity(b.id)
	return v
}

func (b *Body) AngularVelocity() float64 {
	w, _ := b.world.BodyAngularVelocity(b.id)
	return w
}

func (b *Body) SetTransform(t Transform) error {
	return b.world.SetBodyTransform(b.id, t)
}

func (b *Body) SetLinearVelocity(v Vec2) error {
	return b.world.SetBodyLinearVelocity(b.id, v)
}

func (b *Body) SetAngularVelocity(omega float64) error {
	return b.world.SetBodyAngularVelocity(b.id, omega)
}

func (b *Body) ApplyForce(force, point Vec2) error {
	return b.world.ApplyForce(b.id, force, point)
}

func (b *Body) ApplyImpulse(impulse, point Vec2) error {
	return b.world.ApplyImpulse(b.id, impulse, point)
}

// CreateCircleShape attaches a circle shape and returns the owned wrapper.
func (b *Body) CreateCircleShape(def ShapeDef, c Circle) (*Shape, error) {
	id, err := b.world.CreateCircleShapeFor(b.id, def, c)
	if err != nil {
		return nil, err
	}
	return &Shape{id: id, world: b.world}, nil
}

// CreateSegmentShape attaches a segment shape and returns the owned wrapper.
func (b *Body) CreateSegmentShape(def ShapeDef, s Segment) (*Shape, error) {
	id, err := b.world.CreateSegmentShapeFor(b.id, def, s)
	if err != nil {
		return nil, err
	}
	return &Shape{id: id, world: b.world}, nil
}

// CreatePolygonShape attaches a polygon shape and returns the owned wrapper.
func (b *Body) CreatePolygonShape(def ShapeDef, p Polygon) (*Shape, error) {
	id, err := b.world.CreatePolygonShapeFor(b.id, def, p)
	if err != nil {
		return nil, err
	}
	return &Shape{id: id, world: b.world}, nil
}

// CreateChain attaches a chain of segments and returns the owned wrapper.
// Chains created through this path are skipped by Capture; use
// World.CreateChainFor when the chain must survive a snapshot round-trip.
func (b *Body) CreateChain(def ShapeDef, chain ChainDef) (*Chain, error) {
	id, err := b.world.createChain(b.id, def, chain, false)
	if err != nil {
		return nil, err
	}
	return &Chain{id: id, world: b.world}, nil
}

// Chain is the owned wrapper around a ChainID.
type Chain struct {
	id       ChainID
	world    *World
	released bool
}

// ID returns the underlying handle without giving up ownership.
func (c *Chain) ID() ChainID {
	return c.id
}

// Release escapes the wrapper; the caller takes over the lifetime.
func (c *Chain) Release() ChainID {
	c.released = true
	return c.id
}

// Destroy removes the chain and its segments. Idempotent.
func (c *Chain) Destroy() {
	if c == nil || c.released || c.world == nil {
		return
	}
	c.released = true
	_ = c.world.DestroyChain(c.id)
}

// Shapes returns the ids of the chain's segment shapes in order.
func (c *Chain) Shapes() []ShapeID {
	cs, err := c.world.resolveChain(c.id)
	if err != nil {
		return nil
	}
	return append([]ShapeID(nil), cs.shapes...)
}

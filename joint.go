package boxdd

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

// Joint kind tags, also used as the snapshot encoding.
const (
	jointPivot  = "pivot"
	jointPin    = "pin"
	jointSlide  = "slide"
	jointGroove = "groove"
	jointSpring = "damped_spring"
	jointMotor  = "motor"
)

// Joint defs take anchor points in WORLD space; creation converts them into
// the local frames of the two bodies at their current transforms.

// PivotJointDef pins two bodies together at a world point.
type PivotJointDef struct {
	BodyA, BodyB BodyID
	Anchor       Vec2
	MaxForce     float64 // 0 means unlimited
}

// PinJointDef keeps the distance between two world anchor points fixed.
type PinJointDef struct {
	BodyA, BodyB     BodyID
	AnchorA, AnchorB Vec2
	MaxForce         float64
}

// SlideJointDef is a pin joint with a distance range instead of a fixed
// length.
type SlideJointDef struct {
	BodyA, BodyB     BodyID
	AnchorA, AnchorB Vec2
	Min, Max         float64
	MaxForce         float64
}

// GrooveJointDef slides an anchor on body B along a groove fixed to body A.
// All three points are world-space.
type GrooveJointDef struct {
	BodyA, BodyB     BodyID
	GrooveA, GrooveB Vec2
	Anchor           Vec2
	MaxForce         float64
}

// DampedSpringDef connects two world anchor points with a spring.
type DampedSpringDef struct {
	BodyA, BodyB     BodyID
	AnchorA, AnchorB Vec2
	RestLength       float64
	Stiffness        float64
	Damping          float64
	MaxForce         float64
}

// MotorJointDef drives the relative angular velocity of two bodies.
type MotorJointDef struct {
	BodyA, BodyB BodyID
	Rate         float64 // rad/s
	MaxForce     float64
}

// PivotJointDefBuilder assembles a PivotJointDef fluently.
type PivotJointDefBuilder struct{ def PivotJointDef }

func NewPivotJointDef(a, b BodyID) PivotJointDefBuilder {
	return PivotJointDefBuilder{def: PivotJointDef{BodyA: a, BodyB: b}}
}

func (b PivotJointDefBuilder) Anchor(world Vec2) PivotJointDefBuilder {
	b.def.Anchor = world
	return b
}

func (b PivotJointDefBuilder) MaxForce(f float64) PivotJointDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b PivotJointDefBuilder) Build() PivotJointDef { return b.def }

// PinJointDefBuilder assembles a PinJointDef fluently.
type PinJointDefBuilder struct{ def PinJointDef }

func NewPinJointDef(a, b BodyID) PinJointDefBuilder {
	return PinJointDefBuilder{def: PinJointDef{BodyA: a, BodyB: b}}
}

func (b PinJointDefBuilder) Anchors(worldA, worldB Vec2) PinJointDefBuilder {
	b.def.AnchorA = worldA
	b.def.AnchorB = worldB
	return b
}

func (b PinJointDefBuilder) MaxForce(f float64) PinJointDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b PinJointDefBuilder) Build() PinJointDef { return b.def }

// SlideJointDefBuilder assembles a SlideJointDef fluently.
type SlideJointDefBuilder struct{ def SlideJointDef }

func NewSlideJointDef(a, b BodyID) SlideJointDefBuilder {
	return SlideJointDefBuilder{def: SlideJointDef{BodyA: a, BodyB: b}}
}

func (b SlideJointDefBuilder) Anchors(worldA, worldB Vec2) SlideJointDefBuilder {
	b.def.AnchorA = worldA
	b.def.AnchorB = worldB
	return b
}

func (b SlideJointDefBuilder) Limits(min, max float64) SlideJointDefBuilder {
	b.def.Min = min
	b.def.Max = max
	return b
}

func (b SlideJointDefBuilder) MaxForce(f float64) SlideJointDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b SlideJointDefBuilder) Build() SlideJointDef { return b.def }

// GrooveJointDefBuilder assembles a GrooveJointDef fluently.
type GrooveJointDefBuilder struct{ def GrooveJointDef }

func NewGrooveJointDef(a, b BodyID) GrooveJointDefBuilder {
	return GrooveJointDefBuilder{def: GrooveJointDef{BodyA: a, BodyB: b}}
}

func (b GrooveJointDefBuilder) Groove(worldA, worldB Vec2) GrooveJointDefBuilder {
	b.def.GrooveA = worldA
	b.def.GrooveB = worldB
	return b
}

func (b GrooveJointDefBuilder) Anchor(world Vec2) GrooveJointDefBuilder {
	b.def.Anchor = world
	return b
}

func (b GrooveJointDefBuilder) MaxForce(f float64) GrooveJointDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b GrooveJointDefBuilder) Build() GrooveJointDef { return b.def }

// DampedSpringDefBuilder assembles a DampedSpringDef fluently.
type DampedSpringDefBuilder struct{ def DampedSpringDef }

func NewDampedSpringDef(a, b BodyID) DampedSpringDefBuilder {
	return DampedSpringDefBuilder{def: DampedSpringDef{BodyA: a, BodyB: b}}
}

func (b DampedSpringDefBuilder) Anchors(worldA, worldB Vec2) DampedSpringDefBuilder {
	b.def.AnchorA = worldA
	b.def.AnchorB = worldB
	return b
}

func (b DampedSpringDefBuilder) Spring(restLength, stiffness, damping float64) DampedSpringDefBuilder {
	b.def.RestLength = restLength
	b.def.Stiffness = stiffness
	b.def.Damping = damping
	return b
}

func (b DampedSpringDefBuilder) MaxForce(f float64) DampedSpringDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b DampedSpringDefBuilder) Build() DampedSpringDef { return b.def }

// MotorJointDefBuilder assembles a MotorJointDef fluently.
type MotorJointDefBuilder struct{ def MotorJointDef }

func NewMotorJointDef(a, b BodyID) MotorJointDefBuilder {
	return MotorJointDefBuilder{def: MotorJointDef{BodyA: a, BodyB: b}}
}

func (b MotorJointDefBuilder) Rate(r float64) MotorJointDefBuilder {
	b.def.Rate = r
	return b
}

func (b MotorJointDefBuilder) MaxForce(f float64) MotorJointDefBuilder {
	b.def.MaxForce = f
	return b
}

func (b MotorJointDefBuilder) Build() MotorJointDef { return b.def }

func worldToLocal(t Transform, p Vec2) Vec2 {
	d := p.Sub(t.Position)
	c, s := math.Cos(t.Angle), math.Sin(t.Angle)
	return Vec2{X: c*d.X + s*d.Y, Y: -s*d.X + c*d.Y}
}

func localToWorld(t Transform, p Vec2) Vec2 {
	c, s := math.Cos(t.Angle), math.Sin(t.Angle)
	return Vec2{
		X: t.Position.X + c*p.X - s*p.Y,
		Y: t.Position.Y + s*p.X + c*p.Y,
	}
}

func (w *World) jointBodies(ida, idb BodyID) (*bodyState, *bodyState, error) {
	if err := w.mutable(); err != nil {
		return nil, nil, err
	}
	if ida == idb {
		return nil, nil, fmt.Errorf("%w: joint needs two distinct bodies", ErrInvalidDefinition)
	}
	a, err := w.resolveBody(ida)
	if err != nil {
		return nil, nil, err
	}
	b, err := w.resolveBody(idb)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func bodyTransform(bs *bodyState) Transform {
	return Transform{Position: fromCP(bs.body.Position()), Angle: bs.body.Angle()}
}

// createJointFromRecord builds the engine constraint for a record whose
// anchors are already in local frames. Shared by the public creators and
// snapshot rebuild.
func (w *World) createJointFromRecord(rec JointRecord, ida, idb BodyID) (JointID, error) {
	a, b, err := w.jointBodies(ida, idb)
	if err != nil {
		return JointID{}, err
	}

	var c *cp.Constraint
	switch rec.Kind {
	case jointPivot:
		world := localToWorld(bodyTransform(a), rec.AnchorA)
		c = cp.NewPivotJoint(a.body, b.body, world.CP())
	case jointPin:
		c = cp.NewPinJoint(a.body, b.body, rec.AnchorA.CP(), rec.AnchorB.CP())
	case jointSlide:
		if rec.Min < 0 || rec.Min > rec.Max {
			return JointID{}, fmt.Errorf("%w: slide limits [%g, %g]",
				ErrInvalidDefinition, rec.Min, rec.Max)
		}
		c = cp.NewSlideJoint(a.body, b.body, rec.AnchorA.CP(), rec.AnchorB.CP(), rec.Min, rec.Max)
	case jointGroove:
		c = cp.NewGrooveJoint(a.body, b.body, rec.GrooveA.CP(), rec.GrooveB.CP(), rec.AnchorB.CP())
	case jointSpring:
		if rec.Stiffness <= 0 || rec.Damping < 0 || rec.RestLength < 0 {
			return JointID{}, fmt.Errorf("%w: spring rest %g stiffness %g damping %g",
				ErrInvalidDefinition, rec.RestLength, rec.Stiffness, rec.Damping)
		}
		c = cp.NewDampedSpring(a.body, b.body, rec.AnchorA.CP(), rec.AnchorB.CP(),
			rec.RestLength, rec.Stiffness, rec.Damping)
	case jointMotor:
		c = cp.NewSimpleMotor(a.body, b.body, rec.Rate)
	default:
		return JointID{}, &SnapshotError{Kind: rec.Kind, Detail: "unknown joint kind"}
	}

	if rec.MaxForce > 0 {
		c.SetMaxForce(rec.MaxForce)
	}
	w.space.AddConstraint(c)

	js := &jointState{constraint: c, bodyA: ida, bodyB: idb, record: rec}
	index, gen := w.joints.alloc(js)
	id := JointID{Index: index, Generation: gen, World: w.id}
	a.joints = append(a.joints, id)
	b.joints = append(b.joints, id)
	w.jointOrder = append(w.jointOrder, id)
	w.log.Debug("joint created",
		zap.Uint32("index", id.Index),
		zap.String("kind", rec.Kind))
	return id, nil
}

// CreatePivotJointID creates a pivot joint and returns its bare id.
func (w *World) CreatePivotJointID(def PivotJointDef) (JointID, error) {
	a, b, err := w.jointBodies(def.BodyA, def.BodyB)
	if err != nil {
		return JointID{}, err
	}
	rec := JointRecord{
		Kind:     jointPivot,
		AnchorA:  worldToLocal(bodyTransform(a), def.Anchor),
		AnchorB:  worldToLocal(bodyTransform(b), def.Anchor),
		MaxForce: def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// CreatePinJointID creates a pin joint and returns its bare id.
func (w *World) CreatePinJointID(def PinJointDef) (JointID, error) {
	a, b, err := w.jointBodies(def.BodyA, def.BodyB)
	if err != nil {
		return JointID{}, err
	}
	rec := JointRecord{
		Kind:     jointPin,
		AnchorA:  worldToLocal(bodyTransform(a), def.AnchorA),
		AnchorB:  worldToLocal(bodyTransform(b), def.AnchorB),
		MaxForce: def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// CreateSlideJointID creates a slide joint and returns its bare id.
func (w *World) CreateSlideJointID(def SlideJointDef) (JointID, error) {
	a, b, err := w.jointBodies(def.BodyA, def.BodyB)
	if err != nil {
		return JointID{}, err
	}
	rec := JointRecord{
		Kind:     jointSlide,
		AnchorA:  worldToLocal(bodyTransform(a), def.AnchorA),
		AnchorB:  worldToLocal(bodyTransform(b), def.AnchorB),
		Min:      def.Min,
		Max:      def.Max,
		MaxForce: def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// CreateGrooveJointID creates a groove joint and returns its bare id.
func (w *World) CreateGrooveJointID(def GrooveJointDef) (JointID, error) {
	a, b, err := w.jointBodies(def.BodyA, def.BodyB)
	if err != nil {
		return JointID{}, err
	}
	ta, tb := bodyTransform(a), bodyTransform(b)
	rec := JointRecord{
		Kind:     jointGroove,
		GrooveA:  worldToLocal(ta, def.GrooveA),
		GrooveB:  worldToLocal(ta, def.GrooveB),
		AnchorB:  worldToLocal(tb, def.Anchor),
		MaxForce: def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// CreateDampedSpringID creates a damped spring and returns its bare id.
func (w *World) CreateDampedSpringID(def DampedSpringDef) (JointID, error) {
	a, b, err := w.jointBodies(def.BodyA, def.BodyB)
	if err != nil {
		return JointID{}, err
	}
	rec := JointRecord{
		Kind:       jointSpring,
		AnchorA:    worldToLocal(bodyTransform(a), def.AnchorA),
		AnchorB:    worldToLocal(bodyTransform(b), def.AnchorB),
		RestLength: def.RestLength,
		Stiffness:  def.Stiffness,
		Damping:    def.Damping,
		MaxForce:   def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// CreateMotorJointID creates a simple motor and returns its bare id.
func (w *World) CreateMotorJointID(def MotorJointDef) (JointID, error) {
	rec := JointRecord{
		Kind:     jointMotor,
		Rate:     def.Rate,
		MaxForce: def.MaxForce,
	}
	return w.createJointFromRecord(rec, def.BodyA, def.BodyB)
}

// Joint is the owned wrapper around a JointID.
type Joint struct {
	id       JointID
	world    *World
	released bool
}

// ID returns the underlying handle without giving up ownership.
func (j *Joint) ID() JointID {
	return j.id
}

// Release escapes the wrapper; the caller takes over the lifetime.
func (j *Joint) Release() JointID {
	j.released = true
	return j.id
}

// Destroy removes the joint. Idempotent.
func (j *Joint) Destroy() {
	if j == nil || j.released || j.world == nil {
		return
	}
	j.released = true
	_ = j.world.DestroyJoint(j.id)
}

func (w *World) wrapJoint(id JointID, err error) (*Joint, error) {
	if err != nil {
		return nil, err
	}
	return &Joint{id: id, world: w}, nil
}

// CreatePivotJoint creates a pivot joint and returns the owned wrapper.
func (w *World) CreatePivotJoint(def PivotJointDef) (*Joint, error) {
	return w.wrapJoint(w.CreatePivotJointID(def))
}

// CreatePinJoint creates a pin joint and returns the owned wrapper.
func (w *World) CreatePinJoint(def PinJointDef) (*Joint, error) {
	return w.wrapJoint(w.CreatePinJointID(def))
}

// CreateSlideJoint creates a slide joint and returns the owned wrapper.
func (w *World) CreateSlideJoint(def SlideJointDef) (*Joint, error) {
	return w.wrapJoint(w.CreateSlideJointID(def))
}

// CreateGrooveJoint creates a groove joint and returns the owned wrapper.
func (w *World) CreateGrooveJoint(def GrooveJointDef) (*Joint, error) {
	return w.wrapJoint(w.CreateGrooveJointID(def))
}

// CreateDampedSpring creates a damped spring and returns the owned wrapper.
func (w *World) CreateDampedSpring(def DampedSpringDef) (*Joint, error) {
	return w.wrapJoint(w.CreateDampedSpringID(def))
}

// CreateMotorJoint creates a simple motor and returns the owned wrapper.
func (w *World) CreateMotorJoint(def MotorJointDef) (*Joint, error) {
	return w.wrapJoint(w.CreateMotorJointID(def))
}

// JointBodies returns the two bodies a joint connects.
func (w *World) JointBodies(id JointID) (BodyID, BodyID, error) {
	js, err := w.resolveJoint(id)
	if err != nil {
		return BodyID{}, BodyID{}, err
	}
	return js.bodyA, js.bodyB, nil
}

// JointKind returns the joint's kind tag, e.g. "pivot" or "slide".
func (w *World) JointKind(id JointID) (string, error) {
	js, err := w.resolveJoint(id)
	if err != nil {
		return "", err
	}
	return js.record.Kind, nil
}

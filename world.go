package boxdd

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

// Every shape gets the same collision type so one handler sees all pairs.
const shapeCollisionType cp.CollisionType = 1

var worldSerial atomic.Uint32

// World owns a physics space and every body, shape, joint and chain created
// in it. A World is not safe for concurrent use: confine each World to one
// goroutine. Independent Worlds may run on separate goroutines freely.
type World struct {
	id    WorldID
	space *cp.Space
	def   WorldDef
	log   *zap.Logger

	bodies table[*bodyState]
	shapes table[*shapeState]
	joints table[*jointState]
	chains table[*chainState]

	// creation order, for deterministic snapshot capture
	bodyOrder  []BodyID
	jointOrder []JointID
	chainOrder []ChainID

	shapeIDs map[*cp.Shape]ShapeID

	events    eventBuffers
	locked    bool
	destroyed bool
}

type bodyState struct {
	id     BodyID
	body   *cp.Body
	def    BodyDef
	shapes []ShapeID
	joints []JointID

	// last pose and sleep state seen by collectBodyMoves
	lastPose  Transform
	wasAsleep bool
}

type shapeState struct {
	shape  *cp.Shape
	body   BodyID
	def    ShapeDef
	geom   GeomRecord
	chain  ChainID
	mass   float64
	moment float64
}

type jointState struct {
	constraint *cp.Constraint
	bodyA      BodyID
	bodyB      BodyID
	record     JointRecord // BodyA/BodyB ordinals filled at capture
}

type chainState struct {
	body     BodyID
	def      ShapeDef
	chain    ChainDef
	shapes   []ShapeID
	recorded bool // only chains built through CreateChainFor are captured
}

// WorldOption customizes a World at creation.
type WorldOption func(*World)

// WithLogger attaches a structured logger. The default is a nop logger.
func WithLogger(l *zap.Logger) WorldOption {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWorld creates a world from def. It returns an InitError when the
// definition cannot configure a space: non-finite gravity, zero iterations,
// or non-positive damping.
func NewWorld(def WorldDef, opts ...WorldOption) (*World, error) {
	if !def.Gravity.IsValid() {
		return nil, &InitError{Reason: "gravity must be finite"}
	}
	if def.Iterations == 0 {
		return nil, &InitError{Reason: "iterations must be at least 1"}
	}
	if math.IsNaN(def.Damping) || def.Damping <= 0 {
		return nil, &InitError{Reason: "damping must be positive"}
	}

	space := cp.NewSpace()
	space.Iterations = def.Iterations
	space.SetGravity(def.Gravity.CP())
	space.SetDamping(def.Damping)
	if def.SleepTimeThreshold > 0 {
		space.SleepTimeThreshold = def.SleepTimeThreshold
	}
	space.IdleSpeedThreshold = def.IdleSpeedThreshold

	w := &World{
		id:       WorldID(worldSerial.Add(1)),
		space:    space,
		def:      def,
		log:      zap.NewNop(),
		shapeIDs: make(map[*cp.Shape]ShapeID),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.installCollisionHandler()
	w.log.Debug("world created",
		zap.Uint32("world", uint32(w.id)),
		zap.Float64("gravity_y", def.Gravity.Y))
	return w, nil
}

// ID returns the world's serial.
func (w *World) ID() WorldID {
	return w.id
}

// Def returns the definition the world was created from, with any later
// SetGravity applied.
func (w *World) Def() WorldDef {
	return w.def
}

// Destroy tears the world down. Every id and wrapper issued by this world
// goes stale; further calls fail with ErrWorldDestroyed. Idempotent.
func (w *World) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	w.bodies.reset()
	w.shapes.reset()
	w.joints.reset()
	w.chains.reset()
	w.shapeIDs = nil
	w.bodyOrder = nil
	w.jointOrder = nil
	w.chainOrder = nil
	w.events.clear()
	w.space = nil
	w.log.Debug("world destroyed", zap.Uint32("world", uint32(w.id)))
}

// Destroyed reports whether Destroy has been called.
func (w *World) Destroyed() bool {
	return w.destroyed
}

// Step advances the simulation by dt seconds split across subSteps
// sub-steps. subSteps below 1 is clamped to 1; dt of zero or below is a
// no-op so time never runs backwards. Step is not re-entrant and panics
// when called inside an event view closure.
func (w *World) Step(dt float64, subSteps int) {
	if w.destroyed {
		return
	}
	if w.locked {
		panic("boxdd: Step called inside an event view")
	}
	if dt <= 0 {
		return
	}
	if subSteps < 1 {
		subSteps = 1
	}
	w.events.clear()
	h := dt / float64(subSteps)
	for i := 0; i < subSteps; i++ {
		w.space.Step(h)
	}
	w.collectBodyMoves()
}

// Gravity returns the world's gravity vector.
func (w *World) Gravity() Vec2 {
	return w.def.Gravity
}

// SetGravity changes gravity for subsequent steps.
func (w *World) SetGravity(g Vec2) error {
	if err := w.mutable(); err != nil {
		return err
	}
	if !g.IsValid() {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidDefinition)
	}
	w.def.Gravity = g
	w.space.SetGravity(g.CP())
	return nil
}

func (w *World) mutable() error {
	if w.destroyed {
		return ErrWorldDestroyed
	}
	if w.locked {
		return ErrWorldLocked
	}
	return nil
}

// resolveBody maps an id to its live state, classifying the failure.
func (w *World) resolveBody(id BodyID) (*bodyState, error) {
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}
	if id.World != w.id {
		return nil, ErrWorldMismatch
	}
	bs, ok := w.bodies.resolve(id.Index, id.Generation)
	if !ok {
		return nil, ErrStaleHandle
	}
	return bs, nil
}

func (w *World) resolveShape(id ShapeID) (*shapeState, error) {
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}
	if id.World != w.id {
		return nil, ErrWorldMismatch
	}
	ss, ok := w.shapes.resolve(id.Index, id.Generation)
	if !ok {
		return nil, ErrStaleHandle
	}
	return ss, nil
}

func (w *World) resolveJoint(id JointID) (*jointState, error) {
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}
	if id.World != w.id {
		return nil, ErrWorldMismatch
	}
	js, ok := w.joints.resolve(id.Index, id.Generation)
	if !ok {
		return nil, ErrStaleHandle
	}
	return js, nil
}

func (w *World) resolveChain(id ChainID) (*chainState, error) {
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}
	if id.World != w.id {
		return nil, ErrWorldMismatch
	}
	cs, ok := w.chains.resolve(id.Index, id.Generation)
	if !ok {
		return nil, ErrStaleHandle
	}
	return cs, nil
}

// CreateBodyID creates a body and returns its bare id. On a destroyed or
// locked world it returns the nil id.
func (w *World) CreateBodyID(def BodyDef) BodyID {
	if err := w.mutable(); err != nil {
		w.log.Debug("create body rejected", zap.Error(err))
		return BodyID{}
	}

	var body *cp.Body
	switch def.Type {
	case Static:
		body = cp.NewStaticBody()
	case Kinematic:
		body = cp.NewKinematicBody()
	default:
		// Placeholder mass and moment; shape density overwrites them.
		body = cp.NewBody(1, cp.MomentForBox(1, 1, 1))
	}
	body.SetPosition(def.Position.CP())
	body.SetAngle(def.Angle)
	if def.Type != Static {
		body.SetVelocityVector(def.LinearVelocity.CP())
		body.SetAngularVelocity(def.AngularVelocity)
	}
	w.space.AddBody(body)

	bs := &bodyState{
		body:     body,
		def:      def,
		lastPose: Transform{Position: def.Position, Angle: def.Angle},
	}
	index, gen := w.bodies.alloc(bs)
	id := BodyID{Index: index, Generation: gen, World: w.id}
	bs.id = id
	w.bodyOrder = append(w.bodyOrder, id)
	w.log.Debug("body created",
		zap.Uint32("index", id.Index),
		zap.Stringer("type", def.Type))
	return id
}

// CreateBody creates a body and returns the owned wrapper.
func (w *World) CreateBody(def BodyDef) *Body {
	id := w.CreateBodyID(def)
	if id.IsNil() {
		return nil
	}
	return &Body{id: id, world: w}
}

// DestroyBody destroys a body and cascades to its shapes, chains and joints.
// Destroying the same id twice returns ErrAlreadyDestroyed.
func (w *World) DestroyBody(id BodyID) error {
	if w.destroyed {
		return ErrWorldDestroyed
	}
	if id.World != w.id {
		return ErrWorldMismatch
	}
	if w.locked {
		return ErrWorldLocked
	}
	bs, ok := w.bodies.resolve(id.Index, id.Generation)
	if !ok {
		return ErrAlreadyDestroyed
	}

	for _, jid := range append([]JointID(nil), bs.joints...) {
		_ = w.destroyJoint(jid, true)
	}
	for _, sid := range append([]ShapeID(nil), bs.shapes...) {
		ss, err := w.resolveShape(sid)
		if err != nil {
			continue
		}
		if !ss.chain.IsNil() {
			_ = w.DestroyChain(ss.chain)
			continue
		}
		_ = w.DestroyShape(sid, false)
	}
	w.space.RemoveBody(bs.body)
	w.bodies.invalidate(id.Index, id.Generation)
	w.log.Debug("body destroyed", zap.Uint32("index", id.Index))
	return nil
}

func (w *World) addShape(body BodyID, bs *bodyState, def ShapeDef, shape *cp.Shape,
	geom GeomRecord, mass, moment float64) ShapeID {

	shape.SetFriction(def.Friction)
	shape.SetElasticity(def.Elasticity)
	shape.SetSensor(def.Sensor)
	shape.SetCollisionType(shapeCollisionType)
	shape.SetFilter(cp.ShapeFilter{
		Group:      def.Filter.Group,
		Categories: def.Filter.Categories,
		Mask:       def.Filter.Mask,
	})
	w.space.AddShape(shape)

	ss := &shapeState{shape: shape, body: body, def: def, geom: geom, mass: mass, moment: moment}
	index, gen := w.shapes.alloc(ss)
	id := ShapeID{Index: index, Generation: gen, World: w.id}
	w.shapeIDs[shape] = id
	bs.shapes = append(bs.shapes, id)
	if bs.def.Type == Dynamic && def.Density > 0 {
		w.refreshBodyMass(bs)
	}
	return id
}

// refreshBodyMass recomputes a dynamic body's mass and moment from the
// densities of its attached shapes.
func (w *World) refreshBodyMass(bs *bodyState) {
	var mass, moment float64
	for _, sid := range bs.shapes {
		ss, ok := w.shapes.resolve(sid.Index, sid.Generation)
		if !ok {
			continue
		}
		mass += ss.mass
		moment += ss.moment
	}
	if mass <= 0 {
		return
	}
	bs.body.SetMass(mass)
	if moment > 0 {
		bs.body.SetMoment(moment)
	}
}

// CreateCircleShapeFor attaches a circle shape to a body.
func (w *World) CreateCircleShapeFor(body BodyID, def ShapeDef, c Circle) (ShapeID, error) {
	if err := w.mutable(); err != nil {
		return ShapeID{}, err
	}
	bs, err := w.resolveBody(body)
	if err != nil {
		return ShapeID{}, err
	}
	if c.Radius <= 0 {
		return ShapeID{}, fmt.Errorf("%w: circle radius must be positive", ErrInvalidDefinition)
	}
	shape := cp.NewCircle(bs.body, c.Radius, c.Center.CP())
	mass, moment := circleMass(def.Density, c)
	return w.addShape(body, bs, def, shape, circleRecord(c), mass, moment), nil
}

// CreateSegmentShapeFor attaches a segment shape to a body.
func (w *World) CreateSegmentShapeFor(body BodyID, def ShapeDef, s Segment) (ShapeID, error) {
	if err := w.mutable(); err != nil {
		return ShapeID{}, err
	}
	bs, err := w.resolveBody(body)
	if err != nil {
		return ShapeID{}, err
	}
	shape := cp.NewSegment(bs.body, s.A.CP(), s.B.CP(), s.Radius)
	mass, moment := segmentMass(def.Density, s)
	return w.addShape(body, bs, def, shape, segmentRecord(s), mass, moment), nil
}

// CreatePolygonShapeFor attaches a convex polygon shape to a body. The
// polygon needs at least 3 vertices.
func (w *World) CreatePolygonShapeFor(body BodyID, def ShapeDef, p Polygon) (ShapeID, error) {
	if err := w.mutable(); err != nil {
		return ShapeID{}, err
	}
	bs, err := w.resolveBody(body)
	if err != nil {
		return ShapeID{}, err
	}
	if len(p.Verts) < 3 {
		return ShapeID{}, fmt.Errorf("%w: polygon needs at least 3 vertices, got %d",
			ErrInvalidDefinition, len(p.Verts))
	}
	verts := make([]cp.Vector, len(p.Verts))
	for i, v := range p.Verts {
		verts[i] = v.CP()
	}
	shape := cp.NewPolyShapeRaw(bs.body, len(verts), verts, p.Radius)
	mass, moment := polygonMass(def.Density, p)
	return w.addShape(body, bs, def, shape, polygonRecord(p), mass, moment), nil
}

// DestroyShape removes a shape. When updateBodyMass is set the owning dynamic
// body's mass and moment are recomputed from its remaining shapes.
func (w *World) DestroyShape(id ShapeID, updateBodyMass bool) error {
	if w.destroyed {
		return ErrWorldDestroyed
	}
	if id.World != w.id {
		return ErrWorldMismatch
	}
	if w.locked {
		return ErrWorldLocked
	}
	ss, ok := w.shapes.resolve(id.Index, id.Generation)
	if !ok {
		return ErrAlreadyDestroyed
	}
	w.space.RemoveShape(ss.shape)
	delete(w.shapeIDs, ss.shape)
	w.shapes.invalidate(id.Index, id.Generation)
	if bs, ok := w.bodies.resolve(ss.body.Index, ss.body.Generation); ok {
		bs.shapes = removeShapeID(bs.shapes, id)
		if updateBodyMass && bs.def.Type == Dynamic {
			w.refreshBodyMass(bs)
		}
	}
	return nil
}

// CreateChainFor attaches a chain of connected segment shapes to a body. The
// segments share one ChainID for bulk destroy, and chains created through
// this path are the only ones recorded by Capture.
func (w *World) CreateChainFor(body BodyID, def ShapeDef, chain ChainDef) (ChainID, error) {
	return w.createChain(body, def, chain, true)
}

func (w *World) createChain(body BodyID, def ShapeDef, chain ChainDef, recorded bool) (ChainID, error) {
	if err := w.mutable(); err != nil {
		return ChainID{}, err
	}
	bs, err := w.resolveBody(body)
	if err != nil {
		return ChainID{}, err
	}
	if len(chain.Points) < 2 {
		return ChainID{}, fmt.Errorf("%w: chain needs at least 2 points, got %d",
			ErrInvalidDefinition, len(chain.Points))
	}

	cs := &chainState{body: body, def: def, chain: chain, recorded: recorded}
	index, gen := w.chains.alloc(cs)
	cid := ChainID{Index: index, Generation: gen, World: w.id}

	segs := len(chain.Points) - 1
	if chain.Loop {
		segs = len(chain.Points)
	}
	for i := 0; i < segs; i++ {
		a := chain.Points[i]
		b := chain.Points[(i+1)%len(chain.Points)]
		seg := Segment{A: a, B: b, Radius: chain.Radius}
		shape := cp.NewSegment(bs.body, a.CP(), b.CP(), chain.Radius)
		mass, moment := segmentMass(def.Density, seg)
		sid := w.addShape(body, bs, def, shape, segmentRecord(seg), mass, moment)
		ss, _ := w.shapes.resolve(sid.Index, sid.Generation)
		ss.chain = cid
		cs.shapes = append(cs.shapes, sid)
	}
	if recorded {
		w.chainOrder = append(w.chainOrder, cid)
	}
	w.log.Debug("chain created",
		zap.Uint32("index", cid.Index),
		zap.Int("segments", segs))
	return cid, nil
}

// DestroyChain destroys a chain and all of its segment shapes.
func (w *World) DestroyChain(id ChainID) error {
	if w.destroyed {
		return ErrWorldDestroyed
	}
	if id.World != w.id {
		return ErrWorldMismatch
	}
	if w.locked {
		return ErrWorldLocked
	}
	cs, ok := w.chains.resolve(id.Index, id.Generation)
	if !ok {
		return ErrAlreadyDestroyed
	}
	for _, sid := range cs.shapes {
		ss, err := w.resolveShape(sid)
		if err != nil {
			continue
		}
		ss.chain = ChainID{} // break the back-link so the shape destroy won't recurse
		_ = w.DestroyShape(sid, false)
	}
	if bs, ok := w.bodies.resolve(cs.body.Index, cs.body.Generation); ok && bs.def.Type == Dynamic {
		w.refreshBodyMass(bs)
	}
	w.chains.invalidate(id.Index, id.Generation)
	return nil
}

// DestroyJoint removes a joint.
func (w *World) DestroyJoint(id JointID) error {
	return w.destroyJoint(id, false)
}

// destroyJoint removes a joint. Implicit removals (a body destroy cascade)
// are reported through JointEvents so code holding the id learns it went
// away without asking.
func (w *World) destroyJoint(id JointID, implicit bool) error {
	if w.destroyed {
		return ErrWorldDestroyed
	}
	if id.World != w.id {
		return ErrWorldMismatch
	}
	if w.locked {
		return ErrWorldLocked
	}
	js, ok := w.joints.resolve(id.Index, id.Generation)
	if !ok {
		return ErrAlreadyDestroyed
	}
	w.space.RemoveConstraint(js.constraint)
	w.joints.invalidate(id.Index, id.Generation)
	for _, bid := range []BodyID{js.bodyA, js.bodyB} {
		if bs, ok := w.bodies.resolve(bid.Index, bid.Generation); ok {
			bs.joints = removeJointID(bs.joints, id)
		}
	}
	if implicit {
		w.events.jointRemoved = append(w.events.jointRemoved, JointEvent{Joint: id})
	}
	return nil
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	return w.bodies.count()
}

// ShapeCount returns the number of live shapes, chain segments included.
func (w *World) ShapeCount() int {
	return w.shapes.count()
}

// JointCount returns the number of live joints.
func (w *World) JointCount() int {
	return w.joints.count()
}

// BodyTransform returns the body's current pose.
func (w *World) BodyTransform(id BodyID) (Transform, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return Transform{}, err
	}
	return Transform{Position: fromCP(bs.body.Position()), Angle: bs.body.Angle()}, nil
}

// BodyPosition returns the body's current position.
func (w *World) BodyPosition(id BodyID) (Vec2, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return Vec2{}, err
	}
	return fromCP(bs.body.Position()), nil
}

// BodyAngle returns the body's current rotation in radians.
func (w *World) BodyAngle(id BodyID) (float64, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return 0, err
	}
	return bs.body.Angle(), nil
}

// BodyLinearVelocity returns the body's linear velocity.
func (w *World) BodyLinearVelocity(id BodyID) (Vec2, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return Vec2{}, err
	}
	return fromCP(bs.body.Velocity()), nil
}

// BodyAngularVelocity returns the body's angular velocity in rad/s.
func (w *World) BodyAngularVelocity(id BodyID) (float64, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return 0, err
	}
	return bs.body.AngularVelocity(), nil
}

// BodyTypeOf returns the body's simulation type.
func (w *World) BodyTypeOf(id BodyID) (BodyType, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return Static, err
	}
	return bs.def.Type, nil
}

// SetBodyTransform teleports the body to a new pose.
func (w *World) SetBodyTransform(id BodyID, t Transform) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.SetPosition(t.Position.CP())
	bs.body.SetAngle(t.Angle)
	return nil
}

// SetBodyLinearVelocity sets the body's linear velocity.
func (w *World) SetBodyLinearVelocity(id BodyID, v Vec2) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.SetVelocityVector(v.CP())
	return nil
}

// SetBodyAngularVelocity sets the body's angular velocity in rad/s.
func (w *World) SetBodyAngularVelocity(id BodyID, omega float64) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.SetAngularVelocity(omega)
	return nil
}

// ApplyForce applies a force at a world point.
func (w *World) ApplyForce(id BodyID, force, point Vec2) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.ApplyForceAtWorldPoint(force.CP(), point.CP())
	return nil
}

// ApplyImpulse applies a linear impulse at a world point.
func (w *World) ApplyImpulse(id BodyID, impulse, point Vec2) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.ApplyImpulseAtWorldPoint(impulse.CP(), point.CP())
	return nil
}

// WakeBody rouses a sleeping body.
func (w *World) WakeBody(id BodyID) error {
	if w.locked {
		return ErrWorldLocked
	}
	bs, err := w.resolveBody(id)
	if err != nil {
		return err
	}
	bs.body.Activate()
	return nil
}

// IsBodyAwake reports whether the body is currently simulating.
func (w *World) IsBodyAwake(id BodyID) (bool, error) {
	bs, err := w.resolveBody(id)
	if err != nil {
		return false, err
	}
	return !bs.body.IsSleeping(), nil
}

// ShapeBody returns the body a shape is attached to.
func (w *World) ShapeBody(id ShapeID) (BodyID, error) {
	ss, err := w.resolveShape(id)
	if err != nil {
		return BodyID{}, err
	}
	return ss.body, nil
}

// ShapeDefOf returns the definition the shape was created with.
func (w *World) ShapeDefOf(id ShapeID) (ShapeDef, error) {
	ss, err := w.resolveShape(id)
	if err != nil {
		return ShapeDef{}, err
	}
	return ss.def, nil
}

func removeShapeID(ids []ShapeID, id ShapeID) []ShapeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func removeJointID(ids []JointID, id JointID) []JointID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

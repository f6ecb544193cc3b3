package boxdd

import (
	"math"

	"github.com/jakecoffman/cp"
)

// ContactBeginEvent reports two non-sensor shapes starting to touch.
type ContactBeginEvent struct {
	ShapeA ShapeID
	ShapeB ShapeID
}

// ContactEndEvent reports two non-sensor shapes ceasing to touch.
type ContactEndEvent struct {
	ShapeA ShapeID
	ShapeB ShapeID
}

// ContactHitEvent reports a new contact whose approach speed reached
// WorldDef.HitEventThreshold.
type ContactHitEvent struct {
	ShapeA        ShapeID
	ShapeB        ShapeID
	Point         Vec2
	Normal        Vec2
	ApproachSpeed float64
}

// SensorBeginEvent reports a shape entering a sensor.
type SensorBeginEvent struct {
	Sensor  ShapeID
	Visitor ShapeID
}

// SensorEndEvent reports a shape leaving a sensor.
type SensorEndEvent struct {
	Sensor  ShapeID
	Visitor ShapeID
}

// BodyMoveEvent reports a non-static body whose pose changed during a Step,
// plus the final event a body emits as it falls asleep.
type BodyMoveEvent struct {
	Body       BodyID
	Transform  Transform
	FellAsleep bool
}

// JointEvent reports a joint removed implicitly by a body destroy cascade.
type JointEvent struct {
	Joint JointID
}

// ContactEvents is an owned copy of one step's contact events.
type ContactEvents struct {
	Begin []ContactBeginEvent
	End   []ContactEndEvent
	Hit   []ContactHitEvent
}

// SensorEvents is an owned copy of one step's sensor events.
type SensorEvents struct {
	Begin []SensorBeginEvent
	End   []SensorEndEvent
}

type eventBuffers struct {
	contactBegin []ContactBeginEvent
	contactEnd   []ContactEndEvent
	contactHit   []ContactHitEvent
	sensorBegin  []SensorBeginEvent
	sensorEnd    []SensorEndEvent
	bodyMove     []BodyMoveEvent
	jointRemoved []JointEvent

	// pairs that already produced a hit this step
	hitSeen map[hitKey]struct{}
}

type hitKey struct {
	a, b ShapeID
}

// pairKey normalizes a shape pair so both arbiter orderings dedup to one key.
func pairKey(a, b ShapeID) hitKey {
	if b.Index < a.Index || (b.Index == a.Index && b.Generation < a.Generation) {
		a, b = b, a
	}
	return hitKey{a: a, b: b}
}

func (e *eventBuffers) clear() {
	e.contactBegin = e.contactBegin[:0]
	e.contactEnd = e.contactEnd[:0]
	e.contactHit = e.contactHit[:0]
	e.sensorBegin = e.sensorBegin[:0]
	e.sensorEnd = e.sensorEnd[:0]
	e.bodyMove = e.bodyMove[:0]
	e.jointRemoved = e.jointRemoved[:0]
	clear(e.hitSeen)
}

// installCollisionHandler routes every begin/separate pair in the space into
// the per-step event buffers. All shapes share one collision type, so this
// single handler observes every pair.
func (w *World) installCollisionHandler() {
	handler := w.space.NewCollisionHandler(shapeCollisionType, shapeCollisionType)

	handler.BeginFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
		ida, idb, ssa, ssb, ok := w.arbiterShapes(arb)
		if !ok {
			return true
		}
		switch {
		case ssa.def.Sensor && ssb.def.Sensor:
			// sensor pairs report nothing
		case ssa.def.Sensor:
			w.events.sensorBegin = append(w.events.sensorBegin,
				SensorBeginEvent{Sensor: ida, Visitor: idb})
		case ssb.def.Sensor:
			w.events.sensorBegin = append(w.events.sensorBegin,
				SensorBeginEvent{Sensor: idb, Visitor: ida})
		default:
			w.events.contactBegin = append(w.events.contactBegin,
				ContactBeginEvent{ShapeA: ida, ShapeB: idb})
			w.recordHit(arb, ida, idb, ssa, ssb)
		}
		return true
	}

	// Ongoing contacts can cross the hit threshold after they begin, for
	// example when a resting pair is slammed together. PreSolve runs every
	// step a pair stays in contact; pairKey dedups against the begin path.
	handler.PreSolveFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
		ida, idb, ssa, ssb, ok := w.arbiterShapes(arb)
		if !ok || ssa.def.Sensor || ssb.def.Sensor {
			return true
		}
		w.recordHit(arb, ida, idb, ssa, ssb)
		return true
	}

	handler.SeparateFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) {
		ida, idb, ssa, ssb, ok := w.arbiterShapes(arb)
		if !ok {
			return
		}
		switch {
		case ssa.def.Sensor && ssb.def.Sensor:
		case ssa.def.Sensor:
			w.events.sensorEnd = append(w.events.sensorEnd,
				SensorEndEvent{Sensor: ida, Visitor: idb})
		case ssb.def.Sensor:
			w.events.sensorEnd = append(w.events.sensorEnd,
				SensorEndEvent{Sensor: idb, Visitor: ida})
		default:
			w.events.contactEnd = append(w.events.contactEnd,
				ContactEndEvent{ShapeA: ida, ShapeB: idb})
		}
	}
}

// arbiterShapes resolves both sides of an arbiter back to ids. Pairs
// involving a shape that was destroyed mid-step are dropped.
func (w *World) arbiterShapes(arb *cp.Arbiter) (ida, idb ShapeID, ssa, ssb *shapeState, ok bool) {
	sa, sb := arb.Shapes()
	ida, okA := w.shapeIDs[sa]
	idb, okB := w.shapeIDs[sb]
	if !okA || !okB {
		return ShapeID{}, ShapeID{}, nil, nil, false
	}
	ssa, okA = w.shapes.resolve(ida.Index, ida.Generation)
	ssb, okB = w.shapes.resolve(idb.Index, idb.Generation)
	if !okA || !okB {
		return ShapeID{}, ShapeID{}, nil, nil, false
	}
	return ida, idb, ssa, ssb, true
}

func (w *World) recordHit(arb *cp.Arbiter, ida, idb ShapeID, ssa, ssb *shapeState) {
	key := pairKey(ida, idb)
	if _, dup := w.events.hitSeen[key]; dup {
		return
	}
	normal := fromCP(arb.Normal())
	va := fromCP(ssa.shape.Body().Velocity())
	vb := fromCP(ssb.shape.Body().Velocity())
	approach := math.Abs(vb.Sub(va).Dot(normal))
	if approach < w.def.HitEventThreshold {
		return
	}
	if w.events.hitSeen == nil {
		w.events.hitSeen = make(map[hitKey]struct{})
	}
	w.events.hitSeen[key] = struct{}{}
	set := arb.ContactPointSet()
	var point Vec2
	if set.Count > 0 {
		point = fromCP(set.Points[0].PointA)
	} else {
		pa := fromCP(ssa.shape.Body().Position())
		pb := fromCP(ssb.shape.Body().Position())
		point = pa.Add(pb).Scale(0.5)
	}
	w.events.contactHit = append(w.events.contactHit, ContactHitEvent{
		ShapeA:        ida,
		ShapeB:        idb,
		Point:         point,
		Normal:        normal,
		ApproachSpeed: approach,
	})
}

// collectBodyMoves runs at the end of Step. A non-static body whose pose
// changed since the previous step reports a move event; a body that just
// went to sleep reports one final event with FellAsleep set.
func (w *World) collectBodyMoves() {
	w.bodies.each(func(bs *bodyState) {
		if bs.def.Type == Static {
			return
		}
		pose := Transform{Position: fromCP(bs.body.Position()), Angle: bs.body.Angle()}
		asleep := bs.body.IsSleeping()
		fell := asleep && !bs.wasAsleep
		if pose != bs.lastPose || fell {
			w.events.bodyMove = append(w.events.bodyMove, BodyMoveEvent{
				Body:       bs.id,
				Transform:  pose,
				FellAsleep: fell,
			})
		}
		bs.lastPose = pose
		bs.wasAsleep = asleep
	})
}

// ContactEvents returns an owned copy of the events collected by the most
// recent Step. The copy stays valid across later steps.
func (w *World) ContactEvents() ContactEvents {
	return ContactEvents{
		Begin: append([]ContactBeginEvent(nil), w.events.contactBegin...),
		End:   append([]ContactEndEvent(nil), w.events.contactEnd...),
		Hit:   append([]ContactHitEvent(nil), w.events.contactHit...),
	}
}

// SensorEvents returns an owned copy of the sensor events collected by the
// most recent Step.
func (w *World) SensorEvents() SensorEvents {
	return SensorEvents{
		Begin: append([]SensorBeginEvent(nil), w.events.sensorBegin...),
		End:   append([]SensorEndEvent(nil), w.events.sensorEnd...),
	}
}

// WithContactEvents hands f the live contact buffers without copying. The
// slices alias world memory: they are valid only inside f and only until the
// next Step. The world is locked while f runs; mutating calls return
// ErrWorldLocked and Step panics.
func (w *World) WithContactEvents(f func(begin []ContactBeginEvent, end []ContactEndEvent, hit []ContactHitEvent)) {
	if w.destroyed {
		f(nil, nil, nil)
		return
	}
	w.locked = true
	defer func() { w.locked = false }()
	f(w.events.contactBegin, w.events.contactEnd, w.events.contactHit)
}

// BodyEvents returns an owned copy of the move events collected by the most
// recent Step.
func (w *World) BodyEvents() []BodyMoveEvent {
	return append([]BodyMoveEvent(nil), w.events.bodyMove...)
}

// JointEvents returns an owned copy of the implicit joint removals collected
// since the most recent Step.
func (w *World) JointEvents() []JointEvent {
	return append([]JointEvent(nil), w.events.jointRemoved...)
}

// WithSensorEvents hands f the live sensor buffers without copying, under
// the same locking rules as WithContactEvents.
func (w *World) WithSensorEvents(f func(begin []SensorBeginEvent, end []SensorEndEvent)) {
	if w.destroyed {
		f(nil, nil)
		return
	}
	w.locked = true
	defer func() { w.locked = false }()
	f(w.events.sensorBegin, w.events.sensorEnd)
}

// WithBodyEvents hands f the live move event buffer without copying, under
// the same locking rules as WithContactEvents.
func (w *World) WithBodyEvents(f func(moves []BodyMoveEvent)) {
	if w.destroyed {
		f(nil)
		return
	}
	w.locked = true
	defer func() { w.locked = false }()
	f(w.events.bodyMove)
}

// WithJointEvents hands f the live joint event buffer without copying, under
// the same locking rules as WithContactEvents.
func (w *World) WithJointEvents(f func(removed []JointEvent)) {
	if w.destroyed {
		f(nil)
		return
	}
	w.locked = true
	defer func() { w.locked = false }()
	f(w.events.jointRemoved)
}

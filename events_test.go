package boxdd_test

import (
	"errors"
	"testing"

	boxdd "github.com/Latias94/boxdd"
)

// groundedScene builds a static ground segment with a ball falling onto it.
func groundedScene(t *testing.T, w *boxdd.World, elasticity float64) (ground, ball boxdd.ShapeID) {
	t.Helper()

	groundBody := w.CreateBodyID(boxdd.DefaultBodyDef())
	def := boxdd.NewShapeDef().Friction(0.6).Elasticity(elasticity).Build()
	ground, err := w.CreateSegmentShapeFor(groundBody, def, boxdd.Segment{
		A: boxdd.V(-20, 0), B: boxdd.V(20, 0), Radius: 0.2,
	})
	if err != nil {
		t.Fatalf("ground shape failed: %v", err)
	}

	ballBody := w.CreateBodyID(boxdd.NewBodyDef().Type(boxdd.Dynamic).Position(boxdd.V(0, 5)).Build())
	ballDef := boxdd.NewShapeDef().Density(1).Elasticity(elasticity).Build()
	ball, err = w.CreateCircleShapeFor(ballBody, ballDef, boxdd.Circle{Radius: 0.5})
	if err != nil {
		t.Fatalf("ball shape failed: %v", err)
	}
	return ground, ball
}

func sameShapePair(a1, b1, a2, b2 boxdd.ShapeID) bool {
	return (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
}

func TestContactBeginAndHit(t *testing.T) {
	w := newTestWorld(t)
	ground, ball := groundedScene(t, w, 0)

	var begins []boxdd.ContactBeginEvent
	var hits []boxdd.ContactHitEvent
	for i := 0; i < 300; i++ {
		w.Step(1.0/60.0, 1)
		ev := w.ContactEvents()
		begins = append(begins, ev.Begin...)
		hits = append(hits, ev.Hit...)
		if len(begins) > 0 {
			break
		}
	}
	if len(begins) == 0 {
		t.Fatal("no contact begin event after 300 steps")
	}
	if !sameShapePair(begins[0].ShapeA, begins[0].ShapeB, ground, ball) {
		t.Errorf("begin pair = %+v, want ground/ball", begins[0])
	}

	// dropped from 5m, the ball arrives well above the 1 m/s hit threshold
	if len(hits) == 0 {
		t.Fatal("no contact hit event for a fast impact")
	}
	if hits[0].ApproachSpeed < 1 {
		t.Errorf("ApproachSpeed = %g, want >= threshold 1", hits[0].ApproachSpeed)
	}
}

func TestContactEndOnBounce(t *testing.T) {
	w := newTestWorld(t)
	groundedScene(t, w, 0.9)

	var sawBegin, sawEnd bool
	for i := 0; i < 600 && !sawEnd; i++ {
		w.Step(1.0/60.0, 1)
		w.WithContactEvents(func(begin []boxdd.ContactBeginEvent, end []boxdd.ContactEndEvent, _ []boxdd.ContactHitEvent) {
			sawBegin = sawBegin || len(begin) > 0
			sawEnd = sawEnd || len(end) > 0
		})
	}
	if !sawBegin {
		t.Fatal("bouncy ball never touched the ground")
	}
	if !sawEnd {
		t.Fatal("bouncy ball never separated from the ground")
	}
}

func TestContactEndOnDestroy(t *testing.T) {
	w := newTestWorld(t)
	_, ball := groundedScene(t, w, 0)

	touched := false
	for i := 0; i < 300 && !touched; i++ {
		w.Step(1.0/60.0, 1)
		touched = len(w.ContactEvents().Begin) > 0
	}
	if !touched {
		t.Fatal("ball never landed")
	}

	// removing a touching shape reports the separation in the same step
	ballBody, err := w.ShapeBody(ball)
	if err != nil {
		t.Fatalf("ShapeBody failed: %v", err)
	}
	if err := w.DestroyBody(ballBody); err != nil {
		t.Fatalf("DestroyBody failed: %v", err)
	}
	if got := w.ContactEvents().End; len(got) == 0 {
		t.Error("no contact end event after destroying a touching body")
	}
}

func TestSensorEvents(t *testing.T) {
	w := newTestWorld(t)

	zone := w.CreateBodyID(boxdd.NewBodyDef().Position(boxdd.V(0, 2)).Build())
	sensorDef := boxdd.NewShapeDef().Sensor(true).Build()
	sensor, err := w.CreatePolygonShapeFor(zone, sensorDef, boxdd.Box(2, 0.5))
	if err != nil {
		t.Fatalf("sensor shape failed: %v", err)
	}

	ballBody := w.CreateBodyID(boxdd.NewBodyDef().Type(boxdd.Dynamic).Position(boxdd.V(0, 6)).Build())
	visitor, err := w.CreateCircleShapeFor(ballBody, boxdd.NewShapeDef().Density(1).Build(),
		boxdd.Circle{Radius: 0.3})
	if err != nil {
		t.Fatalf("visitor shape failed: %v", err)
	}

	var begins []boxdd.SensorBeginEvent
	var ends []boxdd.SensorEndEvent
	var contacts int
	for i := 0; i < 600; i++ {
		w.Step(1.0/60.0, 1)
		ev := w.SensorEvents()
		begins = append(begins, ev.Begin...)
		ends = append(ends, ev.End...)
		contacts += len(w.ContactEvents().Begin)
		if len(ends) > 0 {
			break
		}
	}

	if len(begins) == 0 {
		t.Fatal("no sensor begin event")
	}
	if begins[0].Sensor != sensor || begins[0].Visitor != visitor {
		t.Errorf("sensor begin = %+v, want sensor/visitor", begins[0])
	}
	if len(ends) == 0 {
		t.Fatal("ball never left the sensor")
	}
	if contacts != 0 {
		t.Errorf("sensor pair leaked %d contact events", contacts)
	}
}

func TestEventViewLocksWorld(t *testing.T) {
	w := newTestWorld(t)
	_, ball := groundedScene(t, w, 0)
	ballBody, _ := w.ShapeBody(ball)

	w.WithContactEvents(func(_ []boxdd.ContactBeginEvent, _ []boxdd.ContactEndEvent, _ []boxdd.ContactHitEvent) {
		if err := w.SetBodyTransform(ballBody, boxdd.Transform{}); !errors.Is(err, boxdd.ErrWorldLocked) {
			t.Errorf("SetBodyTransform in view: got %v, want ErrWorldLocked", err)
		}
		if err := w.SetGravity(boxdd.V(0, 0)); !errors.Is(err, boxdd.ErrWorldLocked) {
			t.Errorf("SetGravity in view: got %v, want ErrWorldLocked", err)
		}
		if err := w.DestroyBody(ballBody); !errors.Is(err, boxdd.ErrWorldLocked) {
			t.Errorf("DestroyBody in view: got %v, want ErrWorldLocked", err)
		}
		if id := w.CreateBodyID(boxdd.DefaultBodyDef()); !id.IsNil() {
			t.Error("CreateBodyID in view returned a live id")
		}

		// reads stay available inside the view
		if _, err := w.BodyPosition(ballBody); err != nil {
			t.Errorf("read in view failed: %v", err)
		}
	})

	// the lock lifts with the closure
	if err := w.SetBodyTransform(ballBody, boxdd.Transform{Position: boxdd.V(0, 5)}); err != nil {
		t.Errorf("mutation after view failed: %v", err)
	}
}

func TestStepInsideViewPanics(t *testing.T) {
	w := newTestWorld(t)

	defer func() {
		if recover() == nil {
			t.Error("Step inside an event view did not panic")
		}
	}()
	w.WithContactEvents(func(_ []boxdd.ContactBeginEvent, _ []boxdd.ContactEndEvent, _ []boxdd.ContactHitEvent) {
		w.Step(1.0/60.0, 1)
	})
}

func TestHitOnExistingContact(t *testing.T) {
	w := newTestWorld(t)

	groundBody := w.CreateBodyID(boxdd.DefaultBodyDef())
	if _, err := w.CreateSegmentShapeFor(groundBody, boxdd.DefaultShapeDef(), boxdd.Segment{
		A: boxdd.V(-20, 0), B: boxdd.V(20, 0), Radius: 0.2,
	}); err != nil {
		t.Fatalf("ground shape failed: %v", err)
	}

	// rests on the ground from the first step, so the contact begins well
	// below the 1 m/s hit threshold
	ballBody := w.CreateBodyID(boxdd.NewBodyDef().Type(boxdd.Dynamic).Position(boxdd.V(0, 0.69)).Build())
	if _, err := w.CreateCircleShapeFor(ballBody, boxdd.NewShapeDef().Density(1).Build(),
		boxdd.Circle{Radius: 0.5}); err != nil {
		t.Fatalf("ball shape failed: %v", err)
	}

	touched := false
	for i := 0; i < 5; i++ {
		w.Step(1.0/60.0, 1)
		ev := w.ContactEvents()
		touched = touched || len(ev.Begin) > 0
		if len(ev.Hit) != 0 {
			t.Fatalf("step %d: resting contact produced a hit: %+v", i, ev.Hit)
		}
	}
	if !touched {
		t.Fatal("ball never touched the ground")
	}

	// slamming the resting ball down crosses the threshold mid-contact
	if err := w.SetBodyLinearVelocity(ballBody, boxdd.V(0, -5)); err != nil {
		t.Fatalf("SetBodyLinearVelocity failed: %v", err)
	}
	w.Step(1.0/60.0, 1)
	hits := w.ContactEvents().Hit
	if len(hits) == 0 {
		t.Fatal("no hit event for a fast impact on an existing contact")
	}
	if len(hits) > 1 {
		t.Errorf("pair reported %d hits in one step, want 1", len(hits))
	}
	if hits[0].ApproachSpeed < 1 {
		t.Errorf("ApproachSpeed = %g, want >= threshold 1", hits[0].ApproachSpeed)
	}
}

func TestBodyMoveEvents(t *testing.T) {
	w := newTestWorld(t)

	w.CreateBodyID(boxdd.DefaultBodyDef()) // static, must stay silent
	ball := dropBall(t, w, boxdd.V(0, 10))

	// first step builds velocity, second moves the body
	w.Step(1.0/60.0, 1)
	w.Step(1.0/60.0, 1)
	moves := w.BodyEvents()
	if len(moves) != 1 {
		t.Fatalf("BodyEvents = %d events, want 1", len(moves))
	}
	if moves[0].Body != ball {
		t.Errorf("move event body = %+v, want the falling ball", moves[0].Body)
	}
	if moves[0].Transform.Position.Y >= 10 {
		t.Errorf("move event pose y = %g, want below start", moves[0].Transform.Position.Y)
	}
	if moves[0].FellAsleep {
		t.Error("falling body reported FellAsleep")
	}

	pose, _ := w.BodyTransform(ball)
	if moves[0].Transform != pose {
		t.Errorf("move event pose %+v, want current pose %+v", moves[0].Transform, pose)
	}
}

func TestBodyMoveEventFellAsleep(t *testing.T) {
	w, err := boxdd.NewWorld(boxdd.NewWorldDef().SleepTimeThreshold(0.2).Build())
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	defer w.Destroy()

	_, ball := groundedScene(t, w, 0)
	ballBody, _ := w.ShapeBody(ball)

	var slept bool
	for i := 0; i < 1200 && !slept; i++ {
		w.Step(1.0/60.0, 1)
		for _, ev := range w.BodyEvents() {
			if ev.Body == ballBody && ev.FellAsleep {
				slept = true
			}
		}
	}
	if !slept {
		t.Fatal("resting ball never reported FellAsleep")
	}
	if awake, _ := w.IsBodyAwake(ballBody); awake {
		t.Error("body awake after its FellAsleep event")
	}

	// asleep and motionless, so the stream goes quiet
	w.Step(1.0/60.0, 1)
	for _, ev := range w.BodyEvents() {
		if ev.Body == ballBody {
			t.Errorf("sleeping body kept emitting move events: %+v", ev)
		}
	}
}

func TestJointEventsOnCascade(t *testing.T) {
	w := newTestWorld(t)
	a := dropBall(t, w, boxdd.V(0, 0))
	b := dropBall(t, w, boxdd.V(2, 0))

	jid, err := w.CreatePivotJointID(boxdd.NewPivotJointDef(a, b).Anchor(boxdd.V(1, 0)).Build())
	if err != nil {
		t.Fatalf("CreatePivotJointID failed: %v", err)
	}

	// explicit destroy is not an event: the caller already knows
	if err := w.DestroyJoint(jid); err != nil {
		t.Fatalf("DestroyJoint failed: %v", err)
	}
	if got := w.JointEvents(); len(got) != 0 {
		t.Fatalf("explicit DestroyJoint produced events: %+v", got)
	}

	jid, err = w.CreatePivotJointID(boxdd.NewPivotJointDef(a, b).Anchor(boxdd.V(1, 0)).Build())
	if err != nil {
		t.Fatalf("CreatePivotJointID failed: %v", err)
	}
	if err := w.DestroyBody(a); err != nil {
		t.Fatalf("DestroyBody failed: %v", err)
	}

	got := w.JointEvents()
	if len(got) != 1 {
		t.Fatalf("JointEvents = %d events after cascade, want 1", len(got))
	}
	if got[0].Joint != jid {
		t.Errorf("joint event = %+v, want the cascaded joint", got[0])
	}

	// the next step starts a fresh window
	w.Step(1.0/60.0, 1)
	if got := w.JointEvents(); len(got) != 0 {
		t.Errorf("cascade event survived the next step: %+v", got)
	}
}

func TestBodyEventViewLocksWorld(t *testing.T) {
	w := newTestWorld(t)
	ball := dropBall(t, w, boxdd.V(0, 10))
	w.Step(1.0/60.0, 1)
	w.Step(1.0/60.0, 1)

	w.WithBodyEvents(func(moves []boxdd.BodyMoveEvent) {
		if len(moves) == 0 {
			t.Fatal("no move events in view")
		}
		if err := w.SetBodyTransform(ball, boxdd.Transform{}); !errors.Is(err, boxdd.ErrWorldLocked) {
			t.Errorf("SetBodyTransform in view: got %v, want ErrWorldLocked", err)
		}
	})
	w.WithJointEvents(func(removed []boxdd.JointEvent) {
		if err := w.DestroyBody(ball); !errors.Is(err, boxdd.ErrWorldLocked) {
			t.Errorf("DestroyBody in view: got %v, want ErrWorldLocked", err)
		}
	})

	if err := w.SetBodyTransform(ball, boxdd.Transform{Position: boxdd.V(0, 10)}); err != nil {
		t.Errorf("mutation after view failed: %v", err)
	}
}

func TestOwnedEventsSurviveSteps(t *testing.T) {
	w := newTestWorld(t)
	groundedScene(t, w, 0)

	var owned boxdd.ContactEvents
	for i := 0; i < 300; i++ {
		w.Step(1.0/60.0, 1)
		if ev := w.ContactEvents(); len(ev.Begin) > 0 {
			owned = ev
			break
		}
	}
	if len(owned.Begin) == 0 {
		t.Fatal("no contact events collected")
	}
	saved := owned.Begin[0]

	for i := 0; i < 10; i++ {
		w.Step(1.0/60.0, 1)
	}
	if owned.Begin[0] != saved {
		t.Error("owned event copy mutated by later steps")
	}
}

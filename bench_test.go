package boxdd_test

import (
	"testing"

	boxdd "github.com/Latias94/boxdd"
)

func benchWorld(b *testing.B, bodies int) *boxdd.World {
	b.Helper()
	w, err := boxdd.NewWorld(boxdd.DefaultWorldDef())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(w.Destroy)

	ground := w.CreateBodyID(boxdd.DefaultBodyDef())
	if _, err := w.CreateSegmentShapeFor(ground, boxdd.DefaultShapeDef(), boxdd.Segment{
		A: boxdd.V(-100, 0), B: boxdd.V(100, 0), Radius: 0.5,
	}); err != nil {
		b.Fatal(err)
	}

	def := boxdd.NewShapeDef().Density(1).Build()
	for i := 0; i < bodies; i++ {
		x := float64(i%20)*1.1 - 11
		y := 1 + float64(i/20)*1.1
		id := w.CreateBodyID(boxdd.NewBodyDef().Type(boxdd.Dynamic).Position(boxdd.V(x, y)).Build())
		if _, err := w.CreatePolygonShapeFor(id, def, boxdd.Box(0.5, 0.5)); err != nil {
			b.Fatal(err)
		}
	}
	return w
}

func BenchmarkStep100Boxes(b *testing.B) {
	w := benchWorld(b, 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Step(1.0/60.0, 4)
	}
}

func BenchmarkCreateDestroyBody(b *testing.B) {
	w, err := boxdd.NewWorld(boxdd.DefaultWorldDef())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(w.Destroy)
	def := boxdd.NewShapeDef().Density(1).Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := w.CreateBodyID(boxdd.NewBodyDef().Type(boxdd.Dynamic).Build())
		if _, err := w.CreateCircleShapeFor(id, def, boxdd.Circle{Radius: 0.5}); err != nil {
			b.Fatal(err)
		}
		if err := w.DestroyBody(id); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCastRay(b *testing.B) {
	w := benchWorld(b, 100)
	filter := boxdd.DefaultQueryFilter()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.CastRayClosest(boxdd.V(-50, 2), boxdd.V(100, 0), filter)
	}
}

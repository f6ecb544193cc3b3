package boxdd_test

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByteArena/box2d"
	"github.com/jakecoffman/cp"
	"gopkg.in/yaml.v3"

	boxdd "github.com/Latias94/boxdd"
)

func TestVecConversions(t *testing.T) {
	want := boxdd.V(1.5, -2)

	if got := boxdd.Vec([2]float64{1.5, -2}); got != want {
		t.Errorf("from [2]float64: %+v", got)
	}
	if got := boxdd.Vec([2]float32{1.5, -2}); got != want {
		t.Errorf("from [2]float32: %+v", got)
	}
	if got := boxdd.Vec(cp.Vector{X: 1.5, Y: -2}); got != want {
		t.Errorf("from cp.Vector: %+v", got)
	}
	if got := boxdd.Vec(box2d.MakeB2Vec2(1.5, -2)); got != want {
		t.Errorf("from box2d.B2Vec2: %+v", got)
	}
	if got := boxdd.Vec(want); got != want {
		t.Errorf("identity: %+v", got)
	}

	if got := want.CP(); got != (cp.Vector{X: 1.5, Y: -2}) {
		t.Errorf("CP() = %+v", got)
	}
	if got := want.B2(); got != box2d.MakeB2Vec2(1.5, -2) {
		t.Errorf("B2() = %+v", got)
	}
}

func TestVecValidity(t *testing.T) {
	if !boxdd.V(1, 2).IsValid() {
		t.Error("finite vector reported invalid")
	}
	if boxdd.V(math.NaN(), 0).IsValid() {
		t.Error("NaN vector reported valid")
	}
	if boxdd.V(0, math.Inf(-1)).IsValid() {
		t.Error("infinite vector reported valid")
	}
}

func TestWorldDefDefaults(t *testing.T) {
	def := boxdd.DefaultWorldDef()
	if def.Gravity != boxdd.V(0, -10) {
		t.Errorf("Gravity = %+v, want (0,-10)", def.Gravity)
	}
	if def.Iterations != 10 {
		t.Errorf("Iterations = %d, want 10", def.Iterations)
	}
	if def.Damping != 1 {
		t.Errorf("Damping = %g, want 1", def.Damping)
	}
	if !math.IsInf(def.SleepTimeThreshold, 1) {
		t.Errorf("SleepTimeThreshold = %g, want +Inf (sleeping off)", def.SleepTimeThreshold)
	}
}

func TestBuildersAreValueChained(t *testing.T) {
	base := boxdd.NewBodyDef().Type(boxdd.Dynamic)
	left := base.Position(boxdd.V(-1, 0)).Build()
	right := base.Position(boxdd.V(1, 0)).Build()

	if left.Position == right.Position {
		t.Error("builder branches shared state")
	}
	if left.Type != boxdd.Dynamic || right.Type != boxdd.Dynamic {
		t.Error("branch lost the shared prefix")
	}
}

func TestShapeDefBuilder(t *testing.T) {
	def := boxdd.NewShapeDef().
		Density(2.5).
		Friction(0.1).
		Elasticity(0.9).
		Sensor(true).
		Filter(boxdd.Filter{Group: 3, Categories: 0b10, Mask: 0b01}).
		Build()

	if def.Density != 2.5 || def.Friction != 0.1 || def.Elasticity != 0.9 || !def.Sensor {
		t.Errorf("built def = %+v", def)
	}
	if def.Filter.Group != 3 {
		t.Errorf("filter = %+v", def.Filter)
	}
}

func TestBoxGeometry(t *testing.T) {
	p := boxdd.Box(2, 1)
	if len(p.Verts) != 4 {
		t.Fatalf("Box verts = %d, want 4", len(p.Verts))
	}
	off := boxdd.BoxAt(boxdd.V(10, 5), 2, 1)
	if off.Verts[0] != boxdd.V(8, 4) {
		t.Errorf("BoxAt corner = %+v, want (8,4)", off.Verts[0])
	}
}

func TestBodyTypeYAML(t *testing.T) {
	data, err := yaml.Marshal(boxdd.Kinematic)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.TrimSpace(string(data)) != "kinematic" {
		t.Errorf("encoded as %q, want kinematic", strings.TrimSpace(string(data)))
	}

	var bt boxdd.BodyType
	if err := yaml.Unmarshal([]byte("dynamic"), &bt); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if bt != boxdd.Dynamic {
		t.Errorf("decoded %v, want Dynamic", bt)
	}
	if err := yaml.Unmarshal([]byte("jelly"), &bt); err == nil {
		t.Error("unknown body type decoded without error")
	}
}

func TestWorldDefTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.toml")

	def := boxdd.NewWorldDef().
		Gravity(boxdd.V(0, -9.8)).
		Iterations(16).
		SleepTimeThreshold(0.5).
		HitEventThreshold(2).
		Build()
	if err := boxdd.SaveWorldDefTOML(path, def); err != nil {
		t.Fatalf("SaveWorldDefTOML failed: %v", err)
	}

	loaded, err := boxdd.LoadWorldDefTOML(path)
	if err != nil {
		t.Fatalf("LoadWorldDefTOML failed: %v", err)
	}
	if loaded != def {
		t.Errorf("round trip diverged: %+v vs %+v", loaded, def)
	}
}

func TestLoadWorldDefTOMLMissingFile(t *testing.T) {
	if _, err := boxdd.LoadWorldDefTOML(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing file loaded without error")
	}
}

func TestBackendIdentity(t *testing.T) {
	if !strings.Contains(boxdd.Backend(), "cp") {
		t.Errorf("Backend() = %q", boxdd.Backend())
	}
}

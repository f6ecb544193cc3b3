package boxdd

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Geometry kind tags used in shape records.
const (
	geomCircle  = "circle"
	geomSegment = "segment"
	geomPolygon = "polygon"
)

// GeomRecord is the serialized form of a shape's geometry: a kind tag plus
// the fields that kind uses.
type GeomRecord struct {
	Kind   string  `yaml:"kind"`
	Center Vec2    `yaml:"center,omitempty"`
	A      Vec2    `yaml:"a,omitempty"`
	B      Vec2    `yaml:"b,omitempty"`
	Verts  []Vec2  `yaml:"verts,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
}

func circleRecord(c Circle) GeomRecord {
	return GeomRecord{Kind: geomCircle, Center: c.Center, Radius: c.Radius}
}

func segmentRecord(s Segment) GeomRecord {
	return GeomRecord{Kind: geomSegment, A: s.A, B: s.B, Radius: s.Radius}
}

func polygonRecord(p Polygon) GeomRecord {
	return GeomRecord{Kind: geomPolygon, Verts: append([]Vec2(nil), p.Verts...), Radius: p.Radius}
}

// ShapeRecord pairs a shape definition with its geometry.
type ShapeRecord struct {
	Def  ShapeDef   `yaml:"def"`
	Geom GeomRecord `yaml:"geom"`
}

// BodyRecord captures one body: its definition reconstructed from runtime
// state, its pose, and its non-chain shapes in creation order.
type BodyRecord struct {
	Def       BodyDef       `yaml:"def"`
	Transform Transform     `yaml:"transform"`
	Shapes    []ShapeRecord `yaml:"shapes,omitempty"`
}

// JointRecord captures one joint. BodyA and BodyB are ordinals into the
// snapshot's body list; anchors are in the local frames of the two bodies
// (GrooveA/GrooveB in body A's frame).
type JointRecord struct {
	Kind       string  `yaml:"kind"`
	BodyA      int     `yaml:"body_a"`
	BodyB      int     `yaml:"body_b"`
	AnchorA    Vec2    `yaml:"anchor_a,omitempty"`
	AnchorB    Vec2    `yaml:"anchor_b,omitempty"`
	GrooveA    Vec2    `yaml:"groove_a,omitempty"`
	GrooveB    Vec2    `yaml:"groove_b,omitempty"`
	Min        float64 `yaml:"min,omitempty"`
	Max        float64 `yaml:"max,omitempty"`
	RestLength float64 `yaml:"rest_length,omitempty"`
	Stiffness  float64 `yaml:"stiffness,omitempty"`
	Damping    float64 `yaml:"damping,omitempty"`
	Rate       float64 `yaml:"rate,omitempty"`
	MaxForce   float64 `yaml:"max_force,omitempty"`
}

// ChainRecord captures one chain created through World.CreateChainFor.
type ChainRecord struct {
	Body  int      `yaml:"body"`
	Def   ShapeDef `yaml:"def"`
	Chain ChainDef `yaml:"chain"`
}

// Snapshot is a structural copy of a world: enough to rebuild an equivalent
// scene, not a bit-image of solver internals.
type Snapshot struct {
	World  WorldConfig   `yaml:"world"`
	Bodies []BodyRecord  `yaml:"bodies,omitempty"`
	Joints []JointRecord `yaml:"joints,omitempty"`
	Chains []ChainRecord `yaml:"chains,omitempty"`
}

// Capture records the world's bodies, shapes, joints and chains in creation
// order. Chains created through the wrapper path (Body.CreateChain) are not
// recorded; a capture-and-rebuild silently drops them, so build chains with
// World.CreateChainFor when they must persist.
func Capture(w *World) (*Snapshot, error) {
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}

	snap := &Snapshot{World: WorldConfigOf(w)}
	ordinals := make(map[BodyID]int)

	for _, id := range w.bodyOrder {
		bs, ok := w.bodies.resolve(id.Index, id.Generation)
		if !ok {
			continue
		}
		def := bs.def
		def.Position = fromCP(bs.body.Position())
		def.Angle = bs.body.Angle()
		if def.Type != Static {
			def.LinearVelocity = fromCP(bs.body.Velocity())
			def.AngularVelocity = bs.body.AngularVelocity()
		}
		rec := BodyRecord{
			Def:       def,
			Transform: Transform{Position: def.Position, Angle: def.Angle},
		}
		for _, sid := range bs.shapes {
			ss, ok := w.shapes.resolve(sid.Index, sid.Generation)
			if !ok || !ss.chain.IsNil() {
				continue
			}
			rec.Shapes = append(rec.Shapes, ShapeRecord{Def: ss.def, Geom: ss.geom})
		}
		ordinals[id] = len(snap.Bodies)
		snap.Bodies = append(snap.Bodies, rec)
	}

	for _, cid := range w.chainOrder {
		cs, ok := w.chains.resolve(cid.Index, cid.Generation)
		if !ok {
			continue
		}
		ord, ok := ordinals[cs.body]
		if !ok {
			continue
		}
		snap.Chains = append(snap.Chains, ChainRecord{Body: ord, Def: cs.def, Chain: cs.chain})
	}

	for _, jid := range w.jointOrder {
		js, ok := w.joints.resolve(jid.Index, jid.Generation)
		if !ok {
			continue
		}
		ordA, okA := ordinals[js.bodyA]
		ordB, okB := ordinals[js.bodyB]
		if !okA || !okB {
			continue
		}
		rec := js.record
		rec.BodyA = ordA
		rec.BodyB = ordB
		snap.Joints = append(snap.Joints, rec)
	}

	return snap, nil
}

func (w *World) createShapeFromRecord(body BodyID, def ShapeDef, geom GeomRecord) (ShapeID, error) {
	switch geom.Kind {
	case geomCircle:
		return w.CreateCircleShapeFor(body, def, Circle{Center: geom.Center, Radius: geom.Radius})
	case geomSegment:
		return w.CreateSegmentShapeFor(body, def, Segment{A: geom.A, B: geom.B, Radius: geom.Radius})
	case geomPolygon:
		return w.CreatePolygonShapeFor(body, def, Polygon{Verts: geom.Verts, Radius: geom.Radius})
	}
	return ShapeID{}, &SnapshotError{Kind: geom.Kind, Detail: "unknown shape kind"}
}

// Rebuild creates a fresh world from a snapshot, replaying creation in the
// recorded order so ids come out in the same sequence. Returns a
// SnapshotError on structurally invalid records.
func Rebuild(snap *Snapshot, opts ...WorldOption) (*World, error) {
	w, err := NewWorld(snap.World.WorldDef(), opts...)
	if err != nil {
		return nil, err
	}

	ids := make([]BodyID, 0, len(snap.Bodies))
	for i, br := range snap.Bodies {
		id := w.CreateBodyID(br.Def)
		if (br.Transform != Transform{}) {
			_ = w.SetBodyTransform(id, br.Transform)
		}
		for _, sr := range br.Shapes {
			if _, err := w.createShapeFromRecord(id, sr.Def, sr.Geom); err != nil {
				w.Destroy()
				return nil, fmt.Errorf("body %d: %w", i, err)
			}
		}
		ids = append(ids, id)
	}

	for i, cr := range snap.Chains {
		if cr.Body < 0 || cr.Body >= len(ids) {
			w.Destroy()
			return nil, &SnapshotError{Detail: fmt.Sprintf("chain %d: body ordinal %d out of range", i, cr.Body)}
		}
		if _, err := w.CreateChainFor(ids[cr.Body], cr.Def, cr.Chain); err != nil {
			w.Destroy()
			return nil, fmt.Errorf("chain %d: %w", i, err)
		}
	}

	for i, jr := range snap.Joints {
		if jr.BodyA < 0 || jr.BodyA >= len(ids) || jr.BodyB < 0 || jr.BodyB >= len(ids) {
			w.Destroy()
			return nil, &SnapshotError{Kind: jr.Kind,
				Detail: fmt.Sprintf("joint %d: body ordinal out of range", i)}
		}
		if _, err := w.createJointFromRecord(jr, ids[jr.BodyA], ids[jr.BodyB]); err != nil {
			w.Destroy()
			return nil, fmt.Errorf("joint %d: %w", i, err)
		}
	}

	return w, nil
}

// EncodeYAML writes the snapshot as YAML.
func (s *Snapshot) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return &SnapshotError{Detail: err.Error()}
	}
	return enc.Close()
}

// DecodeSnapshotYAML reads a snapshot written by EncodeYAML.
func DecodeSnapshotYAML(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, &SnapshotError{Detail: err.Error()}
	}
	return &snap, nil
}

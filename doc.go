// Package boxdd is a memory-safe binding layer over a 2D rigid-body physics
// engine. The engine is treated as an opaque backend: no raw engine pointer
// ever crosses the public API. Instead, every body, shape, joint and chain is
// addressed by a generation-stamped id, so a handle held past destruction
// resolves to an error rather than to whatever recycled its slot.
//
// Two access styles layer over one core:
//
//   - Owned wrappers (Body, Shape, Joint, Chain) follow a create/defer-Destroy
//     discipline. Destroy is idempotent; Release escapes to a bare id.
//   - Bare ids (BodyID, ShapeID, ...) are copyable handles for callers who
//     manage lifetimes themselves through the World's id-based methods.
//
// Worlds are stepped explicitly with Step(dt, subSteps). Contact, sensor,
// body move and joint events accumulate per step and are read either as
// owned copies (ContactEvents, SensorEvents, BodyEvents, JointEvents) or as
// zero-copy views (WithContactEvents, WithSensorEvents, WithBodyEvents,
// WithJointEvents) that lock the world while the closure runs.
//
// Capture and Rebuild turn a world into a structural Snapshot and back:
// creation-order replay of definitions, transforms and velocities, encoded
// as YAML. World-level settings alone round-trip through WorldConfig and
// TOML files.
//
// A World must be confined to one goroutine; independent worlds are
// independent.
package boxdd

package boxdd

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// WorldDef configures a World at creation. Build one with NewWorldDef or
// start from DefaultWorldDef and set fields directly.
type WorldDef struct {
	Gravity            Vec2    `yaml:"gravity" toml:"gravity"`
	Iterations         uint    `yaml:"iterations" toml:"iterations"`
	Damping            float64 `yaml:"damping" toml:"damping"`
	SleepTimeThreshold float64 `yaml:"sleep_time_threshold" toml:"sleep_time_threshold"`
	IdleSpeedThreshold float64 `yaml:"idle_speed_threshold" toml:"idle_speed_threshold"`
	HitEventThreshold  float64 `yaml:"hit_event_threshold" toml:"hit_event_threshold"`
}

// DefaultWorldDef returns the stock world configuration: gravity (0, -10),
// 10 solver iterations, no velocity damping, sleeping disabled, hit events
// reported above 1 m/s approach speed.
func DefaultWorldDef() WorldDef {
	return WorldDef{
		Gravity:            V(0, -10),
		Iterations:         10,
		Damping:            1.0,
		SleepTimeThreshold: math.Inf(1),
		IdleSpeedThreshold: 0,
		HitEventThreshold:  1.0,
	}
}

// WorldDefBuilder assembles a WorldDef fluently. Value receivers keep partial
// builders copyable; Build performs no engine interaction.
type WorldDefBuilder struct {
	def WorldDef
}

// NewWorldDef starts a builder seeded with DefaultWorldDef.
func NewWorldDef() WorldDefBuilder {
	return WorldDefBuilder{def: DefaultWorldDef()}
}

func (b WorldDefBuilder) Gravity(g Vec2) WorldDefBuilder {
	b.def.Gravity = g
	return b
}

func (b WorldDefBuilder) Iterations(n uint) WorldDefBuilder {
	b.def.Iterations = n
	return b
}

func (b WorldDefBuilder) Damping(d float64) WorldDefBuilder {
	b.def.Damping = d
	return b
}

// SleepTimeThreshold enables sleeping: bodies idle for longer than t seconds
// fall asleep. +Inf disables sleeping.
func (b WorldDefBuilder) SleepTimeThreshold(t float64) WorldDefBuilder {
	b.def.SleepTimeThreshold = t
	return b
}

func (b WorldDefBuilder) IdleSpeedThreshold(s float64) WorldDefBuilder {
	b.def.IdleSpeedThreshold = s
	return b
}

// HitEventThreshold sets the minimum approach speed, in m/s, for a new
// contact to emit a ContactHitEvent.
func (b WorldDefBuilder) HitEventThreshold(s float64) WorldDefBuilder {
	b.def.HitEventThreshold = s
	return b
}

func (b WorldDefBuilder) Build() WorldDef {
	return b.def
}

// BodyType selects how a body participates in simulation.
type BodyType uint8

const (
	// Static bodies never move and have infinite mass.
	Static BodyType = iota
	// Kinematic bodies move under user-set velocities, unaffected by forces.
	Kinematic
	// Dynamic bodies are fully simulated; mass comes from shape density.
	Dynamic
)

func (t BodyType) String() string {
	switch t {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	}
	return fmt.Sprintf("BodyType(%d)", uint8(t))
}

// MarshalYAML encodes the type as its lowercase name.
func (t BodyType) MarshalYAML() (interface{}, error) {
	switch t {
	case Static, Kinematic, Dynamic:
		return t.String(), nil
	}
	return nil, fmt.Errorf("%w: body type %d", ErrInvalidDefinition, uint8(t))
}

// UnmarshalYAML accepts the lowercase names emitted by MarshalYAML.
func (t *BodyType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "static":
		*t = Static
	case "kinematic":
		*t = Kinematic
	case "dynamic":
		*t = Dynamic
	default:
		return fmt.Errorf("%w: body type %q", ErrInvalidDefinition, s)
	}
	return nil
}

// BodyDef configures a body at creation.
type BodyDef struct {
	Type            BodyType `yaml:"type"`
	Position        Vec2     `yaml:"position"`
	Angle           float64  `yaml:"angle"`
	LinearVelocity  Vec2     `yaml:"linear_velocity"`
	AngularVelocity float64  `yaml:"angular_velocity"`
}

// DefaultBodyDef returns a static body at the origin.
func DefaultBodyDef() BodyDef {
	return BodyDef{Type: Static}
}

// BodyDefBuilder assembles a BodyDef fluently.
type BodyDefBuilder struct {
	def BodyDef
}

// NewBodyDef starts a builder seeded with DefaultBodyDef.
func NewBodyDef() BodyDefBuilder {
	return BodyDefBuilder{def: DefaultBodyDef()}
}

func (b BodyDefBuilder) Type(t BodyType) BodyDefBuilder {
	b.def.Type = t
	return b
}

func (b BodyDefBuilder) Position(p Vec2) BodyDefBuilder {
	b.def.Position = p
	return b
}

func (b BodyDefBuilder) Angle(a float64) BodyDefBuilder {
	b.def.Angle = a
	return b
}

func (b BodyDefBuilder) LinearVelocity(v Vec2) BodyDefBuilder {
	b.def.LinearVelocity = v
	return b
}

func (b BodyDefBuilder) AngularVelocity(w float64) BodyDefBuilder {
	b.def.AngularVelocity = w
	return b
}

func (b BodyDefBuilder) Build() BodyDef {
	return b.def
}

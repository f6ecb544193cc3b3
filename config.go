package boxdd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// WorldConfig is the world-level slice of a snapshot: everything a WorldDef
// carries, in a form meant for persistence. Apply pushes the mutable subset
// onto a live world.
type WorldConfig struct {
	Gravity            Vec2    `yaml:"gravity" toml:"gravity"`
	Iterations         uint    `yaml:"iterations" toml:"iterations"`
	Damping            float64 `yaml:"damping" toml:"damping"`
	SleepTimeThreshold float64 `yaml:"sleep_time_threshold" toml:"sleep_time_threshold"`
	IdleSpeedThreshold float64 `yaml:"idle_speed_threshold" toml:"idle_speed_threshold"`
	HitEventThreshold  float64 `yaml:"hit_event_threshold" toml:"hit_event_threshold"`
}

// WorldConfigOf snapshots a world's current configuration.
func WorldConfigOf(w *World) WorldConfig {
	d := w.def
	return WorldConfig{
		Gravity:            d.Gravity,
		Iterations:         d.Iterations,
		Damping:            d.Damping,
		SleepTimeThreshold: d.SleepTimeThreshold,
		IdleSpeedThreshold: d.IdleSpeedThreshold,
		HitEventThreshold:  d.HitEventThreshold,
	}
}

// WorldDef converts the config back into a creation definition.
func (c WorldConfig) WorldDef() WorldDef {
	return WorldDef{
		Gravity:            c.Gravity,
		Iterations:         c.Iterations,
		Damping:            c.Damping,
		SleepTimeThreshold: c.SleepTimeThreshold,
		IdleSpeedThreshold: c.IdleSpeedThreshold,
		HitEventThreshold:  c.HitEventThreshold,
	}
}

// Apply pushes the config onto a live world: gravity, iterations, damping,
// sleep thresholds and the hit event threshold.
func (c WorldConfig) Apply(w *World) error {
	if err := w.mutable(); err != nil {
		return err
	}
	if !c.Gravity.IsValid() {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidDefinition)
	}
	if c.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be at least 1", ErrInvalidDefinition)
	}
	if c.Damping <= 0 {
		return fmt.Errorf("%w: damping must be positive", ErrInvalidDefinition)
	}
	w.def = c.WorldDef()
	w.space.SetGravity(c.Gravity.CP())
	w.space.Iterations = c.Iterations
	w.space.SetDamping(c.Damping)
	if c.SleepTimeThreshold > 0 {
		w.space.SleepTimeThreshold = c.SleepTimeThreshold
	}
	w.space.IdleSpeedThreshold = c.IdleSpeedThreshold
	return nil
}

// LoadWorldDefTOML reads a WorldDef from a TOML file. Missing keys keep their
// DefaultWorldDef values.
func LoadWorldDefTOML(path string) (WorldDef, error) {
	def := DefaultWorldDef()
	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read world config: %w", err)
	}
	if err := toml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse world config %s: %w", path, err)
	}
	return def, nil
}

// SaveWorldDefTOML writes a WorldDef to a TOML file.
func SaveWorldDefTOML(path string, def WorldDef) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write world config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(def); err != nil {
		f.Close()
		return fmt.Errorf("encode world config: %w", err)
	}
	return f.Close()
}

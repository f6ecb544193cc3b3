package boxdd

// WorldID is a process-unique serial assigned to each World. Every other id
// carries the WorldID it was issued by, so handing an id to the wrong world
// is detected instead of silently touching a recycled slot. The full 32-bit
// serial is kept so worlds never alias within a process.
type WorldID uint32

// BodyID is a generation-stamped handle to a body. The zero value is nil.
type BodyID struct {
	Index      uint32
	Generation uint32
	World      WorldID
}

// IsNil reports whether the id has never been issued.
func (id BodyID) IsNil() bool { return id.Generation == 0 }

// ShapeID is a generation-stamped handle to a shape. The zero value is nil.
type ShapeID struct {
	Index      uint32
	Generation uint32
	World      WorldID
}

func (id ShapeID) IsNil() bool { return id.Generation == 0 }

// JointID is a generation-stamped handle to a joint. The zero value is nil.
type JointID struct {
	Index      uint32
	Generation uint32
	World      WorldID
}

func (id JointID) IsNil() bool { return id.Generation == 0 }

// ChainID is a generation-stamped handle to a chain of segment shapes.
// The zero value is nil.
type ChainID struct {
	Index      uint32
	Generation uint32
	World      WorldID
}

func (id ChainID) IsNil() bool { return id.Generation == 0 }

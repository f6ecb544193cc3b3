package boxdd

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by World operations. Match with errors.Is.
var (
	// ErrStaleHandle means the id refers to a slot that has been recycled
	// or was never issued by this world.
	ErrStaleHandle = errors.New("boxdd: stale handle")

	// ErrAlreadyDestroyed means the object behind the id was destroyed.
	ErrAlreadyDestroyed = errors.New("boxdd: already destroyed")

	// ErrWorldDestroyed means the world itself has been torn down.
	ErrWorldDestroyed = errors.New("boxdd: world destroyed")

	// ErrWorldLocked means a mutating call was made inside an event view.
	ErrWorldLocked = errors.New("boxdd: world locked during event view")

	// ErrWorldMismatch means the id was issued by a different world.
	ErrWorldMismatch = errors.New("boxdd: id belongs to a different world")

	// ErrInvalidDefinition means a definition failed field-combination
	// validation at creation time.
	ErrInvalidDefinition = errors.New("boxdd: invalid definition")
)

// InitError reports why a world could not be created.
type InitError struct {
	Reason string
}

func (e *InitError) Error() string {
	return "boxdd: world init: " + e.Reason
}

// SnapshotError reports a structural problem in a snapshot, such as an
// unknown shape or joint kind.
type SnapshotError struct {
	Kind   string
	Detail string
}

func (e *SnapshotError) Error() string {
	if e.Kind == "" {
		return "boxdd: snapshot: " + e.Detail
	}
	return fmt.Sprintf("boxdd: snapshot: %s: %s", e.Kind, e.Detail)
}

package rmw

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEntity is returned for entities that were finalized or never
	// belonged to this runtime.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTimeout is returned by WaitSet.Wait when the timeout elapses with
	// nothing ready.
	ErrTimeout = errors.New("wait timed out")

	// ErrWaitSetFull is returned when adding more entities of a kind than the
	// wait set was sized for.
	ErrWaitSetFull = errors.New("wait set full")

	// ErrInUse is returned when finalizing an entity an in-flight wait
	// references.
	ErrInUse = errors.New("entity in use by a wait")

	// ErrTypeMismatch is returned when an endpoint joins a topic or service
	// with a different type name than the existing endpoints.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Error records the failed operation and the entity it was applied to.
type Error struct {
	Op  string // e.g. "wait", "finalize_subscription"
	GID GID    // zero when no entity is involved
	Err error
}

func (e *Error) Error() string {
	if e.GID.IsZero() {
		return fmt.Sprintf("rmw %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rmw %s %s: %v", e.Op, e.GID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a wait timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a character or session lookup miss. User-facing.
var ErrNotFound = errors.New("not found")

// TurnViolationError reports an out-of-turn action. User-facing and
// non-fatal; no state was changed and no narration call was made.
type TurnViolationError struct {
	Actor   string
	Current string
}

func (e *TurnViolationError) Error() string {
	return fmt.Sprintf("it is not %s's turn; current turn: %s", e.Actor, e.Current)
}

// NarrationError wraps a narration service failure. The unit of work
// committed nothing; the user may re-send the action. Never auto-retried.
type NarrationError struct {
	Err error
}

func (e *NarrationError) Error() string { return fmt.Sprintf("narration failed: %v", e.Err) }
func (e *NarrationError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. Fatal to the unit of work and
// surfaced to both the operator log and the user, because narration
// already shown to players may not have been saved.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("state not persisted: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

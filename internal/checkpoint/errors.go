package checkpoint

import "fmt"

// InvariantError reports a checkpoint that would move backwards outside a
// rollback, or a stored checkpoint that disagrees with what was committed.
// It is fatal: continuing could silently drop or duplicate effects.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("checkpoint invariant violated during %s: %s", e.Op, e.Reason)
}

func invariantf(op, format string, args ...any) error {
	return &InvariantError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

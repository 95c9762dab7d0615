package task

import "sync/atomic"

// CancelToken is the level-triggered cancellation flag shared between the
// orchestrator (the only writer) and the pipeline worker (the only reader).
// One token is allocated per task attempt and never reused. The worker polls
// it between stages only; an in-flight engine call is never interrupted.
type CancelToken struct {
	set atomic.Bool
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Set marks the token. Setting an already-set token is a no-op.
func (t *CancelToken) Set() {
	t.set.Store(true)
}

// IsSet reports whether cancellation has been requested.
func (t *CancelToken) IsSet() bool {
	return t.set.Load()
}

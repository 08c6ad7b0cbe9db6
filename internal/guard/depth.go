// Package guard stops runaway dispatch cascades.
//
// Listeners and middleware may dispatch while a dispatch is in progress.
// A listener that dispatches on every notification never terminates on
// its own; the depth limit turns that into an error at a fixed nesting
// level instead of a stack overflow.
package guard

import (
	"errors"
	"fmt"

	"github.com/roach88/statecore"
)

// DefaultMaxDepth is the nesting limit used by the command line and the
// scenario harness.
const DefaultMaxDepth = 64

// DepthExceededError is returned by a dispatch nested deeper than the limit.
// Outer dispatches already in progress are unaffected.
type DepthExceededError struct {
	ActionType string // type of the rejected action, empty for non-actions
	Depth      int    // nesting level the rejected dispatch would have run at
	Limit      int
}

// Error implements the error interface.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("dispatch of %q exceeded max nesting depth: %d > %d",
		e.ActionType, e.Depth, e.Limit)
}

// IsDepthExceeded returns true if err is or wraps a DepthExceededError.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}

// MaxDepth returns a middleware that rejects a dispatch when limit
// dispatches are already in progress on the same store. Install it first
// so it sees every nested dispatch. limit < 1 is treated as 1.
//
// Each store gets its own counter. Like the store itself, the counter is
// not safe for concurrent dispatch.
func MaxDepth(limit int) statecore.Middleware {
	if limit < 1 {
		limit = 1
	}
	return func(statecore.MiddlewareAPI) func(next statecore.DispatchFunc) statecore.DispatchFunc {
		depth := 0
		return func(next statecore.DispatchFunc) statecore.DispatchFunc {
			return func(v any) (any, error) {
				if depth >= limit {
					rejected := &DepthExceededError{Depth: depth + 1, Limit: limit}
					if action, ok := v.(statecore.Action); ok {
						rejected.ActionType = action.Type
					}
					return nil, rejected
				}
				depth++
				defer func() { depth-- }()
				return next(v)
			}
		}
	}
}

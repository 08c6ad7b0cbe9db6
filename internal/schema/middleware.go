package schema

import (
	"errors"

	"github.com/roach88/statecore"
)

// Middleware validates the store state after every dispatch the rest of the
// chain completed. A violation is returned as the dispatch error with
// ActionType set; the state is not rolled back.
func Middleware(s *Schema) statecore.Middleware {
	return func(api statecore.MiddlewareAPI) func(next statecore.DispatchFunc) statecore.DispatchFunc {
		return func(next statecore.DispatchFunc) statecore.DispatchFunc {
			return func(v any) (any, error) {
				result, err := next(v)
				if err != nil {
					return result, err
				}
				if err := s.Validate(api.GetState()); err != nil {
					var violation *ViolationError
					if errors.As(err, &violation) {
						if action, ok := v.(statecore.Action); ok {
							violation.ActionType = action.Type
						}
					}
					return result, err
				}
				return result, nil
			}
		}
	}
}

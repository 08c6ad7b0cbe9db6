package statecore

// ActionCreator builds a value to dispatch from arbitrary arguments.
type ActionCreator func(args ...any) any

// BoundActionCreator calls an ActionCreator and dispatches its result.
type BoundActionCreator func(args ...any) (any, error)

// BindActionCreator wraps creator so that calling it dispatches its result.
func BindActionCreator(creator ActionCreator, dispatch DispatchFunc) BoundActionCreator {
	return func(args ...any) (any, error) {
		return dispatch(creator(args...))
	}
}

// BindActionCreators binds every non-nil creator in creators.
func BindActionCreators(creators map[string]ActionCreator, dispatch DispatchFunc) map[string]BoundActionCreator {
	bound := make(map[string]BoundActionCreator, len(creators))
	for name, creator := range creators {
		if creator == nil {
			continue
		}
		bound[name] = BindActionCreator(creator, dispatch)
	}
	return bound
}

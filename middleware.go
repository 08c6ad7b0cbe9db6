package statecore

// MiddlewareAPI is the view of the store handed to each middleware.
type MiddlewareAPI interface {
	GetState() State

	// Dispatch sends an action through the whole middleware chain.
	Dispatch(action any) (any, error)
}

// Middleware wraps dispatch. Given the store API, it returns a function
// that, given the next dispatch in the chain, returns this layer's dispatch.
// A layer may forward to next, transform the action, or return something
// else entirely.
type Middleware func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc

// ApplyMiddleware returns an enhancer that interposes middlewares between
// callers and the store's raw dispatch. The first middleware is outermost:
// the enhanced dispatch is Compose(m1(api), ..., mK(api))(rawDispatch).
//
// The enhanced store is otherwise the raw store; only Dispatch changes.
func ApplyMiddleware(middlewares ...Middleware) Enhancer {
	middlewares = append([]Middleware(nil), middlewares...)

	return func(next StoreCreator) StoreCreator {
		return func(reducer Reducer, preloaded State) (Store, error) {
			raw, err := next(reducer, preloaded)
			if err != nil {
				return nil, err
			}

			// Middlewares receive the API before the chain exists, so the API
			// forwards through a variable that is swapped in afterwards.
			dispatch := DispatchFunc(func(any) (any, error) {
				return nil, newError(ErrCodeDispatchDuringSetup,
					"dispatching while constructing your middleware is not allowed; "+
						"other middleware would not be applied to this dispatch")
			})
			api := &middlewareAPI{
				getState: raw.GetState,
				dispatch: func(action any) (any, error) { return dispatch(action) },
			}

			chain := make([]func(DispatchFunc) DispatchFunc, len(middlewares))
			for i, mw := range middlewares {
				chain[i] = mw(api)
			}
			dispatch = Compose(chain...)(raw.Dispatch)

			return &enhancedStore{Store: raw, dispatch: dispatch}, nil
		}
	}
}

type middlewareAPI struct {
	getState func() State
	dispatch DispatchFunc
}

func (m *middlewareAPI) GetState() State                  { return m.getState() }
func (m *middlewareAPI) Dispatch(action any) (any, error) { return m.dispatch(action) }

// enhancedStore replaces Dispatch on an underlying store.
type enhancedStore struct {
	Store
	dispatch DispatchFunc
}

func (s *enhancedStore) Dispatch(action any) (any, error) {
	return s.dispatch(action)
}

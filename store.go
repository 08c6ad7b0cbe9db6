package statecore

import (
	"log/slog"
)

// State is an application-defined value tree. A nil State means "absent".
// States are never mutated in place: reducers return the same value for a
// no-op or a newly built value for a change.
type State = any

// Reducer computes the next state from the previous state and an action.
//
// Contract:
//   - never returns a nil state
//   - given a nil previous state, returns the initial state whatever the action
//   - given an action it does not recognize, returns state unchanged
//
// A returned error aborts the dispatch; the store keeps its previous state.
type Reducer func(state State, action Action) (State, error)

// Listener is invoked after every successful dispatch.
type Listener func()

// DispatchFunc sends a value down a dispatch chain. The raw store's dispatch
// accepts only Action values and returns the action it was given; middleware
// may accept other values and return anything.
type DispatchFunc func(action any) (any, error)

// Store owns one state value and the reducer that transitions it.
//
// Thread-safety: a Store is not safe for concurrent use. All calls are
// expected from one goroutine; reentrancy from within a reducer is detected
// and rejected by Dispatch.
type Store interface {
	// Dispatch reduces action into the current state and notifies listeners.
	Dispatch(action any) (any, error)

	// Subscribe registers a listener and returns an idempotent unsubscribe func.
	Subscribe(listener Listener) (func(), error)

	// GetState returns the current state. It may be called at any time,
	// including from listeners and middleware.
	GetState() State

	// ReplaceReducer swaps the active reducer and re-initializes state with it.
	ReplaceReducer(next Reducer) error

	// Observable returns a minimal reactive adapter over Subscribe.
	Observable() Observable
}

// StoreCreator constructs a store from a reducer and a preloaded state.
type StoreCreator func(reducer Reducer, preloaded State) (Store, error)

// Enhancer wraps a StoreCreator to add cross-cutting behavior.
type Enhancer func(next StoreCreator) StoreCreator

// New creates a store.
//
// If WithEnhancer is given, construction is delegated entirely to
// enhancer(createStore)(reducer, preloadedState). Otherwise a plain store is
// built and the private INIT action is dispatched once so the reducer reports
// its initial state before New returns.
func New(reducer Reducer, opts ...Option) (Store, error) {
	o := buildOptions(opts)

	if o.enhancerSet {
		if o.enhancer == nil {
			return nil, newError(ErrCodeInvalidEnhancer, "expected the enhancer to be a function")
		}
		return o.enhancer(rawCreator(o.logger))(reducer, o.preloaded)
	}

	return rawCreator(o.logger)(reducer, o.preloaded)
}

// rawCreator returns the StoreCreator that enhancers receive.
func rawCreator(logger *slog.Logger) StoreCreator {
	return func(reducer Reducer, preloaded State) (Store, error) {
		s, err := createStore(reducer, preloaded, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// subscription is one registered listener. Listeners are compared by entry
// pointer since Go funcs are not comparable.
type subscription struct {
	listener Listener
}

// store is the plain Store implementation.
//
// INVARIANTS:
//   - state is never nil once createStore returns
//   - dispatching is true only while reducer is executing
//   - current is the listener snapshot of the last dispatch; next is the list
//     Subscribe and unsubscribe mutate. When nextShared is true they alias the
//     same backing array and next must be copied before it is written.
type store struct {
	reducer     Reducer
	state       State
	current     []*subscription
	next        []*subscription
	nextShared  bool
	dispatching bool
	logger      *slog.Logger
}

func createStore(reducer Reducer, preloaded State, logger *slog.Logger) (*store, error) {
	if reducer == nil {
		return nil, newError(ErrCodeInvalidReducer, "expected the root reducer to be a function")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &store{
		reducer: reducer,
		state:   preloaded,
		logger:  logger,
	}

	// Every reducer reports its initial state before the store is handed out.
	if _, err := s.Dispatch(InitAction()); err != nil {
		return nil, err
	}

	logger.Debug("store created", "state_type", typeName(s.state))
	return s, nil
}

// GetState returns the current state reference.
func (s *store) GetState() State {
	return s.state
}

// Dispatch validates action, runs the reducer, then notifies every listener
// that was subscribed when this dispatch began, in registration order.
// Returns the action unchanged.
//
// Listeners may dispatch again; a nested dispatch completes, including its
// own notification pass, before the outer pass continues.
func (s *store) Dispatch(action any) (any, error) {
	a, err := asAction(action)
	if err != nil {
		return nil, err
	}

	if s.dispatching {
		return nil, &Error{
			Code:       ErrCodeReentrantDispatch,
			Message:    "reducers may not dispatch actions",
			ActionType: a.Type,
		}
	}

	// Freeze the snapshot before reducing: listeners added from here on,
	// by middleware or the reducer, wait for the next dispatch.
	listeners := s.next
	s.current = listeners
	s.nextShared = true

	if err := s.reduce(a); err != nil {
		return nil, err
	}
	for _, sub := range listeners {
		sub.listener()
	}

	return action, nil
}

// reduce runs the reducer under the reentrancy flag. The flag is cleared on
// every exit path, including a panicking reducer.
func (s *store) reduce(a Action) error {
	s.dispatching = true
	defer func() { s.dispatching = false }()

	next, err := s.reducer(s.state, a)
	if err != nil {
		return err
	}
	if next == nil {
		return &Error{
			Code:       ErrCodeUndefinedState,
			Message:    "the root reducer returned a nil state; return the previous state to ignore an action",
			ActionType: a.Type,
		}
	}

	s.state = next
	return nil
}

// Subscribe adds listener to the list used from the next dispatch onward.
func (s *store) Subscribe(listener Listener) (func(), error) {
	if listener == nil {
		return nil, newError(ErrCodeInvalidListener, "expected the listener to be a function")
	}

	sub := &subscription{listener: listener}
	s.ensureNextWritable()
	s.next = append(s.next, sub)

	subscribed := true
	return func() {
		if !subscribed {
			return
		}
		subscribed = false

		s.ensureNextWritable()
		for i, candidate := range s.next {
			if candidate == sub {
				s.next = append(s.next[:i], s.next[i+1:]...)
				break
			}
		}
	}, nil
}

// ensureNextWritable copies next when it is still the snapshot an in-flight
// or completed dispatch iterated over.
func (s *store) ensureNextWritable() {
	if !s.nextShared {
		return
	}
	next := make([]*subscription, len(s.current))
	copy(next, s.current)
	s.next = next
	s.nextShared = false
}

// ReplaceReducer swaps the reducer and immediately dispatches INIT so the new
// reducer can populate or reshape state.
func (s *store) ReplaceReducer(next Reducer) error {
	if next == nil {
		return newError(ErrCodeInvalidReducer, "expected the next reducer to be a function")
	}

	s.reducer = next
	if _, err := s.Dispatch(InitAction()); err != nil {
		return err
	}

	s.logger.Debug("reducer replaced", "state_type", typeName(s.state))
	return nil
}

// Observable returns the reactive adapter for this store.
func (s *store) Observable() Observable {
	return &observable{store: s}
}

// Package statecore implements a predictable state container.
//
// A Store owns a single state value that changes only when an Action is
// dispatched through a pure Reducer. Listeners are notified synchronously
// after every successful dispatch.
//
// ARCHITECTURE:
//
// Dispatch Flow:
//  1. Caller invokes Store.Dispatch(action)
//  2. The value passes through the middleware chain, if ApplyMiddleware was installed
//  3. The raw dispatch validates the action and runs the reducer under the reentrancy flag
//  4. The listener snapshot taken at this point is notified in registration order
//
// Composition:
//   - Combine builds one reducer from per-key slice reducers
//   - Compose chains single-argument functions right to left
//   - ApplyMiddleware and ComposeEnhancers extend store construction
//
// CRITICAL PATTERNS:
//
// Reentrancy:
// A reducer may not dispatch. Middleware and listeners may, and a nested
// dispatch runs to completion, notification included, before the outer
// dispatch resumes. GetState is never guarded.
//
// Listener Snapshots:
// Dispatch N notifies exactly the listeners registered before it began.
// Subscribing or unsubscribing during a notification pass affects dispatch
// N+1 onward. The list is copied on first write rather than locked.
//
// No-op Detection:
// A reducer that ignores an action returns its input unchanged; Combine
// preserves this, so Same(before, after) identifies a no-op dispatch.
//
// Build Modes:
// Advisory warnings and shape checks run in Development only. Building with
// -tags production selects the lean path; fatal checks always run.
//
// Asynchronous actions, persistence, and undo are not built in. They are
// layered on with middleware and enhancers.
package statecore

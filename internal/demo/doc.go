// Package demo provides the sample reducers used by the command line and
// the scenario harness.
//
// Reducers are registered by name:
//   - counter: an integer with INCREMENT, DECREMENT, ADD{amount}, and RESET
//   - todos: a list of {text, done} items with ADD_TODO{text},
//     TOGGLE_TODO{index}, and REMOVE_TODO{index}
//   - app: counter and todos combined under the keys "counter" and "todos"
//
// Every reducer returns its input unchanged for actions it does not handle,
// and produces its initial state when given nil.
package demo

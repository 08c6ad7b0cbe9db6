package demo

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/schema"
)

//go:embed app.cue
var appSchema []byte

// App combines Counter and Todos under "counter" and "todos".
func App(opts ...statecore.CombineOption) statecore.Reducer {
	return statecore.Combine([]statecore.Slice{
		statecore.On("counter", Counter),
		statecore.On("todos", Todos),
	}, opts...)
}

// Factory builds a named reducer. Combine options are ignored by reducers
// that do not combine.
type Factory func(opts ...statecore.CombineOption) statecore.Reducer

var registry = map[string]Factory{
	"counter": func(...statecore.CombineOption) statecore.Reducer { return Counter },
	"todos":   func(...statecore.CombineOption) statecore.Reducer { return Todos },
	"app":     App,
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown reducer %q (available: %v)", name, Names())
	}
	return f, nil
}

// Names returns the registered reducer names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AppSchema returns the CUE schema for App's state.
func AppSchema() (*schema.Schema, error) {
	return schema.Compile(appSchema, "app.cue")
}

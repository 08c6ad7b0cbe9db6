package statecore

import "log/slog"

// Option configures store construction.
type Option func(*options)

type options struct {
	preloaded   State
	enhancer    Enhancer
	enhancerSet bool
	logger      *slog.Logger
}

// WithPreloadedState seeds the store with an initial state before the
// private INIT action runs. Reducers receive it as their previous state.
func WithPreloadedState(state State) Option {
	return func(o *options) {
		o.preloaded = state
	}
}

// WithEnhancer hands store construction to enhancer. New then returns
// whatever enhancer(createStore)(reducer, preloadedState) returns.
//
// A nil enhancer is reported by New as INVALID_ENHANCER.
// Use ComposeEnhancers to install more than one.
func WithEnhancer(enhancer Enhancer) Option {
	return func(o *options) {
		o.enhancer = enhancer
		o.enhancerSet = true
	}
}

// WithLogger sets the logger for store lifecycle records.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

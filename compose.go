package statecore

import "slices"

// Compose composes single-argument functions from right to left.
// Compose(f, g, h)(x) is f(g(h(x))).
//
// With no functions Compose returns the identity; with one it returns that
// function itself.
func Compose[F ~func(T) T, T any](fns ...F) F {
	switch len(fns) {
	case 0:
		return F(func(x T) T { return x })
	case 1:
		return fns[0]
	}

	fns = slices.Clone(fns)
	return F(func(x T) T {
		for i := len(fns) - 1; i >= 0; i-- {
			x = fns[i](x)
		}
		return x
	})
}

// ComposeTail composes fns right to left on top of last, whose argument type
// may differ from the rest. ComposeTail([]func(T) T{f, g}, h)(a) is f(g(h(a))).
//
// Callers needing a rightmost function of several arguments pass them as one
// struct-typed argument.
func ComposeTail[A, T any](fns []func(T) T, last func(A) T) func(A) T {
	outer := Compose(fns...)
	return func(a A) T {
		return outer(last(a))
	}
}

// ComposeEnhancers composes store enhancers right to left, so the leftmost
// enhancer sees the final store.
func ComposeEnhancers(enhancers ...Enhancer) Enhancer {
	return Compose(enhancers...)
}

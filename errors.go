package statecore

import (
	"errors"
	"fmt"
)

// Error is returned for every fatal condition raised by the store, Combine,
// and ApplyMiddleware. Nothing is retried or swallowed: the error reaches the
// direct caller of New, Dispatch, Subscribe, or ReplaceReducer.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key names the slice reducer involved, for Combine errors.
	Key string

	// ActionType is the discriminant of the action being reduced, if any.
	ActionType string
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeInvalidReducer indicates a nil reducer was passed to New or ReplaceReducer.
	ErrCodeInvalidReducer ErrorCode = "INVALID_REDUCER"

	// ErrCodeInvalidEnhancer indicates WithEnhancer was given a nil enhancer.
	ErrCodeInvalidEnhancer ErrorCode = "INVALID_ENHANCER"

	// ErrCodeInvalidListener indicates Subscribe was given a nil listener.
	ErrCodeInvalidListener ErrorCode = "INVALID_LISTENER"

	// ErrCodeInvalidObserver indicates the observable adapter was given a nil observer.
	ErrCodeInvalidObserver ErrorCode = "INVALID_OBSERVER"

	// ErrCodeInvalidAction indicates the dispatched value is not an Action.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// ErrCodeMissingType indicates the dispatched action has an empty Type.
	ErrCodeMissingType ErrorCode = "MISSING_ACTION_TYPE"

	// ErrCodeReentrantDispatch indicates Dispatch was called while a reducer was running.
	ErrCodeReentrantDispatch ErrorCode = "REENTRANT_DISPATCH"

	// ErrCodeDispatchDuringSetup indicates a middleware dispatched while the chain was being built.
	ErrCodeDispatchDuringSetup ErrorCode = "DISPATCH_DURING_SETUP"

	// ErrCodeReducerShape indicates a slice reducer failed the startup probe.
	ErrCodeReducerShape ErrorCode = "REDUCER_SHAPE"

	// ErrCodeUndefinedState indicates a reducer returned a nil state.
	ErrCodeUndefinedState ErrorCode = "UNDEFINED_STATE"
)

// Category groups error codes by when they surface.
type Category string

const (
	// CategoryConfiguration errors surface at setup or first dispatch.
	CategoryConfiguration Category = "configuration"

	// CategoryUsage errors surface on a single misused call.
	CategoryUsage Category = "usage"

	// CategoryContract errors are reducer contract violations found while dispatching.
	CategoryContract Category = "contract"
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch c {
	case ErrCodeInvalidReducer, ErrCodeInvalidEnhancer, ErrCodeReducerShape:
		return CategoryConfiguration
	case ErrCodeUndefinedState:
		return CategoryContract
	default:
		return CategoryUsage
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.ActionType != "":
		return fmt.Sprintf("%s: %s (key=%s, action=%s)", e.Code, e.Message, e.Key, e.ActionType)
	case e.Key != "":
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	case e.ActionType != "":
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.ActionType)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsReentrantError reports whether err is a reentrant dispatch error.
// Uses errors.As to handle wrapped errors.
func IsReentrantError(err error) bool {
	return CodeOf(err) == ErrCodeReentrantDispatch
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	code := CodeOf(err)
	return code != "" && code.Category() == CategoryConfiguration
}

// IsContractError reports whether err is a reducer contract violation.
func IsContractError(err error) bool {
	code := CodeOf(err)
	return code != "" && code.Category() == CategoryContract
}

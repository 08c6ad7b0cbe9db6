// Package logging wires log/slog into stores: a dispatch-logging middleware
// and the handler setup shared by the command line.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/statecore"
)

// NewLogger returns a logger writing to w. verbose lowers the level to
// Debug; json selects the JSON handler instead of text.
func NewLogger(w io.Writer, verbose, json bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Option configures Middleware.
type Option func(*middleware)

// WithStates includes the previous and next state on each Debug record.
func WithStates() Option {
	return func(m *middleware) {
		m.states = true
	}
}

// WithContext sets the context passed to the handler. Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(m *middleware) {
		m.ctx = ctx
	}
}

type middleware struct {
	logger *slog.Logger
	ctx    context.Context
	states bool
	seq    atomic.Int64
}

// Middleware returns a statecore middleware that logs every dispatch.
// Successful dispatches are Debug records; failures are Warn records
// carrying the error.
func Middleware(logger *slog.Logger, opts ...Option) statecore.Middleware {
	m := &middleware{logger: logger, ctx: context.Background()}
	for _, opt := range opts {
		opt(m)
	}

	return func(api statecore.MiddlewareAPI) func(next statecore.DispatchFunc) statecore.DispatchFunc {
		return func(next statecore.DispatchFunc) statecore.DispatchFunc {
			return func(v any) (any, error) {
				seq := m.seq.Add(1)
				prev := api.GetState()
				start := time.Now()

				result, err := next(v)

				attrs := []slog.Attr{
					slog.Int64("seq", seq),
					slog.String("action_type", describe(v)),
					slog.Duration("duration", time.Since(start)),
				}
				if err != nil {
					attrs = append(attrs, slog.Any("error", err))
					m.logger.LogAttrs(m.ctx, slog.LevelWarn, "dispatch failed", attrs...)
					return result, err
				}

				if m.states {
					attrs = append(attrs,
						slog.Any("prev_state", prev),
						slog.Any("next_state", api.GetState()),
					)
				}
				m.logger.LogAttrs(m.ctx, slog.LevelDebug, "dispatch", attrs...)
				return result, nil
			}
		}
	}
}

func describe(v any) string {
	if action, ok := v.(statecore.Action); ok {
		return action.Type
	}
	return fmt.Sprintf("non-action %T", v)
}

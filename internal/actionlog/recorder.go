package actionlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/ir"
)

// SessionGenerator produces session tokens identifying one writer.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so sessions sort
// by creation time when the log is inspected by hand.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSessionGenerator sets the session token source.
// Default: UUIDv7Generator.
func WithSessionGenerator(gen SessionGenerator) RecorderOption {
	return func(r *Recorder) {
		r.sessions = gen
	}
}

// WithStartSeq numbers the recorder's first record last+1.
// Default: one past the highest seq already in the log.
func WithStartSeq(last int64) RecorderOption {
	return func(r *Recorder) {
		r.seq.Store(last)
		r.seqSet = true
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// Recorder appends every successfully reduced action to a Log.
type Recorder struct {
	log      *Log
	ctx      context.Context
	session  string
	sessions SessionGenerator
	seq      atomic.Int64 // last seq handed out
	seqSet   bool
	logger   *slog.Logger
}

// NewRecorder creates a recorder writing to log under a fresh session.
// ctx bounds every write the recorder performs.
func NewRecorder(ctx context.Context, log *Log, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		log:      log,
		ctx:      ctx,
		sessions: UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.seqSet {
		last, err := log.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("new recorder: %w", err)
		}
		r.seq.Store(last)
	}
	r.session = r.sessions.Generate()
	return r, nil
}

// Session returns the token stamped on every record this recorder writes.
func (r *Recorder) Session() string {
	return r.session
}

// Enhancer returns a store enhancer that logs each action at the moment
// the reducer accepts it, before any listener runs. Actions dispatched by
// listeners are therefore logged after the action that triggered them, and
// every record hashes the state its own action produced.
//
// Reserved store actions are not recorded. An action the reducer rejects is
// not recorded. A payload that cannot be logged, or a failed write, rejects
// the action, so the store never holds state the log does not describe.
// ReplaceReducer on the returned store keeps recording with the new reducer.
func (r *Recorder) Enhancer() statecore.Enhancer {
	return func(next statecore.StoreCreator) statecore.StoreCreator {
		return func(reducer statecore.Reducer, preloaded statecore.State) (statecore.Store, error) {
			s, err := next(r.wrap(reducer), preloaded)
			if err != nil {
				return nil, err
			}
			return &recordedStore{Store: s, recorder: r}, nil
		}
	}
}

type recordedStore struct {
	statecore.Store
	recorder *Recorder
}

func (s *recordedStore) ReplaceReducer(next statecore.Reducer) error {
	return s.Store.ReplaceReducer(s.recorder.wrap(next))
}

// wrap logs every action reducer accepts. A nil reducer stays nil so the
// store reports it.
func (r *Recorder) wrap(reducer statecore.Reducer) statecore.Reducer {
	if reducer == nil {
		return nil
	}
	return func(state statecore.State, action statecore.Action) (statecore.State, error) {
		if statecore.IsReservedType(action.Type) {
			return reducer(state, action)
		}
		payload, err := normalizePayload(action.Payload)
		if err != nil {
			return nil, fmt.Errorf("actionlog: %s: %w", action.Type, err)
		}

		next, err := reducer(state, action)
		if err != nil || next == nil {
			return next, err
		}
		if err := r.record(action.Type, payload, next); err != nil {
			return nil, err
		}
		return next, nil
	}
}

func (r *Recorder) record(actionType string, payload map[string]any, state statecore.State) error {
	stateHash, err := ir.StateHash(state)
	if err != nil {
		return fmt.Errorf("actionlog: %s: state: %w", actionType, err)
	}

	seq := r.seq.Add(1)
	id, err := ir.ActionID(r.session, seq, actionType, payload)
	if err != nil {
		return fmt.Errorf("actionlog: %s: %w", actionType, err)
	}

	rec := Record{
		ID:        id,
		Session:   r.session,
		Seq:       seq,
		Type:      actionType,
		Payload:   payload,
		StateHash: stateHash,
	}
	if err := r.log.Append(r.ctx, rec); err != nil {
		return fmt.Errorf("actionlog: %w", err)
	}

	r.logger.Debug("action recorded",
		"seq", seq,
		"action_type", actionType,
		"id", id,
	)
	return nil
}

func normalizePayload(payload map[string]any) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	n, err := ir.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return n.(map[string]any), nil
}

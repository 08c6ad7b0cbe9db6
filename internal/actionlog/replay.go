package actionlog

import (
	"context"
	"fmt"

	"github.com/roach88/statecore"
	"github.com/roach88/statecore/internal/ir"
)

// Mismatch describes a record whose logged state hash differs from the
// state reached by replaying it.
type Mismatch struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"id"`
	Type   string `json:"type"`
	Logged string `json:"logged"`
	Actual string `json:"actual"`
}

// ReplayResult is the outcome of Replay.
type ReplayResult struct {
	State      statecore.State `json:"state"`
	Applied    int             `json:"applied"`
	Mismatches []Mismatch      `json:"mismatches"`
}

// Replay rebuilds state by dispatching every logged action, in log order,
// into a fresh store created with reducer and opts.
//
// After each action the resulting state hash is compared with the one
// recorded; differences are reported in Mismatches rather than stopping
// the replay. A reducer error stops the replay and is returned.
func Replay(ctx context.Context, log *Log, reducer statecore.Reducer, opts ...statecore.Option) (*ReplayResult, error) {
	records, err := log.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	s, err := statecore.New(reducer, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{Mismatches: []Mismatch{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		if _, err := s.Dispatch(statecore.NewAction(rec.Type, rec.Payload)); err != nil {
			return nil, fmt.Errorf("replay: seq %d (%s): %w", rec.Seq, rec.Type, err)
		}
		result.Applied++

		actual, err := ir.StateHash(s.GetState())
		if err != nil {
			return nil, fmt.Errorf("replay: seq %d: %w", rec.Seq, err)
		}
		if actual != rec.StateHash {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:    rec.Seq,
				ID:     rec.ID,
				Type:   rec.Type,
				Logged: rec.StateHash,
				Actual: actual,
			})
		}
	}

	result.State = s.GetState()
	return result, nil
}

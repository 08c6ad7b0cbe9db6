package actionlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore"
)

// createTestLog opens a file-backed log under t.TempDir.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// fixedSessions returns predetermined session tokens.
type fixedSessions []string

func (f *fixedSessions) Generate() string {
	token := (*f)[0]
	*f = (*f)[1:]
	return token
}

func counter(state statecore.State, action statecore.Action) (statecore.State, error) {
	n, _ := state.(int)
	switch action.Type {
	case "INC":
		return n + 1, nil
	case "ADD":
		amount, _ := action.GetInt("amount")
		return n + amount, nil
	}
	if state == nil {
		return 0, nil
	}
	return state, nil
}

// recordingStore builds a counter store whose dispatches are logged to l.
func recordingStore(t *testing.T, l *Log, session string) (statecore.Store, *Recorder) {
	t.Helper()
	sessions := fixedSessions{session}
	rec, err := NewRecorder(context.Background(), l, WithSessionGenerator(&sessions))
	require.NoError(t, err)

	s, err := statecore.New(counter, statecore.WithEnhancer(rec.Enhancer()))
	require.NoError(t, err)
	return s, rec
}

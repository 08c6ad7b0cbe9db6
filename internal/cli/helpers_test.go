package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// execute runs cmd with args and returns stdout, stderr, and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), errBuf.String(), err
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }

func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// dispatchAll runs the dispatch command once per action against db.
func dispatchAll(t *testing.T, db, reducer string, actions ...[]string) {
	t.Helper()
	for _, action := range actions {
		args := append([]string{"--db", db, "--reducer", reducer}, action...)
		_, _, err := execute(t, NewDispatchCommand(textOpts()), args...)
		require.NoError(t, err, "dispatch %v", action)
	}
}

const passingScenario = `name: counting
description: increments and adds
reducer: counter
steps:
  - dispatch: INCREMENT
    expect_state: 1
  - dispatch: ADD
    payload:
      amount: 2
    expect_state: 3
assertions:
  - type: final_state
    expect: 3
`

const failingScenario = `name: wrong_total
description: expects a total the steps never reach
reducer: counter
steps:
  - dispatch: INCREMENT
assertions:
  - type: final_state
    expect: 10
`

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const passingScenario = `name: greet
description: Stored user is visible to expressions
policy: now
store:
  - key: user
    value: alice
checks:
  - describe: user is alice
    expect: user == "alice"
`

const failingScenario = `name: wrong_user
description: A check that cannot hold
store:
  - key: user
    value: alice
checks:
  - describe: user is bob
    expect: user == "bob"
`

const expectedFailureScenario = `name: known_bad
description: Fails once under the batch policy, as expected
policy: batch
store:
  - key: count
    value: 1
checks:
  - describe: count is 2
    expect: count == 2
  - describe: count is 1
    expect: count == 1
expect_failures: 1
`

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args against a fresh command tree and returns
// the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "previewtrail", cmd.Use)
	assert.Contains(t, cmd.Long, "marketing")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"persist", "record", "history", "analytics"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestRecordSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"governance", "delta", "remediation", "note"} {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{"record", name})
			require.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	_, err := execute(t, "--format", "xml", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestPersistCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	persistCmd, _, err := cmd.Find([]string{"persist"})
	require.NoError(t, err)

	manifestFlag := persistCmd.Flags().Lookup("manifest")
	require.NotNil(t, manifestFlag)
	// --manifest is required, so default is empty
	assert.Equal(t, "", manifestFlag.DefValue)

	limitFlag := persistCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "0", limitFlag.DefValue)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	for _, name := range []string{"route", "variant", "limit", "offset"} {
		require.NotNil(t, historyCmd.Flags().Lookup(name), "flag --%s missing", name)
	}
}

func TestRecordGovernanceFlags(t *testing.T) {
	cmd := NewRootCommand()
	govCmd, _, err := cmd.Find([]string{"record", "governance"})
	require.NoError(t, err)

	for _, name := range []string{"id", "manifest", "actor", "at", "kind", "meta"} {
		require.NotNil(t, govCmd.Flags().Lookup(name), "flag --%s missing", name)
	}
}

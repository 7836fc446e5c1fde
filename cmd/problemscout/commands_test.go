package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--plain"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsAgainstSQLiteFile(t *testing.T) {
	t.Setenv("PROBLEMSCOUT_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "scout.db"))
	t.Setenv("ANALYZER_PROVIDER", "none")
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	out, err = run(t, "export", "problems", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "id,origin,channel"), out)

	out, err = run(t, "cluster")
	require.NoError(t, err)
	assert.Contains(t, out, "Clusters (0)")

	out, err = run(t, "match", "missing-id")
	require.NoError(t, err)
	assert.Contains(t, out, "Matches for missing-id (0)")

	_, err = run(t, "export", "votes", "--format", "json")
	require.Error(t, err)

	_, err = run(t, "export", "problems", "--format", "xml")
	require.Error(t, err)
}

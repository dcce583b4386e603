package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	verbose, quiet, jsonOut = false, false, false
	runRegionSize, runUseMmap, runValidateEach, runDump = 1<<20, false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_Text(t *testing.T) {
	path := writeScript(t, "simple.script", "a 0 100\na 1 200\nf 0\nr 1 400\nf 1\n")

	out, err := executeCommand(t, "run", "--region-size", "1024", "--validate-each", path)
	require.NoError(t, err)

	assert.Contains(t, out, path)
	assert.Contains(t, out, "requests:    5")
	assert.Contains(t, out, "peak:        400 of 1024 bytes")
	assert.Contains(t, out, "✓ valid")
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeScript(t, "simple.script", "a 0 100\na 1 16\n")

	out, err := executeCommand(t, "run", "--json", "--dump", "--region-size", "1024", path)
	require.NoError(t, err)

	var reports []runReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Equal(t, 1, len(reports))

	r := reports[0]
	assert.Equal(t, 2, r.Requests)
	assert.Equal(t, uint64(116), r.PeakPayload)
	assert.True(t, r.Valid)
	assert.Equal(t, []block{
		{Addr: 8, Size: 104, Allocated: true},
		{Addr: 120, Size: 16, Allocated: true},
		{Addr: 144, Size: 880, Allocated: false},
	}, r.Blocks)
}

func TestRunCommand_Mmap(t *testing.T) {
	path := writeScript(t, "simple.script", "a 0 4000\nr 0 9000\nf 0\n")

	out, err := executeCommand(t, "run", "--mmap", "--region-size", "65536", "--validate-each", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ valid")
}

func TestRunCommand_Failure(t *testing.T) {
	good := writeScript(t, "good.script", "a 0 16\n")
	bad := writeScript(t, "bad.script", "a 0 5000\n")

	out, err := executeCommand(t, "run", "--region-size", "1024", bad, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Contains(t, out, "bad.script")
	assert.Contains(t, out, "good.script")
}

func TestRunCommand_MissingScript(t *testing.T) {
	_, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "missing.script"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

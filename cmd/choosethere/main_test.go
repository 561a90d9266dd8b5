package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
[[restaurant]]
id = "sushi-go"
name = "Sushi Go"
category = "Japanese"
tags = ["sushi", "bar"]
price = "$$"

[[restaurant]]
id = "burger-hut"
name = "Burger Hut"
category = "American"
tags = ["burger"]
price = "$"
`

// setupEnv isolates config and data under a temp HOME.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CHOOSETHERE_STORAGE_SQLITE_PATH", filepath.Join(home, "data", "choosethere.db"))
	t.Setenv("CHOOSETHERE_STORAGE_PREFS_PATH", filepath.Join(home, "data", "prefs"))
	t.Setenv("CHOOSETHERE_LOGGING_LEVEL", "error")
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestVersionCommand(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "Version:    dev")
}

func TestCLIWorkflow(t *testing.T) {
	home := setupEnv(t)
	catalogPath := filepath.Join(home, "catalog.toml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))

	out := mustRun(t, "seed", catalogPath)
	assert.Contains(t, out, "2 inserted, 0 updated")

	out = mustRun(t, "draw", "--tag", "sushi", "--rerolls", "1")
	assert.Contains(t, out, "Draw: Sushi Go [sushi-go]")
	assert.Contains(t, out, "Re-roll 1: Sushi Go")

	out = mustRun(t, "draw", "--tag", "pizza")
	assert.Contains(t, out, "nothing matches")

	out = mustRun(t, "rate", "sushi-go", "5", "--would-return")
	assert.Contains(t, out, "Recorded visit")

	out = mustRun(t, "prefs", "show")
	assert.Contains(t, out, "sushi")
	assert.Contains(t, out, "+1.00")

	out = mustRun(t, "draw", "--rating", "only", "--json")
	assert.Contains(t, out, `"outcome": "picked"`)
	assert.Contains(t, out, `"id": "sushi-go"`, "only the rated restaurant qualifies")

	out = mustRun(t, "favorite", "sushi-go")
	assert.Contains(t, out, "sushi-go is now favorite")

	backupPath := filepath.Join(home, "backup.json")
	out = mustRun(t, "backup", "export", backupPath)
	assert.Contains(t, out, "backup written")

	out = mustRun(t, "backup", "preview", backupPath)
	assert.Contains(t, out, "restaurants: 2 (1 favorites)")
	assert.Contains(t, out, "visits:      1")

	out = mustRun(t, "backup", "import", backupPath, "--mode", "replaceAll")
	assert.Contains(t, out, "restaurants: 2 new, 0 updated")

	out = mustRun(t, "prefs", "reset")
	assert.Contains(t, out, "reset")
	out = mustRun(t, "prefs", "show")
	assert.Contains(t, out, "nothing learned yet")
}

func TestCLIErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad price", []string{"draw", "--price", "$$$$$"}, "invalid price tier"},
		{"bad rating priority", []string{"draw", "--rating", "always"}, "invalid rating priority"},
		{"negative rerolls", []string{"draw", "--rerolls", "-1"}, "cannot be negative"},
		{"non-numeric rating", []string{"rate", "x", "five"}, "rating must be a number"},
		{"out of range rating", []string{"rate", "x", "7"}, "rating must be between 1 and 5"},
		{"unknown restaurant", []string{"rate", "nope", "4"}, "not found"},
		{"unknown favorite", []string{"favorite", "nope"}, "not found"},
		{"bad import mode", []string{"backup", "import", "x.json", "--mode", "wipe"}, "invalid import mode"},
		{"missing catalog", []string{"seed", "/does/not/exist.toml"}, "invalid catalog TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %v", err)
		})
	}
}

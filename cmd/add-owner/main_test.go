package main

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "owners.db")
	stdout := new(bytes.Buffer)

	err := run([]string{"-backend", "sqlite", "-owner", "alice", "-db", dbPath}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Owner alice registered")
}

func TestRun_Duplicate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "owners.db")
	args := []string{"-backend", "sqlite", "-owner", "alice", "-db", dbPath}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)), "first run should succeed")

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err, "expected error on duplicate owner")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_OwnerFromStdin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "owners.db")
	stdout := new(bytes.Buffer)

	err := run([]string{"-backend", "sqlite", "-db", dbPath}, strings.NewReader("  bob  \n"), stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Owner bob registered")
	assert.NotContains(t, stdout.String(), "Owner: ", "no prompt when stdin is not a terminal")
}

func TestRun_MissingOwner(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	err := run([]string{"-backend", "sqlite", "-db", filepath.Join(t.TempDir(), "x.db")}, new(bytes.Buffer), stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: owner")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_BlankOwner(t *testing.T) {
	err := run([]string{"-backend", "sqlite", "-db", filepath.Join(t.TempDir(), "x.db")}, strings.NewReader("   \n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner cannot be empty")
}

func TestRun_MemoryBackendRejected(t *testing.T) {
	err := run([]string{"-backend", "memory", "-owner", "alice"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed_owners.txt")
}

func TestRun_Help(t *testing.T) {
	err := run([]string{"-h"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	assert.ErrorIs(t, err, flag.ErrHelp)
}

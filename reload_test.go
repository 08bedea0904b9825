package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReloadNoDaemonRunning(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLDERSYNC_CONFIG", filepath.Join(dir, "config.json"))

	out, err := runCLI(t, "http://unused", "reload")
	assert.Error(t, err)
	assert.Empty(t, out)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngineShutdownContextCancelsOnFirstSignal(t *testing.T) {
	// Not parallel: sends a real SIGINT to the process.
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := engineShutdownContext(parent, logger)

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of SIGINT, in-flight sync actions would never be told to drain")
	}
}

func TestEngineShutdownContextCancelsOnParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := engineShutdownContext(parent, logger)

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled within 2 seconds of parent cancel")
	}
}

func TestPidFilePathDerivesFromConfigDir(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "foldersync.pid"), pidFilePath(cfgPath))
}

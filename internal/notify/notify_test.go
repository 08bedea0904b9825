package notify

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledNotifierNeverShellsOut(t *testing.T) {
	n := New(false, nil)

	// None of these should attempt to exec anything; if they did on a CI
	// box without osascript/notify-send this test would hang or error.
	n.SyncComplete(3)
	n.Conflict("doc.txt")
	n.Error("boom")
}

func TestPlatformCommandKnownPlatforms(t *testing.T) {
	cmd := platformCommand("title", "message")

	switch runtime.GOOS {
	case "darwin":
		assert.Equal(t, "osascript", cmd[0])
		assert.Contains(t, cmd[2], "message")
	case "linux":
		assert.Equal(t, []string{"notify-send", "title", "message"}, cmd)
	default:
		assert.Nil(t, cmd)
	}
}

func TestNewWithNilLoggerFallsBackToDefault(t *testing.T) {
	n := New(true, nil)

	assert.NotNil(t, n.Logger)
	assert.True(t, n.Enabled)
}

// Package notify sends best-effort desktop notifications. It shells out to
// the platform notifier and is entirely side-effect free on platforms
// where none is available (§6: "best-effort, side-effect free on
// unsupported platforms").
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

const sendTimeout = 2 * time.Second

// Notifier sends desktop notifications when enabled, grounded on the
// osascript-based notifier this engine's predecessor used on macOS.
type Notifier struct {
	Enabled bool
	Logger  *slog.Logger
}

// New builds a Notifier. A nil logger falls back to slog.Default().
func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{Enabled: enabled, Logger: logger}
}

// SyncComplete reports a finished sync cycle; count is the number of files
// tracked after the cycle.
func (n *Notifier) SyncComplete(count int) {
	n.send("foldersync", fmt.Sprintf("Sync complete — %d file(s) tracked.", count))
}

// Conflict reports a detected two-side edit conflict.
func (n *Notifier) Conflict(path string) {
	n.send("foldersync — Conflict", fmt.Sprintf("Conflict detected: %s", path))
}

// Error reports a repeated failure (e.g. three consecutive poll failures).
func (n *Notifier) Error(msg string) {
	n.send("foldersync — Error", msg)
}

func (n *Notifier) send(title, message string) {
	if !n.Enabled {
		return
	}

	cmd := platformCommand(title, message)
	if cmd == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)

	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	if err := c.Start(); err != nil {
		cancel()
		n.Logger.Debug("notification failed", slog.String("error", err.Error()))

		return
	}

	go func() {
		defer cancel()

		if err := c.Wait(); err != nil {
			n.Logger.Debug("notification process exited with error", slog.String("error", err.Error()))
		}
	}()
}

// platformCommand returns the argv to invoke the platform's notifier, or
// nil when the current platform has none wired.
func platformCommand(title, message string) []string {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)

		return []string{"osascript", "-e", script}
	case "linux":
		return []string{"notify-send", title, message}
	default:
		return nil
	}
}

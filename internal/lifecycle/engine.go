// Package lifecycle implements the engine state machine (C10): start,
// stop, trigger, and status, coordinating the background poll loop, the
// filesystem watcher, and on-demand triggers under a single engine mutex
// (§4.9, §5).
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/arjunv/foldersync/internal/config"
	"github.com/arjunv/foldersync/internal/health"
	"github.com/arjunv/foldersync/internal/notify"
	"github.com/arjunv/foldersync/internal/reconcile"
	"github.com/arjunv/foldersync/internal/syncstate"
	"github.com/arjunv/foldersync/internal/watcher"
)

// State is the engine's run state (§4.9).
type State string

const (
	Stopped State = "STOPPED"
	Running State = "RUNNING"
)

// consecutiveFailureThreshold is the number of back-to-back poll failures
// that trigger an error notification (§4.9, spec edge case 8).
const consecutiveFailureThreshold = 3

// stopJoinTimeout bounds how long stop() waits for the poll loop to exit.
const stopJoinTimeout = 10 * time.Second

// Engine owns the {STOPPED, RUNNING} state machine and the single mutex
// that serializes every reconciliation pass, whether scheduled, triggered,
// or the initial run at start() (§5, engine_mutex).
type Engine struct {
	Holder     *config.Holder
	Store      *syncstate.Store
	Reconciler *reconcile.Reconciler
	Health     *health.Monitor
	Notifier   *notify.Notifier
	Logger     *slog.Logger

	// NewWatcher constructs the filesystem watcher for the configured local
	// root. Exposed as a field (not a hardcoded constructor call) so tests
	// can substitute a no-op watcher.
	NewWatcher func(root string, handler watcher.Handler, logger *slog.Logger) (*watcher.Watcher, error)

	stateMu  sync.Mutex
	state    State
	engineMu sync.Mutex

	watcher *watcher.Watcher

	stopCh chan struct{}
	doneCh chan struct{}

	statusMu           sync.Mutex
	connected          bool
	lastSync           time.Time
	hasLastSync        bool
	nextSync           time.Time
	hasNextSync        bool
	lastError          string
	consecutiveFailure int
}

// New builds an Engine in the STOPPED state.
func New(holder *config.Holder, store *syncstate.Store, reconciler *reconcile.Reconciler, healthMon *health.Monitor, notifier *notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		Holder:     holder,
		Store:      store,
		Reconciler: reconciler,
		Health:     healthMon,
		Notifier:   notifier,
		Logger:     logger,
		state:      Stopped,
	}
	e.NewWatcher = func(root string, handler watcher.Handler, l *slog.Logger) (*watcher.Watcher, error) {
		return watcher.New(root, handler, l)
	}

	return e
}

// State returns the current run state.
func (e *Engine) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.state
}

// Start validates configuration and the remote, prepares the local root
// and state file, runs one full reconciliation, initializes the delta
// cursor, starts the watcher, and launches the poll loop (§4.9).
func (e *Engine) Start(ctx context.Context) error {
	e.stateMu.Lock()
	if e.state == Running {
		e.stateMu.Unlock()

		return fmt.Errorf("lifecycle: already running")
	}
	e.stateMu.Unlock()

	cfg := e.Holder.Config()
	if err := config.ValidateForStart(cfg); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}

	ok, err := e.Reconciler.Client.Validate(ctx)
	if err != nil || !ok {
		e.setError("share link validation failed")

		if err != nil {
			return fmt.Errorf("lifecycle: validating remote: %w", err)
		}

		return fmt.Errorf("lifecycle: validating remote: share link rejected")
	}

	if err := os.MkdirAll(cfg.LocalFolder, 0o755); err != nil {
		return fmt.Errorf("lifecycle: creating local folder: %w", err)
	}

	e.setConnected(true)
	e.clearError()
	e.resetFailures()

	e.engineMu.Lock()
	syncErr := e.Reconciler.FullSync(ctx)
	e.engineMu.Unlock()

	if syncErr != nil {
		e.Logger.Error("initial full sync failed", slog.String("error", syncErr.Error()))
	} else {
		e.recordSuccess()
		e.Notifier.SyncComplete(e.Store.FileCount())
	}

	if e.Store.DeltaLink() == "" {
		e.engineMu.Lock()
		if cursErr := e.initDeltaCursorLocked(ctx); cursErr != nil {
			e.Logger.Warn("delta cursor initialization failed", slog.String("error", cursErr.Error()))
		}
		e.engineMu.Unlock()
	}

	w, err := e.NewWatcher(cfg.LocalFolder, e.Reconciler, e.Logger)
	if err != nil {
		return fmt.Errorf("lifecycle: starting watcher: %w", err)
	}

	w.Start(ctx)
	e.watcher = w

	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go e.pollLoop(ctx, cfg.PollInterval)

	e.stateMu.Lock()
	e.state = Running
	e.stateMu.Unlock()

	e.Logger.Info("sync engine started")

	return nil
}

func (e *Engine) initDeltaCursorLocked(ctx context.Context) error {
	_, cursor, err := e.Reconciler.Client.ListChanges(ctx, "")
	if err != nil {
		return err
	}

	if cursor == "" {
		return nil
	}

	e.Store.SetDeltaLink(cursor)

	return e.Store.Commit()
}

// Stop signals the poll loop to exit, stops the watcher, and joins the
// loop with a bounded timeout (§4.9).
func (e *Engine) Stop() error {
	e.stateMu.Lock()
	if e.state != Running {
		e.stateMu.Unlock()

		return fmt.Errorf("lifecycle: not running")
	}
	e.stateMu.Unlock()

	close(e.stopCh)

	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}

	select {
	case <-e.doneCh:
	case <-time.After(stopJoinTimeout):
		e.Logger.Warn("poll loop did not exit within timeout")
	}

	e.setConnected(false)
	e.clearNextSync()

	e.stateMu.Lock()
	e.state = Stopped
	e.stateMu.Unlock()

	e.Logger.Info("sync engine stopped")

	return nil
}

// Trigger spawns a background full reconciliation attempt. It requires
// RUNNING and is ignored (not queued) if a pass is already in progress,
// serialized by the engine mutex (§4.9).
func (e *Engine) Trigger(ctx context.Context) error {
	if e.State() != Running {
		return fmt.Errorf("lifecycle: not running")
	}

	if !e.engineMu.TryLock() {
		e.Logger.Debug("trigger ignored: reconciliation already in progress")

		return nil
	}

	go func() {
		defer e.engineMu.Unlock()

		if err := e.Reconciler.FullSync(ctx); err != nil {
			e.Logger.Error("triggered sync failed", slog.String("error", err.Error()))
			e.setError(err.Error())

			return
		}

		e.recordSuccess()
		e.Notifier.SyncComplete(e.Store.FileCount())
	}()

	return nil
}

// pollLoop repeatedly sleeps for pollInterval seconds in 1-second
// increments, then runs a delta sync under the engine mutex (§4.9).
func (e *Engine) pollLoop(ctx context.Context, pollInterval int) {
	defer close(e.doneCh)

	if pollInterval < 1 {
		pollInterval = config.DefaultPollInterval
	}

	for {
		e.setNextSync(time.Now().Add(time.Duration(pollInterval) * time.Second))

		for i := 0; i < pollInterval; i++ {
			select {
			case <-e.stopCh:
				return
			case <-time.After(time.Second):
			}
		}

		select {
		case <-e.stopCh:
			return
		default:
		}

		e.engineMu.Lock()
		err := e.Reconciler.DeltaSync(ctx)
		e.engineMu.Unlock()

		if err != nil {
			e.Logger.Error("poll sync failed", slog.String("error", err.Error()))
			n := e.recordFailure()

			if n >= consecutiveFailureThreshold {
				msg := fmt.Sprintf("sync failing repeatedly: %s", err.Error())
				e.setError(msg)
				e.Notifier.Error(msg)
			}

			continue
		}

		e.recordSuccess()
		e.Notifier.SyncComplete(e.Store.FileCount())
	}
}

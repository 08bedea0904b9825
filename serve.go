package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/config"
	"github.com/arjunv/foldersync/internal/debounce"
	"github.com/arjunv/foldersync/internal/filter"
	"github.com/arjunv/foldersync/internal/health"
	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/httpapi"
	"github.com/arjunv/foldersync/internal/lifecycle"
	"github.com/arjunv/foldersync/internal/logstream"
	"github.com/arjunv/foldersync/internal/notify"
	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/reconcile"
	"github.com/arjunv/foldersync/internal/remoteclient"
	"github.com/arjunv/foldersync/internal/syncstate"
)

var flagNoGUI bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Run the sync daemon and HTTP control surface",
		Annotations: map[string]string{skipClientAnnotation: "true"},
		RunE:        runServe,
	}

	cmd.Flags().BoolVar(&flagNoGUI, "no-gui", false, "run headless (daemon mode; currently the only supported mode)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartupValidation, err)
	}

	cfgPath := config.ResolveConfigPath(env)
	holder := config.NewHolder(cfg, cfgPath)

	hub := logstream.NewHub()
	logger = slog.New(logstream.Wrap(logger.Handler(), hub))
	slog.SetDefault(logger)

	statePath := defaultOr(os.Getenv("FOLDERSYNC_STATE_PATH"), config.DefaultStatePath())
	historyPath := defaultOr(os.Getenv("FOLDERSYNC_HISTORY_PATH"), config.DefaultHistoryPath())

	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("%w: creating state directory: %v", ErrStartupValidation, err)
	}

	store := syncstate.Open(statePath, logger)
	historyLog := history.New(historyPath)
	healthMon := health.New(cfg.LocalFolder)
	notifier := notify.New(cfg.NotificationsEnabled, logger)

	client, err := buildRemoteClient(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("%w: building remote client: %v", ErrStartupValidation, err)
	}

	r := &reconcile.Reconciler{
		Store:      store,
		Client:     client,
		Filter:     cfg.NewFilter(),
		Debounce:   debounce.New(),
		Progress:   progress.NewTracker(),
		History:    historyLog,
		LocalRoot:  cfg.LocalFolder,
		MaxWorkers: cfg.MaxWorkers,
		Logger:     logger,
	}
	r.NotifyConflict = notifier.Conflict
	r.NotifyError = notifier.Error

	engine := lifecycle.New(holder, store, r, healthMon, notifier, logger)

	pidPath := pidFilePath(cfgPath)

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartupValidation, err)
	}
	defer cleanup()

	ctx := engineShutdownContext(context.Background(), logger)

	if startErr := engine.Start(ctx); startErr != nil {
		return fmt.Errorf("%w: %v", ErrStartupValidation, startErr)
	}

	server := httpapi.NewServer(engine, holder, historyLog, hub, logger, "")

	go watchReload(holder, logger)

	serverErrCh := make(chan error, 1)

	go func() {
		serverErrCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("control surface failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control surface shutdown error", slog.String("error", err.Error()))
	}

	if engine.State() == lifecycle.Running {
		if err := engine.Stop(); err != nil {
			logger.Warn("engine stop error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// engineShutdownContext returns a context that cancels on the first
// SIGINT/SIGTERM, giving the reconciler time to finish any in-flight
// upload or download before runServe tears down the HTTP control surface
// and stops the engine. A second signal force-exits immediately, since a
// stuck remote call (rather than a clean drain) is the main way this
// daemon would otherwise hang on shutdown.
func engineShutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		logger.Info("shutdown signal received, draining in-flight sync actions")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Warn("second shutdown signal received, forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx
}

// watchReload re-reads the config file on SIGHUP, the conventional
// daemon reload signal, picking up manual edits without a restart.
func watchReload(holder *config.Holder, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	for range sigCh {
		if err := holder.Reload(logger); err != nil {
			logger.Warn("config reload failed", slog.String("error", err.Error()))

			continue
		}

		logger.Info("config reloaded")
	}
}

// buildRemoteClient wires the concrete HTTP remote client, choosing a
// client-credentials OAuth2 token source when client_id/tenant_id are
// configured and a client secret is supplied via environment (the OAuth
// flow itself is an out-of-scope external collaborator per §1). Absent
// client_id, the share link is assumed to carry its own access token and
// no bearer header is injected.
func buildRemoteClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (remoteclient.Client, error) {
	if cfg.ClientID == "" {
		return remoteclient.NewHTTPClient(cfg.ShareLink, nil, anonymousTokenSource{}, logger), nil
	}

	secret := os.Getenv("FOLDERSYNC_CLIENT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("client_id configured but FOLDERSYNC_CLIENT_SECRET is not set")
	}

	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", defaultOr(cfg.TenantID, "common"))
	tokenSource := remoteclient.NewClientCredentialsTokenSource(ctx, tokenURL, cfg.ClientID, secret, []string{"https://graph.microsoft.com/.default"})

	return remoteclient.NewHTTPClient(cfg.ShareLink, nil, tokenSource, logger), nil
}

// anonymousTokenSource supplies no bearer token, for share links that
// already embed their own access token in the URL.
type anonymousTokenSource struct{}

func (anonymousTokenSource) Token(ctx context.Context) (string, error) {
	return "", nil
}

func defaultOr(v, fallback string) string {
	if v != "" {
		return v
	}

	return fallback
}

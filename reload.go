package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/config"
)

// newReloadCmd reloads a running daemon's config file in place via SIGHUP,
// rather than going through the HTTP control surface — this is the one
// command that acts on the daemon process directly instead of its API, since
// the PID file is the only durable handle to it between CLI invocations.
func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "reload",
		Short:       "Signal the running daemon to reload its config file from disk",
		Annotations: map[string]string{skipClientAnnotation: "true"},
		RunE:        runReload,
	}
}

func runReload(cmd *cobra.Command, _ []string) error {
	env := config.ReadEnvOverrides()
	cfgPath := config.ResolveConfigPath(env)
	pidPath := pidFilePath(cfgPath)

	if err := sendSIGHUP(pidPath); err != nil {
		return err
	}

	if flagJSON {
		return printJSON(map[string]string{"status": "reload signaled"})
	}

	fmt.Println("Reload signal sent.")

	return nil
}

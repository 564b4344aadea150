package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxgatelabs/coilscope/internal/app"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the calculation engine and its front ends",
	Long: `Start the full measurement pipeline: the configured acquisition
sources, the calculation engine, the WebSocket front end and optionally
the MQTT publisher and Prometheus metrics endpoint.

The process runs until interrupted. SIGINT or SIGTERM triggers a
graceful shutdown: in-flight analysis frames are discarded, sources
stop and connected clients are closed.

Examples:
  # Run with defaults (virtual ADC and motor, WebSocket on :8081)
  coilscope serve

  # Run with an explicit config file
  coilscope serve --config /etc/coilscope/coilscope.yaml

  # Raise log verbosity
  coilscope serve -v`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	appCtx := &app.Context{
		ConfigFile: configFile,
		Verbose:    verbose,
		LogLevel:   logLevel,
	}

	application, err := app.NewApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

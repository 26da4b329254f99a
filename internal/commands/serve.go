package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dollartracker/internal/app"
	"dollartracker/internal/metrics"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background refresh cycle",
	Long: `Start the HTTP API together with the background cycle that refreshes
the cached snapshot, stores it in history, publishes it to NATS when
enabled and prunes ticks past the retention period.

Examples:
  dollartracker serve
  dollartracker serve --port 8080
  dollartracker serve -c ./config/config.yaml -l debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "override server.port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("dollartracker starting",
		zap.String("version", cfg.Server.Version),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("postgres", cfg.History.Enabled),
		zap.Bool("nats", cfg.NATS.Enabled),
	)
	err = a.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("dollartracker stopped")
	return nil
}

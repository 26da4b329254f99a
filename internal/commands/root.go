// Package commands implements the dollartracker command line.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dollartracker/internal/config"
	"dollartracker/internal/logger"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dollartracker",
	Short: "USD/BOB exchange-rate aggregator",
	Long: `Aggregates USD/BOB rates from Binance P2P, OKX P2P, DolarAPI and
ExchangeRate-API, caches the merged snapshot, records history and serves
prices, history and volatility over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the command selected by os.Args.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "path to config.yaml")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
}

// setup loads configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dollartracker/internal/history/postgres"
)

var createDB bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the history schema in PostgreSQL",
	Long: `Connect to the PostgreSQL database configured under history.postgres
and migrate the price_tick table and its indexes.

Examples:
  dollartracker migrate
  dollartracker migrate --create-db`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		client, err := postgres.Open(cfg.History.Postgres, createDB)
		if err != nil {
			return err
		}
		defer client.Close()

		log.Info("history schema up to date",
			zap.String("host", cfg.History.Postgres.Host),
			zap.String("db", cfg.History.Postgres.DBName),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&createDB, "create-db", false, "create the database first if it does not exist")
}

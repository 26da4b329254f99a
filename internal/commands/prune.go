package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dollartracker/internal/history/postgres"
)

var olderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored ticks older than the retention period",
	Long: `Delete ticks from the PostgreSQL history that are older than
history.retention, or the duration given with --older-than.

Examples:
  dollartracker prune
  dollartracker prune --older-than 72h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		keep := cfg.History.Retention
		if olderThan > 0 {
			keep = olderThan
		}
		if keep <= 0 {
			return fmt.Errorf("retention must be positive, got %s", keep)
		}

		client, err := postgres.Open(cfg.History.Postgres, false)
		if err != nil {
			return err
		}
		defer client.Close()

		n, err := client.Prune(cmd.Context(), time.Now().Add(-keep))
		if err != nil {
			return err
		}
		log.Info("pruned history", zap.Int64("ticks", n), zap.Duration("older_than", keep))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d ticks\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "override history.retention")
}

package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/app"
	"dollartracker/internal/config"
	"dollartracker/internal/httpx"
	"dollartracker/internal/provider"
	"dollartracker/internal/status"
)

var (
	fetchSources string
	fetchPretty  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one snapshot from the upstreams and print it",
	Long: `Run a single aggregation cycle and print the snapshot as JSON.
Nothing is cached, stored or published.

Examples:
  dollartracker fetch
  dollartracker fetch --sources binance,okx --pretty`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchSources, "sources", "s", "", "comma-separated source ids to query (default: all enabled)")
	fetchCmd.Flags().BoolVar(&fetchPretty, "pretty", false, "indent the output")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if fetchSources != "" {
		if err := restrictSources(&cfg.Sources, splitCSV(fetchSources)); err != nil {
			return err
		}
	}

	hc := httpx.New(cfg.Server.RequestTimeout)
	defer hc.CloseIdle()
	up := app.BuildUpstreams(cfg.Sources, hc)
	agg := aggregate.New(aggregate.Options{
		Sides:   up.Sides,
		Quotes:  up.Quotes,
		Batches: up.Batches,
		Tracker: status.New(up.Registry),
		Logger:  log.Named("aggregate"),
	})

	snap := agg.Snapshot(cmd.Context())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if fetchPretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(snap)
}

// restrictSources leaves only the listed sources enabled.
func restrictSources(s *config.Sources, ids []string) error {
	for _, id := range ids {
		if !slices.Contains(provider.Known(), provider.SourceID(id)) {
			return fmt.Errorf("unknown source %q", id)
		}
	}
	keep := func(id provider.SourceID) bool { return slices.Contains(ids, string(id)) }
	s.Binance.Enabled = s.Binance.Enabled && keep(provider.Binance)
	s.OKX.Enabled = s.OKX.Enabled && keep(provider.OKX)
	s.DolarAPI.Enabled = s.DolarAPI.Enabled && keep(provider.DolarAPI)
	s.ExchangeRate.Enabled = s.ExchangeRate.Enabled && keep(provider.ExchangeRate)
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

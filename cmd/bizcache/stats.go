package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics from a running server",
	Long: `Fetch the statistics snapshot from GET /cache/stats: hit and miss counts,
hit rate, local tier size, backend state and shared store counters.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClientFromFlags()
		if err != nil {
			return err
		}
		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), stats, statsJSON)
	},
}

func init() {
	addClientFlags(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the raw JSON snapshot")
	rootCmd.AddCommand(statsCmd)
}

// printStats writes one "key: value" line per field in key order, or the
// indented JSON object.
func printStats(w io.Writer, stats map[string]any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	keys := lo.Keys(stats)
	slices.Sort(keys)
	width := lo.Max(lo.Map(keys, func(k string, _ int) int { return len(k) }))
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%-*s  %v\n", width+1, k+":", stats[k]); err != nil {
			return err
		}
	}
	return nil
}

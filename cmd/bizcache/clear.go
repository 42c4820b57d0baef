package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry on a running server",
	Long: `Remove every bizcache entry from both tiers via POST /cache/clear.
Only keys under the configured key prefix are touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClientFromFlags()
		if err != nil {
			return err
		}
		res, err := client.Clear(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ cleared %d entries\n", res.Removed)
		return err
	},
}

func init() {
	addClientFlags(clearCmd)
	rootCmd.AddCommand(clearCmd)
}

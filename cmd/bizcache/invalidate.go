package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var invalidateNamespace bool

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>...",
	Short: "Invalidate cache entries by pattern on a running server",
	Long: `Remove entries matching each pattern from both tiers.

A pattern "ns" removes the key "ns" and every key starting "ns:". A trailing
"*" is a raw prefix match ("plant*" also matches "plants:list"). With
--namespace each argument is an entity type and is invalidated through
DELETE /cache/namespaces/{namespace}.`,
	Example: `  bizcache invalidate suppliers
  bizcache invalidate "dashboard*" plants:detail
  bizcache invalidate --namespace projects`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClientFromFlags()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if invalidateNamespace {
			for _, ns := range args {
				res, err := client.InvalidateNamespace(cmd.Context(), ns)
				if err != nil {
					return fmt.Errorf("invalidate namespace %q: %w", ns, err)
				}
				if _, err := fmt.Fprintf(out, "✓ %s: removed %d entries\n", ns, res.Removed); err != nil {
					return err
				}
			}
			return nil
		}

		res, err := client.Invalidate(cmd.Context(), args...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "✓ %s: removed %d entries\n", strings.Join(args, ", "), res.Removed)
		return err
	},
}

func init() {
	addClientFlags(invalidateCmd)
	invalidateCmd.Flags().BoolVar(&invalidateNamespace, "namespace", false,
		"treat arguments as entity namespaces")
	rootCmd.AddCommand(invalidateCmd)
}

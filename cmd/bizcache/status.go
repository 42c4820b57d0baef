package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if a bizcache server is running",
	Long: `Query GET /health of a running server and report which backend tier is
serving traffic.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClientFromFlags()
		if err != nil {
			return err
		}
		return checkStatus(cmd.Context(), cmd.OutOrStdout(), client)
	},
}

func init() {
	addClientFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

type healthResult struct {
	Status       string `json:"status"`
	BackendState string `json:"backend_state"`
	BackendInUse string `json:"backend_in_use"`
}

func checkStatus(ctx context.Context, out io.Writer, client *adminClient) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.http.Do(req)
	if err != nil {
		fmt.Fprintf(out, "✗ bizcache is not running (%s)\n", client.baseURL)
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(out, "✗ bizcache returned unexpected status: %d\n", resp.StatusCode)
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var h healthResult
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	_, err = fmt.Fprintf(out, "✓ bizcache is running (%s, backend %s, serving from %s)\n",
		client.baseURL, h.BackendState, h.BackendInUse)
	return err
}

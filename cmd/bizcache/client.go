package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/bizcache/internal/config"
	"github.com/omarluq/bizcache/internal/server"
)

const clientTimeout = 10 * time.Second

var (
	serverURL string
	adminKey  string
)

// addClientFlags registers the flags shared by commands that talk to a
// running server.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serverURL, "server", "",
		"server base URL (default: derived from server.listen)")
	cmd.Flags().StringVar(&adminKey, "admin-key", "",
		"admin API key (default: server.admin_api_key or $"+config.EnvAdminAPIKey+")")
}

// adminClient calls the operator routes of a running server.
type adminClient struct {
	http    *http.Client
	baseURL string
	key     string
}

type removedResult struct {
	Pattern string `json:"pattern,omitempty"`
	Removed int    `json:"removed"`
}

// newClientFromFlags resolves the server URL and admin key from flags,
// falling back to the config file.
func newClientFromFlags() (*adminClient, error) {
	base, key := serverURL, adminKey
	if base == "" || key == "" {
		cfg, err := config.LoadOrDefault(configPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if base == "" {
			base = baseURLFromListen(cfg.Server.Listen)
		}
		if key == "" {
			key = cfg.Server.AdminAPIKey
		}
	}
	return newAdminClient(base, key), nil
}

func newAdminClient(baseURL, key string) *adminClient {
	return &adminClient{
		http:    &http.Client{Timeout: clientTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
	}
}

// baseURLFromListen maps a listen address to a URL reachable locally.
func baseURLFromListen(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Stats fetches the raw stats snapshot as a flat JSON object.
func (c *adminClient) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/cache/stats", nil, &out)
	return out, err
}

// Clear removes every entry in both tiers.
func (c *adminClient) Clear(ctx context.Context) (removedResult, error) {
	var out removedResult
	err := c.do(ctx, http.MethodPost, "/cache/clear", nil, &out)
	return out, err
}

// Invalidate removes entries matching any of patterns.
func (c *adminClient) Invalidate(ctx context.Context, patterns ...string) (removedResult, error) {
	var out removedResult
	err := c.do(ctx, http.MethodPost, "/cache/invalidate", url.Values{"pattern": patterns}, &out)
	return out, err
}

// InvalidateNamespace removes every entry of one entity namespace.
func (c *adminClient) InvalidateNamespace(ctx context.Context, namespace string) (removedResult, error) {
	var out removedResult
	err := c.do(ctx, http.MethodDelete, "/cache/namespaces/"+url.PathEscape(namespace), nil, &out)
	return out, err
}

func (c *adminClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return err
	}
	if c.key != "" {
		req.Header.Set(server.HeaderAdminKey, c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable at %s: %w", c.baseURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return responseError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError turns an error payload into an error, keeping the server's
// message when it sent one.
func responseError(status int, body []byte) error {
	var payload server.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("server returned %d: %s", status, payload.Error.Message)
	}
	if status == http.StatusUnauthorized {
		return errors.New("server returned 401: admin key required")
	}
	return fmt.Errorf("server returned %d", status)
}

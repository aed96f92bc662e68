package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/job-validator/internal/observability"
	"github.com/jonathan/job-validator/internal/pipeline"
)

type healthOptions struct {
	Server  string
	JSON    bool
	Timeout time.Duration
}

func (o *healthOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server, "server", "", "Base URL of a running server; without it the local pipeline is checked")
	fs.BoolVar(&o.JSON, "json", false, "Print the snapshot as JSON")
	fs.DurationVar(&o.Timeout, "timeout", 5*time.Second, "Request timeout for --server")
}

func newHealthCmd(g *globalOptions) *cobra.Command {
	o := &healthOptions{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show pipeline health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var snapshot pipeline.HealthSnapshot
			if o.Server != "" {
				var err error
				if snapshot, err = fetchHealth(cmd.Context(), o.Server, o.Timeout); err != nil {
					return err
				}
			} else {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				a, logger, err := newApp(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
				defer a.Close() //nolint:errcheck
				snapshot = a.Orchestrator.Health()
			}

			if o.JSON {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintHealth(snapshot)
			return nil
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

// fetchHealth reads /health from a running server. A 503 still carries a
// snapshot.
func fetchHealth(ctx context.Context, base string, timeout time.Duration) (pipeline.HealthSnapshot, error) {
	var snapshot pipeline.HealthSnapshot

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
	if err != nil {
		return snapshot, fmt.Errorf("invalid server URL: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return snapshot, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return snapshot, fmt.Errorf("unexpected status from server: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to decode health: %w", err)
	}
	return snapshot, nil
}

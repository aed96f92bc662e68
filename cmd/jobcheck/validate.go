package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/job-validator/internal/observability"
	"github.com/jonathan/job-validator/internal/types"
)

type validateOptions struct {
	JSON         bool
	NoExtraction bool
}

func (o *validateOptions) Bind(fs *pflag.FlagSet) {
	fs.BoolVar(&o.JSON, "json", false, "Print the full result as JSON")
	fs.BoolVar(&o.NoExtraction, "no-extraction", false, "Stop after content classification")
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	o := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate <url>",
		Short: "Validate a single job posting URL",
		Long:  "Run reachability, content classification and field extraction for one URL. Exits 2 when the URL is not a valid job posting.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.ValidateRequest{URL: args[0]}
			if err := req.Validate(); err != nil {
				return err
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if o.NoExtraction {
				cfg.Orchestrator.EnableTier3 = false
			}

			a, logger, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer a.Close() //nolint:errcheck

			res := a.Orchestrator.Validate(cmd.Context(), req.URL)

			if o.JSON {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				observability.NewPrinter(cmd.OutOrStdout()).PrintResult(res)
			}

			if !res.IsValid {
				return errNotValid
			}
			return nil
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

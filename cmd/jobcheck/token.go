package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/job-validator/internal/config"
	"github.com/jonathan/job-validator/internal/server"
	"github.com/jonathan/job-validator/internal/types"
)

type tokenOptions struct {
	Subject string
	Hours   int
}

func (o *tokenOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Subject, "subject", "", "Client name recorded in the token")
	fs.IntVar(&o.Hours, "hours", 0, "Token lifetime in hours (defaults to the server setting)")
}

func newTokenCmd(g *globalOptions) *cobra.Command {
	o := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := types.TokenRequest{Subject: o.Subject}
			if err := req.Validate(); err != nil {
				return fmt.Errorf("invalid subject: %w", err)
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if o.Hours > 0 {
				cfg.Server.JWTExpirationHours = o.Hours
			}

			jwtConfig, err := cfg.Server.JWT()
			if err != nil {
				return err
			}
			if jwtConfig == nil {
				return fmt.Errorf("no JWT secret configured; set %s_SERVER_JWT_SECRET", config.EnvPrefix)
			}

			token, err := server.NewJWTService(jwtConfig).GenerateToken(req.Subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	o.Bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

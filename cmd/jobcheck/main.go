// Package main provides the jobcheck CLI: validate job posting URLs locally
// or serve the validator over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// errNotValid makes the process exit with status 2 when a URL fails validation.
var errNotValid = errors.New("not a valid job posting")

type globalOptions struct {
	ConfigPath string
	LogLevel   string
}

func (o *globalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Path to a JSON config file")
	fs.StringVar(&o.LogLevel, "log-level", "", "Override the configured log level")
}

func newRootCmd() *cobra.Command {
	o := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "jobcheck",
		Short:         "Job posting URL validator",
		Long:          "jobcheck checks that a URL points at a live, specific job posting and extracts its key fields.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.Bind(cmd.PersistentFlags())

	cmd.AddCommand(newValidateCmd(o))
	cmd.AddCommand(newBatchCmd(o))
	cmd.AddCommand(newServeCmd(o))
	cmd.AddCommand(newTokenCmd(o))
	cmd.AddCommand(newHealthCmd(o))

	return cmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errNotValid) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

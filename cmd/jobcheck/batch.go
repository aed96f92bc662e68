package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/job-validator/internal/observability"
)

type batchOptions struct {
	File string
	JSON bool
}

func (o *batchOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.File, "file", "f", "", "File with one URL per line (# starts a comment, - reads stdin)")
	fs.BoolVar(&o.JSON, "json", false, "Print the full results as JSON")
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	o := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch [urls...]",
		Short: "Validate several job posting URLs concurrently",
		Long:  "Validate URLs given as arguments and/or read from --file. Results are printed in input order. Exits 2 when any URL is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string{}, args...)
			if o.File != "" {
				fromFile, err := readURLFile(o.File, cmd.InOrStdin())
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given; pass them as arguments or with --file")
			}

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

			results := a.Orchestrator.ValidateBatch(cmd.Context(), urls)

			if o.JSON {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				observability.NewPrinter(cmd.OutOrStdout()).PrintBatch(results)
			}

			for _, res := range results {
				if !res.IsValid {
					return errNotValid
				}
			}
			return nil
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func readURLFile(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return readURLs(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()
	return readURLs(f)
}

// readURLs returns the non-empty, non-comment lines of r.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URLs: %w", err)
	}
	return urls, nil
}

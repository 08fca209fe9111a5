package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repo-explorer/internal/collector"
	"repo-explorer/internal/github"
)

func collectCMD(cfgPath *string) *cobra.Command {
	var opts collector.Options
	var collect = &cobra.Command{
		Use:   "collect",
		Short: "Fetch an organization's repositories from GitHub into the parquet data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx := cmd.Context()
			gh, err := github.NewGitHubClient(ctx, a.cfg.GitHub.Token, a.logger)
			if err != nil {
				return err
			}
			if opts.Dir == "" {
				opts.Dir = a.cfg.Data.Dir
			}
			if opts.Workers == 0 {
				opts.Workers = a.cfg.Data.Workers
			}
			path, records, err := collector.Collect(ctx, gh, opts, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d repositories to %s\n", len(records), path)
			return nil
		},
	}
	collect.Flags().StringVar(&opts.Org, "org", "", "GitHub organization login")
	collect.Flags().StringVar(&opts.University, "university", "", "university acronym (output directory name)")
	collect.Flags().StringVar(&opts.Dir, "dir", "", "parquet base directory (defaults to data.dir)")
	collect.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent detail requests (defaults to data.workers)")
	collect.Flags().BoolVar(&opts.IncludeForks, "forks", false, "include forked repositories")
	collect.MarkFlagRequired("org")
	collect.MarkFlagRequired("university")
	return collect
}

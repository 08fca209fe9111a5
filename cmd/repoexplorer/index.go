package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repo-explorer/internal/dataset"
)

func indexCMD(cfgPath *string) *cobra.Command {
	var index = &cobra.Command{
		Use:   "index",
		Short: "Push the dataset into the Elasticsearch index",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx := cmd.Context()
			es, err := a.elasticClient()
			if err != nil {
				return err
			}
			store := a.loadDataset(ctx)
			if !store.Loaded() {
				return dataset.ErrNoData
			}
			if err := es.EnsureIndex(ctx); err != nil {
				return err
			}
			n, err := es.IndexRepositories(ctx, store.Records())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d repositories into %s\n", n, es.Index())
			return nil
		},
	}
	return index
}

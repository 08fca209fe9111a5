package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repo-explorer/internal/chat"
)

func askCMD(cfgPath *string) *cobra.Command {
	var noDefaults bool
	var ask = &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the markdown answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx := cmd.Context()
			store := a.loadDataset(ctx)
			classifier, closeClassifier, err := a.classifier(ctx, store)
			if err != nil {
				return err
			}
			defer closeClassifier()

			var opts []chat.Option
			if !noDefaults {
				opts = append(opts, chat.WithDefaultFilters(a.defaultFilters()))
			}
			svc := chat.NewService(store, classifier, nil, a.logger, opts...)
			turn, err := svc.Ask(ctx, svc.NewSession().ID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Answer.Text)
			return nil
		},
	}
	ask.Flags().BoolVar(&noDefaults, "all", false, "ignore the default affiliation threshold")
	return ask
}

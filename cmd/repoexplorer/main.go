package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{
		Use:          "repoexplorer",
		Short:        "Ask questions about university open-source repositories",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(serveCMD(&cfgPath), askCMD(&cfgPath), collectCMD(&cfgPath), indexCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag bool
	var debugFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag, &debugFlag)

	rootCmd := &cobra.Command{
		Use:           "tokenlens",
		Short:         "Resolve token metadata from chain, APIs and token lists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log resolver activity to stdout")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newHoldingsCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newListsCommand(ctx))

	return rootCmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trackiq/logging"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		noColor    bool
	)

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "trackiq",
		Short:         "Audio feature extraction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			if noColor {
				logging.DisableColors()
			}
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newRecordsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

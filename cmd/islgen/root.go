package main

import (
	"github.com/spf13/cobra"

	"isl-announcer/internal/logging"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "islgen",
		Short:         "Build ISL announcement videos from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// keep stdout for command output
			logging.SetOutput(cmd.ErrOrStderr())
			if ctx.verbose {
				logging.SetLevel(logging.LevelDebug)
			} else {
				logging.SetLevel(logging.LevelWarn)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.mediaDir, "media-dir", ctx.mediaDir, "Sign library directory")
	flags.StringVar(&ctx.workDir, "work-dir", ctx.workDir, "Scratch directory for encoding")
	flags.StringVar(&ctx.captionPrefix, "caption-prefix", ctx.captionPrefix, "Text placed before every caption")
	flags.Float64Var(&ctx.imageSeconds, "image-seconds", ctx.imageSeconds, "Seconds each still image is shown")
	flags.IntVar(&ctx.threads, "threads", 0, "Encoder threads (0 lets ffmpeg decide)")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Print JSON instead of tables")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Log pipeline details to stderr")

	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))

	return rootCmd
}

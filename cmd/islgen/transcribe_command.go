package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var audio string

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe an announcement recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if audio == "" {
				return errors.New("--audio is required")
			}
			tr, err := ctx.recognizer(ctx.transcoder())
			if err != nil {
				return err
			}

			text, err := tr.Transcribe(cmd.Context(), audio)
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]string{"audio": audio, "transcript": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "Recording to transcribe (wav, mp3 or m4a)")
	cmd.Flags().StringVar(&ctx.speechKey, "api-key", ctx.speechKey, "Speech API key")
	cmd.Flags().StringVar(&ctx.speechEndpoint, "endpoint", ctx.speechEndpoint, "Speech API endpoint")
	cmd.Flags().StringVar(&ctx.speechLanguage, "language", ctx.speechLanguage, "Recognition language")
	return cmd
}

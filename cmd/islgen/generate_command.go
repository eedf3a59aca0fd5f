package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"isl-announcer/internal/compositor"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var audio, output, text string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the ISL video for a recording",
		Long: "Build the ISL video for a recording. The transcript comes from --transcript\n" +
			"or, when that is empty, from speech recognition of --audio.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if audio == "" || output == "" {
				return errors.New("--audio and --out are required")
			}
			trans := ctx.transcoder()
			defer trans.Cleanup()

			text = strings.TrimSpace(text)
			if text == "" {
				tr, err := ctx.recognizer(trans)
				if err != nil {
					return err
				}
				if text, err = tr.Transcribe(cmd.Context(), audio); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Transcript: %s\n", text)
			}

			res, err := ctx.generator(trans).Generate(cmd.Context(), compositor.Request{
				ID:         strings.TrimSuffix(filepath.Base(output), filepath.Ext(output)),
				Transcript: text,
				AudioPath:  audio,
				OutputPath: output,
				Progress:   progressPrinter(cmd.ErrOrStderr()),
			})
			if ctx.jsonOutput && res != nil {
				if jerr := writeJSON(cmd, res); jerr != nil {
					return jerr
				}
			}
			if err != nil {
				return fmt.Errorf("%s: %w", compositor.Code(err), err)
			}
			if ctx.jsonOutput {
				return nil
			}

			out := cmd.OutOrStdout()
			planned := make([]compositor.PlannedSegment, 0, len(res.Segments))
			for _, s := range res.Segments {
				planned = append(planned, s.PlannedSegment)
			}
			printSegments(out, planned)
			printWarnings(out, res.Warnings)
			fmt.Fprintf(out, "Wrote %s (%s, %.1fs video, %d segments) in %v\n",
				res.OutputPath, res.Outcome, res.Duration, len(res.Segments), res.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "Announcement recording")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output MP4 path")
	cmd.Flags().StringVarP(&text, "transcript", "t", "", "Use this transcript instead of speech recognition")
	cmd.Flags().StringVar(&ctx.speechKey, "api-key", ctx.speechKey, "Speech API key")
	cmd.Flags().StringVar(&ctx.speechEndpoint, "endpoint", ctx.speechEndpoint, "Speech API endpoint")
	return cmd
}

// progressPrinter writes one line per pipeline stage and per segment.
func progressPrinter(w io.Writer) func(compositor.Progress) {
	return func(p compositor.Progress) {
		switch {
		case p.Total > 0:
			fmt.Fprintf(w, "%s %d/%d\n", p.Stage, p.Segment, p.Total)
		case p.Message != "":
			fmt.Fprintf(w, "%s: %s\n", p.Stage, p.Message)
		default:
			fmt.Fprintln(w, p.Stage)
		}
	}
}

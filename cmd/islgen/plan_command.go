package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"isl-announcer/internal/compositor"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <transcript>",
		Short: "Show which clips a transcript would use, without encoding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("transcript is empty")
			}

			tl, err := ctx.generator(nil).Preview(text)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, tl)
			}

			out := cmd.OutOrStdout()
			printSegments(out, tl.Segments)
			printWarnings(out, tl.Warnings)
			fmt.Fprintf(out, "%d of %d parts resolved\n",
				len(tl.Segments)-compositor.CountWarnings(tl.Warnings, compositor.WarningFallback), tl.Parts)
			return nil
		},
	}
}

func printSegments(out io.Writer, segments []compositor.PlannedSegment) {
	if len(segments) == 0 {
		fmt.Fprintln(out, "No segments")
		return
	}
	rows := make([][]string, 0, len(segments))
	for i, s := range segments {
		rows = append(rows, []string{strconv.Itoa(i + 1), s.Word, s.Part, s.Asset.Name, string(s.Source), s.Caption})
	}
	fmt.Fprintln(out, renderTable(out, []string{"#", "Word", "Part", "Clip", "Source", "Caption"}, rows,
		[]columnAlignment{alignRight}))
}

func printWarnings(out io.Writer, warnings []compositor.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(out, "Warning (%s): %s\n", w.Kind, w.Message)
	}
}

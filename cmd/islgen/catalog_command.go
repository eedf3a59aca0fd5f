package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"isl-announcer/internal/catalog"
)

type catalogSummary struct {
	Dir            string          `json:"dir"`
	Entries        []catalog.Entry `json:"entries"`
	Videos         int             `json:"videos"`
	Images         int             `json:"images"`
	HasDefaultClip bool            `json:"hasDefaultClip"`
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the sign library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Build(ctx.mediaDir)
			if err != nil {
				return err
			}

			summary := catalogSummary{Dir: ctx.mediaDir, Entries: cat.Entries(filter)}
			summary.Videos, summary.Images = cat.Counts()
			_, summary.HasDefaultClip = catalog.NewResolver(cat).Default()

			if ctx.jsonOutput {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			if len(summary.Entries) == 0 {
				fmt.Fprintln(out, "No library files match")
			} else {
				rows := make([][]string, 0, len(summary.Entries))
				for _, e := range summary.Entries {
					rows = append(rows, []string{e.Word, e.Name, string(e.Type), humanSize(e.Size)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Word", "File", "Type", "Size"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
			}

			fmt.Fprintf(out, "%d videos, %d images in %s\n", summary.Videos, summary.Images, summary.Dir)
			if !summary.HasDefaultClip {
				fmt.Fprintln(out, "Warning: no default clip, unknown words will be left out")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only list words containing this text")
	return cmd
}

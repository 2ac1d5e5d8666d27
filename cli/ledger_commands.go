package cli

import (
	"fmt"
	"strconv"

	"github.com/nijaru/yt-digest/logger"
	"github.com/nijaru/yt-digest/view"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the analysis history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysed videos, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			entries := openLedgers(cfg, logger.Discard(), nil).history.All()
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "History is empty")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				v := view.FromEntry(entry)
				rows = append(rows, []string{
					entry.ID,
					truncateText(v.Basic.Title, 48),
					v.TranscriptSource,
					entry.Language,
					formatDollars(v.Costs.Total),
					v.AnalysisTime,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Method", "Lang", "Cost", "Analysed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show (0 for all)")
	return cmd
}

func newCostsCommand(ctx *commandContext) *cobra.Command {
	costsCmd := &cobra.Command{
		Use:   "costs",
		Short: "Inspect recorded spend",
	}
	costsCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show spend per day and overall",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			totals := openLedgers(cfg, logger.Discard(), nil).costs.Totals()
			out := cmd.OutOrStdout()
			if len(totals.Days) == 0 {
				fmt.Fprintln(out, "No costs recorded")
				return nil
			}

			rows := make([][]string, 0, len(totals.Days)+1)
			for _, day := range totals.Days {
				rows = append(rows, []string{
					day.Date,
					strconv.Itoa(day.Entries),
					formatDollars(day.Whisper),
					formatDollars(day.GPT),
					formatDollars(day.Total),
				})
			}
			rows = append(rows, []string{
				"total", "",
				formatDollars(totals.Whisper),
				formatDollars(totals.GPT),
				formatDollars(totals.Total),
			})

			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Entries", "Whisper", "LLM", "Total"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	})
	return costsCmd
}

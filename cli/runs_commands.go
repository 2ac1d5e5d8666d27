package cli

import (
	"fmt"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/repository/sqlite"
	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the analysis run log",
	}

	var (
		limit   int
		videoID string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := sqlite.NewRunRepository(db)
			out := cmd.OutOrStdout()

			if videoID != "" {
				run, err := repo.Latest(cmd.Context(), videoID)
				if errors.IsNotFound(err) {
					fmt.Fprintf(out, "No runs recorded for %s\n", videoID)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRuns([]*models.Run{run}))
				return nil
			}

			runs, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	listCmd.Flags().StringVar(&videoID, "video", "", "Show only the latest run for this video id")
	runsCmd.AddCommand(listCmd)

	return runsCmd
}

func renderRuns(runs []*models.Run) string {
	const stampLayout = "2006-01-02 15:04:05"

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(stampLayout),
			run.VideoID,
			run.Source,
			run.Method,
			string(run.Status),
			duration,
			truncateText(run.Error, 40),
		})
	}

	return renderTable(
		[]string{"Started", "Video", "Source", "Method", "Status", "Took", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vbonduro/sitecheck/internal/app"
	"github.com/vbonduro/sitecheck/internal/config"
	"github.com/vbonduro/sitecheck/internal/service"
)

// StatsCmd prints issue counts per project.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total, fixed and pending issues per project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, _ *config.Config) error {
				return printStats(cmd.Context(), cmd.OutOrStdout(), a.Reports)
			})
		},
	}
}

func printStats(ctx context.Context, w io.Writer, reports *service.ReportService) error {
	stats, err := reports.ProjectStats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(w, "No projects.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tTOTAL\tFIXED\tPENDING")
	for _, s := range stats {
		pending := fmt.Sprint(s.PendingIssues)
		if s.PendingIssues > 0 {
			pending = color.New(color.FgYellow).Sprint(pending)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.SiteName, s.TotalIssues, s.FixedIssues, pending)
	}
	return tw.Flush()
}

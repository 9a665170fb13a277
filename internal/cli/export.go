package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sitecheck/internal/app"
	"github.com/vbonduro/sitecheck/internal/config"
	"github.com/vbonduro/sitecheck/internal/export"
)

// ExportCmd writes the issue workbook of a project.
func ExportCmd() *cobra.Command {
	var (
		projectID string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every issue of a project to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, _ *config.Config) error {
				rows, err := a.Reports.CollectIssues(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				data, err := export.IssuesWorkbook(rows)
				if err != nil {
					return err
				}
				if out == "" {
					out = "issues-" + projectID + ".xlsx"
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d issues to %s\n", len(rows), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default issues-<project>.xlsx)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

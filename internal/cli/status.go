package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vbonduro/sitecheck/internal/app"
	"github.com/vbonduro/sitecheck/internal/config"
	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/service"
)

// StatusCmd prints apartment statuses per building and trade.
func StatusCmd() *cobra.Command {
	var (
		projectID string
		tradeName string
		building  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show apartment inspection statuses of a project",
		Long: `Print the status of every apartment of a project, per building and trade:
all clear, issues found or not checked.

Without --trade every trade of the project is shown; without --building every
building is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, _ *config.Config) error {
				return printStatuses(cmd.Context(), cmd.OutOrStdout(), a.Projects, a.Inspections, projectID, tradeName, building)
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	cmd.Flags().StringVarP(&tradeName, "trade", "t", "", "Only this trade")
	cmd.Flags().StringVarP(&building, "building", "b", "", "Only this building")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func printStatuses(ctx context.Context, w io.Writer, projects *service.ProjectService, inspections *service.InspectionService, projectID, tradeName, building string) error {
	project, err := projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	trades := project.ProjectTypes
	if tradeName != "" {
		trades = []string{tradeName}
	}

	fmt.Fprintf(w, "%s\n", color.New(color.Bold).Sprint(project.SiteName))
	for _, b := range project.Buildings {
		if building != "" && b.Number != building {
			continue
		}
		for _, t := range trades {
			statuses, err := inspections.BuildingStatuses(ctx, project.ID, t, b.Number)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\nBuilding %s, %s\n", b.Number, t)
			for _, apt := range b.ApartmentNumbers() {
				fmt.Fprintf(w, "  %s  %s\n", apt, statusLabel(statuses[apt]))
			}
		}
	}
	return nil
}

func statusLabel(s domain.ApartmentStatus) string {
	switch s {
	case domain.AllClear:
		return color.New(color.FgGreen).Sprint("✓ all clear")
	case domain.IssuesFound:
		return color.New(color.FgRed).Sprint("✗ issues found")
	default:
		return color.New(color.Faint).Sprint("· not checked")
	}
}

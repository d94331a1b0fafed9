package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/spf13/cobra"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	pendingStyle = cellStyle.Foreground(lipgloss.Color("214"))
)

func (a *App) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally stored projects, drawings or observations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				projects, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{p.ID, p.Name, deref(p.State), strconv.Itoa(p.DrawingsCount)})
				}
				render(cmd.OutOrStdout(), []string{"ID", "NAME", "STATE", "DRAWINGS"}, rows, nil)
				return nil
			})
		},
	})

	var projectID string
	drawings := &cobra.Command{
		Use:   "drawings",
		Short: "List drawings, optionally of one project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				list, err := r.ListDrawings(ctx, projectID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, d := range list {
					pages := "-"
					if d.TotalPages != nil {
						pages = strconv.Itoa(*d.TotalPages)
					}
					rows = append(rows, []string{d.ID, deref(d.SheetNumber), deref(d.Title), d.Status, pages})
				}
				render(cmd.OutOrStdout(), []string{"ID", "SHEET", "TITLE", "STATUS", "PAGES"}, rows, nil)
				return nil
			})
		},
	}
	drawings.Flags().StringVar(&projectID, "project", "", "project stable id")
	cmd.AddCommand(drawings)

	var drawingID string
	observations := &cobra.Command{
		Use:   "observations",
		Short: "List observations, optionally on one drawing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				list, err := r.ListObservations(ctx, drawingID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				pending := make(map[int]bool)
				for i, o := range list {
					rows = append(rows, []string{
						o.ID, o.DrawingID, strconv.Itoa(o.PageNumber),
						fmt.Sprintf("%.3f,%.3f", o.X, o.Y), o.Type, o.Description, o.SyncStatus,
					})
					pending[i] = o.SyncStatus != replica.StatusSynced
				}
				render(cmd.OutOrStdout(),
					[]string{"ID", "DRAWING", "PAGE", "X,Y", "TYPE", "DESCRIPTION", "SYNC"}, rows, pending)
				return nil
			})
		},
	}
	observations.Flags().StringVar(&drawingID, "drawing", "", "drawing stable id")
	cmd.AddCommand(observations)

	return cmd
}

// render writes rows as a bordered table; rows flagged in highlight are
// drawn in the pending color.
func render(w io.Writer, headers []string, rows [][]string, highlight map[int]bool) {
	if len(rows) == 0 {
		printf(w, "no records\n")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case highlight[row]:
				return pendingStyle
			default:
				return cellStyle
			}
		})

	printf(w, "%s\n", t.Render())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

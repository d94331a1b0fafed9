package cli

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/spf13/cobra"
)

type observationFlags struct {
	page        int
	x, y        float64
	typ         string
	description string
	is360       bool
}

func (f *observationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number on the drawing")
	cmd.Flags().Float64Var(&f.x, "x", 0, "horizontal position (0..1)")
	cmd.Flags().Float64Var(&f.y, "y", 0, "vertical position (0..1)")
	cmd.Flags().StringVar(&f.typ, "type", "observation", "observation type")
	cmd.Flags().StringVar(&f.description, "description", "", "free text")
	cmd.Flags().BoolVar(&f.is360, "panorama", false, "photo is a 360 panorama")
}

// patch keeps only the flags the user actually set.
func (f *observationFlags) patch(cmd *cobra.Command) replica.ObservationPatch {
	var p replica.ObservationPatch
	changed := cmd.Flags().Changed
	if changed("page") {
		p.PageNumber = &f.page
	}
	if changed("x") {
		p.X = &f.x
	}
	if changed("y") {
		p.Y = &f.y
	}
	if changed("type") {
		p.Type = &f.typ
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("panorama") {
		p.Is360Photo = &f.is360
	}
	return p
}

func (a *App) newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Create, edit or delete observations offline",
	}

	var addFlags observationFlags
	var drawingID string
	add := &cobra.Command{
		Use:   "add",
		Short: "Pin a new observation on a drawing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				id, err := r.CreateObservation(ctx, replica.NewObservation{
					DrawingID:   drawingID,
					PageNumber:  addFlags.page,
					X:           addFlags.x,
					Y:           addFlags.y,
					Type:        addFlags.typ,
					Description: addFlags.description,
					Is360Photo:  addFlags.is360,
				})
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s\n", id)
				return nil
			})
		},
	}
	addFlags.bind(add)
	add.Flags().StringVar(&drawingID, "drawing", "", "drawing stable id")
	_ = add.MarkFlagRequired("drawing")

	var editFlags observationFlags
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				if err := r.UpdateObservation(ctx, args[0], editFlags.patch(cmd)); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "updated %s\n", args[0])
				return nil
			})
		},
	}
	editFlags.bind(edit)

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an observation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				if err := r.DeleteObservation(ctx, args[0]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, edit, rm)
	return cmd
}

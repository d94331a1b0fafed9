package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncclient"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
	"github.com/spf13/cobra"
)

func (a *App) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local replica with the server",
		Long: `Pull server changes into the local replica, then push pending observation
edits. If the server reports a conflict the pull is repeated and the edits are
replayed, up to --attempts times. Edits that fail to push stay queued.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				s := syncclient.NewSynchronizer(r, newRemote(a.config), a.config.MaxSyncAttempts, a.logger(cmd))
				res, err := s.Synchronize(ctx)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "synced: %d pulled, %d pushed (%d attempt(s)), server time %s\n",
					res.Pulled, res.Pushed, res.Attempts, formatMillis(res.Timestamp))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the last pull time and pending local edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				last, err := r.LastPulledAt(ctx)
				if err != nil {
					return err
				}
				p, err := r.PendingChanges(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if last == nil {
					printf(out, "last pulled: never\n")
				} else {
					printf(out, "last pulled: %s\n", formatMillis(*last))
				}
				printf(out, "pending: %d created, %d updated, %d deleted\n",
					len(p.Changes.Created), len(p.Changes.Updated), len(p.Changes.Deleted))
				return nil
			})
		},
	})

	return cmd
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return timex.FromMillis(ms).Format(time.RFC3339)
}

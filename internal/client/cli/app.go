package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/fieldsync/internal/buildinfo"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncclient"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/spf13/cobra"
)

// newRemote builds the server transport; replaced in tests.
var newRemote = func(c *config.Config) syncclient.Remote {
	return syncclient.NewHTTPClient(c.ServerURL, c.AccessToken, c.RequestTimeout)
}

type App struct {
	config *config.Config
}

// NewRootCommand builds the command tree. cfg already holds defaults and JSON
// values; the persistent flags registered here override them.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	a := &App{config: cfg}

	root := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Record field observations offline and sync them with the server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(a.newSyncCmd(), a.newListCmd(), a.newObserveCmd(), a.newFetchCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	})
	return root
}

func (a *App) logger(cmd *cobra.Command) logging.Logger {
	return logging.NewJSON(logging.Options{Level: a.config.LogLevel, Output: cmd.ErrOrStderr()})
}

// withReplica validates the configuration, opens the replica for the
// duration of fn and closes it afterwards.
func (a *App) withReplica(cmd *cobra.Command, fn func(ctx context.Context, r *replica.Replica) error) error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := replica.Open(ctx, a.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open replica %s: %w", a.config.DatabaseDSN, err)
	}
	defer r.Close()

	return fn(ctx, r)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

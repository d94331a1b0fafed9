package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/netx"
	"github.com/spf13/cobra"
)

var errNoFileURL = errors.New("drawing has no file URL (storage disabled on the server or not synced yet)")

func (a *App) newFetchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch DRAWING_ID",
		Short: "Download a drawing's file through its signed URL",
		Long: `Download the file of a locally known drawing. Signed URLs expire; if the
download is refused, run "sync" again to refresh them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReplica(cmd, func(ctx context.Context, r *replica.Replica) error {
				d, err := r.GetDrawing(ctx, args[0])
				if err != nil {
					return err
				}
				if d.FileURL == "" {
					return errNoFileURL
				}

				target, err := filex.EnsureDir(dir)
				if err != nil {
					return err
				}
				name := filex.SafeName(deref(d.OriginalName), d.ID+filepath.Ext(deref(d.StoragePath)))

				client := &http.Client{Timeout: a.config.RequestTimeout}
				var size int64
				path, err := filex.WriteAtomic(target, name, func(w io.Writer) error {
					size, err = netx.DownloadPresignedURL(ctx, client, d.FileURL, w)
					return err
				})
				if err != nil {
					return fmt.Errorf("fetch drawing %s: %w", d.ID, err)
				}

				printf(cmd.OutOrStdout(), "%s (%d bytes)\n", path, size)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "drawings", "target directory")

	return cmd
}

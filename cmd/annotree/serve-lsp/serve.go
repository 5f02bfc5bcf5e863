package serve_lsp

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/annotree/cmd/annotree/internal/load"
	"github.com/walteh/annotree/pkg/lsp"
)

type Handler struct {
	Fs      afero.Fs
	Root    string
	Version string

	In  io.Reader
	Out io.Writer
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs(), In: os.Stdin, Out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "serve-lsp [dump files or patterns...]",
		Short: "serve the collected facts to an editor over stdio",
	}

	cmd.Flags().StringVar(&me.Root, "root", "", "directory relative source paths resolve against (default: the client's workspace root)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.Version = cmd.Root().Version
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

// stdio joins the two halves of the client connection. Closing only closes
// the streams that can be closed.
type stdio struct {
	io.Reader
	io.Writer
}

func (s stdio) Close() error {
	var errs []error
	for _, c := range []any{s.Reader, s.Writer} {
		if closer, ok := c.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return multierr.Combine(errs...)
}

func (me *Handler) Run(ctx context.Context, args []string) error {
	res, err := load.Collect(ctx, me.Fs, args)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int("files", res.Files.Len()).Int("facts", res.Tree.Len()).Strs("skipped", res.Failed).Msg("starting language server")

	server := lsp.NewServer(res.Tree, res.Files, me.Root, me.Version)
	if err := server.Serve(ctx, stdio{Reader: me.In, Writer: me.Out}); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

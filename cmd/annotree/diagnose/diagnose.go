package diagnose

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/cmd/annotree/internal/load"
	"github.com/walteh/annotree/pkg/diagnostic"
	"github.com/walteh/annotree/pkg/position"
)

// ErrFound is returned with --fail when any error level diagnostic was reported.
var ErrFound = errors.New("diagnostics reported errors")

type Handler struct {
	Fs     afero.Fs
	Format string
	Root   string
	Fail   bool
}

func NewDiagnoseCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "diagnose [dump files or patterns...]",
		Short: "report the error-recovery facts of the collected dumps",
	}

	cmd.Flags().StringVar(&me.Format, "format", "json", "json (publish diagnostics params) or text")
	cmd.Flags().StringVar(&me.Root, "root", "", "directory relative file paths resolve against (default working directory)")
	cmd.Flags().BoolVar(&me.Fail, "fail", false, "exit with an error when any error diagnostic is reported")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	res, err := load.Collect(ctx, me.Fs, args)
	if err != nil {
		return err
	}

	var formatter diagnostic.Formatter
	switch me.Format {
	case "json":
		root := me.Root
		if root == "" {
			if root, err = os.Getwd(); err != nil {
				return errors.Errorf("getting working directory: %w", err)
			}
		}
		formatter = diagnostic.JSONFormatter{Mapper: position.Mapper{Files: res.Files, Root: root}, Indent: true}
	case "text":
		formatter = diagnostic.TextFormatter{Files: res.Files}
	default:
		return errors.Errorf("unknown format %q", me.Format)
	}

	diags := diagnostic.Generate(ctx, res.Tree)
	data, err := formatter.Format(diags)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return err
	}

	if me.Fail && len(diags.Errors) > 0 {
		return errors.Errorf("%w: %d", ErrFound, len(diags.Errors))
	}
	return nil
}

package merge

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/cmd/annotree/internal/load"
	"github.com/walteh/annotree/pkg/config"
	"github.com/walteh/annotree/pkg/dump"
)

type Handler struct {
	Fs afero.Fs

	// Output is a path or "-" for standard output. Empty falls back to the
	// configured output.
	Output  string
	Format  string
	Resolve bool
}

func NewMergeCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "merge [dump files or patterns...]",
		Short: "combine dumps into one, re-keying their file tables",
	}

	cmd.Flags().StringVarP(&me.Output, "output", "o", "", "output path, - for stdout")
	cmd.Flags().StringVar(&me.Format, "format", "", "json or msgpack (default from the output extension)")
	cmd.Flags().BoolVar(&me.Resolve, "resolve", false, "resolve return operations before writing")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, stdout io.Writer, args []string) error {
	cfg := *config.FromContext(ctx)
	if me.Resolve {
		cfg.Resolve = true
	}
	if me.Output != "" {
		cfg.Output = &config.Output{Path: me.Output, Format: me.Format}
	} else if me.Format != "" && cfg.Output != nil {
		out := *cfg.Output
		out.Format = me.Format
		cfg.Output = &out
	}
	if cfg.Output == nil {
		return errors.New("no output: pass --output or set output in the config")
	}

	format, err := me.format(&cfg)
	if err != nil {
		return err
	}

	res, err := load.Collect(config.WithContext(ctx, &cfg), me.Fs, args)
	if err != nil {
		return err
	}

	merged := dump.FromTree(res.Tree, res.Files)

	if cfg.Output.Path == "-" {
		data, err := dump.Encode(merged, format)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	if err := dump.Write(ctx, me.Fs, cfg.Output.Path, merged); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("output", cfg.Output.Path).
		Int("annotations", len(merged.Annotations)).
		Int("files", len(merged.Files)).
		Strs("skipped", res.Failed).
		Msg("merged dumps")
	return nil
}

// format prefers an explicit format, then the extension, then JSON on stdout.
func (me *Handler) format(cfg *config.Config) (dump.Format, error) {
	if cfg.Output.Path == "-" && cfg.Output.Format == "" {
		return dump.FormatJSON, nil
	}
	if cfg.Output.Path != "-" && cfg.Output.Format != "" {
		f, err := dump.ParseFormat(cfg.Output.Format)
		if err != nil {
			return "", err
		}
		want, err := dump.FormatFor(cfg.Output.Path)
		if err != nil || want != f {
			return "", errors.Errorf("--format %s does not match the extension of %s", f, cfg.Output.Path)
		}
		return f, nil
	}
	return cfg.OutputFormat()
}

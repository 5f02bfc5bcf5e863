package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/cmd/annotree/internal/load"
	"github.com/walteh/annotree/pkg/annotation"
)

type Handler struct {
	Fs   afero.Fs
	JSON bool
	All  bool
}

func NewStatsCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "stats [dump files or patterns...]",
		Short: "count the stored facts per kind",
	}

	cmd.Flags().BoolVar(&me.JSON, "json", false, "print the counts as a JSON object")
	cmd.Flags().BoolVar(&me.All, "all", false, "list kinds with no facts too")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

// Summary is the machine readable form of the stats output.
type Summary struct {
	Files   int                     `json:"files"`
	Total   int                     `json:"total"`
	ByKind  map[annotation.Kind]int `json:"by_kind"`
	Skipped []string                `json:"skipped,omitempty"`
}

func (me *Handler) Run(ctx context.Context, out io.Writer, args []string) error {
	res, err := load.Collect(ctx, me.Fs, args)
	if err != nil {
		return err
	}

	counts := res.Tree.CountByKind()
	if me.All {
		for _, k := range annotation.Kinds() {
			counts[k] += 0
		}
	}

	if me.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "\t")
		err := enc.Encode(Summary{
			Files:   res.Files.Len(),
			Total:   res.Tree.Len(),
			ByKind:  counts,
			Skipped: res.Failed,
		})
		if err != nil {
			return errors.Errorf("encoding stats: %w", err)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, k := range annotation.Kinds() {
		n, ok := counts[k]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", k, n)
	}
	fmt.Fprintf(w, "total\t%d\n", res.Tree.Len())
	fmt.Fprintf(w, "files\t%d\n", res.Files.Len())
	return w.Flush()
}

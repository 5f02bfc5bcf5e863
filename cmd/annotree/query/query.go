package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/cmd/annotree/internal/load"
	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/completion"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/fragment"
	"github.com/walteh/annotree/pkg/hover"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/navigate"
	"github.com/walteh/annotree/pkg/position"
	"github.com/walteh/annotree/pkg/semtok"
)

const (
	ShowFacts      = "facts"
	ShowHover      = "hover"
	ShowCompletion = "completion"
	ShowDefinition = "definition"
	ShowReferences = "references"
	ShowLinks      = "links"
	ShowTokens     = "tokens"
)

type Handler struct {
	Fs afero.Fs

	At     string
	From   string
	To     string
	Offset int
	Source string

	Cursor  bool
	Resolve bool
	Show    string
	JSON    bool
	Root    string
}

func NewQueryCommand() *cobra.Command {
	me := &Handler{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "query [dump files or patterns...]",
		Short: "print the facts at a position or over a range",
	}

	cmd.Flags().StringVar(&me.At, "at", "", "position as path:line:column")
	cmd.Flags().StringVar(&me.From, "from", "", "range start as path:line:column")
	cmd.Flags().StringVar(&me.To, "to", "", "range end (exclusive) as path:line:column")
	cmd.Flags().IntVar(&me.Offset, "offset", -1, "byte offset into --source instead of --at")
	cmd.Flags().StringVar(&me.Source, "source", "", "source file the offset points into")
	cmd.Flags().BoolVar(&me.Cursor, "cursor", false, "also match facts ending right before the position")
	cmd.Flags().BoolVar(&me.Resolve, "resolve", false, "resolve return operations in the printed facts")
	cmd.Flags().StringVar(&me.Show, "show", ShowFacts, "one of facts, hover, completion, definition, references, links, tokens")
	cmd.Flags().BoolVar(&me.JSON, "json", false, "print facts as JSON records")
	cmd.Flags().StringVar(&me.Root, "root", "", "directory relative file paths resolve against (default working directory)")

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

	root := me.Root
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return errors.Errorf("getting working directory: %w", err)
		}
	}
	mapper := position.Mapper{Files: res.Files, Root: root}

	if me.From != "" || me.To != "" {
		if me.Show != ShowFacts {
			return errors.Errorf("--show %s needs a position, not a range", me.Show)
		}
		r, err := me.span(res.Files)
		if err != nil {
			return err
		}
		return me.printFacts(out, res.Tree, res.Tree.GetRange(r))
	}

	loc, err := me.position(res)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Stringer("at", loc).Str("show", me.Show).Msg("querying")

	switch me.Show {
	case ShowFacts:
		seq := res.Tree.GetLocation(loc)
		if me.Cursor {
			seq = res.Tree.GetCursor(loc)
		}
		return me.printFacts(out, res.Tree, seq)
	case ShowHover:
		info := hover.BuildHover(ctx, res.Tree, res.Files, loc)
		if info == nil {
			return nil
		}
		if me.JSON {
			return printJSON(out, info.ToProtocol())
		}
		_, err := fmt.Fprintln(out, strings.Join(info.Content, "\n\n"))
		return err
	case ShowCompletion:
		c := completion.ContextAt(ctx, res.Tree, loc)
		return printJSON(out, map[string]any{
			"situation": c.Situation.String(),
			"context":   c,
			"items":     completion.Items(c),
		})
	case ShowDefinition:
		return printJSON(out, navigate.Definition(res.Tree, mapper, loc))
	case ShowReferences:
		return printJSON(out, navigate.References(res.Tree, mapper, loc, true))
	case ShowLinks:
		return printJSON(out, navigate.DocumentLinks(res.Tree, mapper, loc.File))
	case ShowTokens:
		if me.JSON {
			return printJSON(out, semtok.Full(res.Tree, loc.File))
		}
		for _, tok := range semtok.Tokens(res.Tree, loc.File) {
			if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", tok.Range, tok.Type, tok.Modifiers); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("unknown --show %q", me.Show)
	}
}

func (me *Handler) span(files *location.FileTable) (location.Range, error) {
	if me.From == "" || me.To == "" {
		return location.Range{}, errors.New("--from and --to must be given together")
	}
	start, err := load.ParseAt(files, me.From)
	if err != nil {
		return location.Range{}, err
	}
	end, err := load.ParseAt(files, me.To)
	if err != nil {
		return location.Range{}, err
	}
	r := location.NewRange(start, end)
	if r.IsEmpty() {
		return location.Range{}, errors.Errorf("range %s is empty", r)
	}
	return r, nil
}

func (me *Handler) position(res *fragment.Result) (location.Location, error) {
	if me.Offset < 0 {
		if me.At == "" {
			return location.Location{}, errors.New("one of --at, --offset or --from/--to is required")
		}
		return load.ParseAt(res.Files, me.At)
	}

	if me.Source == "" {
		return location.Location{}, errors.New("--offset needs --source")
	}
	file, ok := res.Files.Lookup(me.Source)
	if !ok {
		return location.Location{}, errors.Errorf("%s is not referenced by any dump", me.Source)
	}
	text, err := afero.ReadFile(me.Fs, me.Source)
	if err != nil {
		return location.Location{}, errors.Errorf("reading source: %w", err)
	}
	return location.NewLineIndex(file, text).Location(me.Offset)
}

func (me *Handler) printFacts(out io.Writer, tree *annotation.Tree, seq iter.Seq2[location.Inclusive, annotation.Fact]) error {
	var records []dump.Record
	for span, f := range seq {
		if me.Resolve {
			f = tree.Resolved(f)
		}
		records = append(records, dump.Record{Range: span.HalfOpen(), Fact: annotation.Envelope{Fact: f}})
	}

	if me.JSON {
		if records == nil {
			records = []dump.Record{}
		}
		return printJSON(out, records)
	}

	for _, r := range records {
		value, err := json.Marshal(r.Fact.Fact)
		if err != nil {
			return errors.Errorf("encoding %s: %w", r.Fact.Fact.Kind(), err)
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\n", r.Range, r.Fact.Fact.Kind(), value); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	if err := enc.Encode(v); err != nil {
		return errors.Errorf("encoding output: %w", err)
	}
	return nil
}

// Package diagnostic reports the error-recovery facts of a tree as editor
// diagnostics.
package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/ast"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/position"
)

// Source is reported as the origin of every diagnostic.
const Source = "annotree"

// Diagnostics represents diagnostic information that can be formatted in different ways
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// Diagnostic is one finding over a source range.
type Diagnostic struct {
	Range    location.Range
	Severity protocol.DiagnosticSeverity
	Code     annotation.Kind
	Message  string
}

// Count is the total number of diagnostics.
func (d *Diagnostics) Count() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Hints)
}

// All returns every diagnostic ordered by position, errors before warnings
// before hints at the same position.
func (d *Diagnostics) All() []Diagnostic {
	all := slices.Concat(d.Errors, d.Warnings, d.Hints)
	slices.SortStableFunc(all, func(a, b Diagnostic) int {
		return a.Range.Start.Compare(b.Range.Start)
	})
	return all
}

func (d *Diagnostics) add(diag Diagnostic) {
	switch diag.Severity {
	case protocol.DiagnosticSeverityError:
		d.Errors = append(d.Errors, diag)
	case protocol.DiagnosticSeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Hints = append(d.Hints, diag)
	}
}

// Generate scans tree for facts that record broken or unfinished source.
// Raw ReturnOperations are reported as hints: a tree that went through
// Resolve has none left.
func Generate(ctx context.Context, tree *annotation.Tree) *Diagnostics {
	diagnostics := &Diagnostics{
		Errors:   make([]Diagnostic, 0),
		Warnings: make([]Diagnostic, 0),
		Hints:    make([]Diagnostic, 0),
	}

	for span, f := range tree.Iter() {
		diag, ok := fromFact(f)
		if !ok {
			continue
		}
		diag.Range = span.HalfOpen()
		diag.Code = f.Kind()
		diagnostics.add(diag)
	}

	zerolog.Ctx(ctx).Debug().
		Int("errors", len(diagnostics.Errors)).
		Int("warnings", len(diagnostics.Warnings)).
		Int("hints", len(diagnostics.Hints)).
		Msg("generated diagnostics")

	return diagnostics
}

func fromFact(f annotation.Fact) (Diagnostic, bool) {
	switch f := f.(type) {
	case annotation.ScopedMissingIdent:
		return Diagnostic{
			Severity: protocol.DiagnosticSeverityError,
			Message:  fmt.Sprintf("expected an identifier after %q", strings.Join(f.Scope, ".")+"."),
		}, true
	case annotation.IncompleteTypePath:
		return Diagnostic{
			Severity: protocol.DiagnosticSeverityError,
			Message:  fmt.Sprintf("incomplete type path %q", f.Path.String()+f.Op.String()),
		}, true
	case annotation.IncompleteTreePath:
		path := ast.FormatTreePath(f.Absolute, f.Path)
		if len(f.Path) > 0 {
			path += "/"
		}
		return Diagnostic{
			Severity: protocol.DiagnosticSeverityError,
			Message:  fmt.Sprintf("incomplete tree path %q", path),
		}, true
	case annotation.ReturnOperation:
		return Diagnostic{
			Severity: protocol.DiagnosticSeverityHint,
			Message:  "return value has not been resolved",
		}, true
	}
	return Diagnostic{}, false
}

// ToProtocol converts a single diagnostic.
func (d Diagnostic) ToProtocol() protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    position.RangeToProtocol(d.Range),
		Severity: d.Severity,
		Code:     d.Code.String(),
		Source:   Source,
		Message:  d.Message,
	}
}

// Publish groups the diagnostics per document, in URI order. Diagnostics in
// files the mapper cannot name are dropped.
func (d *Diagnostics) Publish(m position.Mapper) []protocol.PublishDiagnosticsParams {
	byFile := map[location.FileID][]protocol.Diagnostic{}
	for _, diag := range d.All() {
		byFile[diag.Range.Start.File] = append(byFile[diag.Range.Start.File], diag.ToProtocol())
	}

	out := make([]protocol.PublishDiagnosticsParams, 0, len(byFile))
	for id, diags := range byFile {
		u, ok := m.URI(id)
		if !ok {
			continue
		}
		out = append(out, protocol.PublishDiagnosticsParams{URI: u, Diagnostics: diags})
	}
	slices.SortFunc(out, func(a, b protocol.PublishDiagnosticsParams) int {
		return strings.Compare(string(a.URI), string(b.URI))
	})
	return out
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	// Format formats diagnostics into a specific output format
	Format(diagnostics *Diagnostics) ([]byte, error)
}

// JSONFormatter writes the per-document publish payloads as JSON.
type JSONFormatter struct {
	Mapper position.Mapper
	Indent bool
}

func (f JSONFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.New("diagnostics is nil")
	}
	params := diagnostics.Publish(f.Mapper)
	if f.Indent {
		return json.MarshalIndent(params, "", "\t")
	}
	return json.Marshal(params)
}

// TextFormatter writes one "path:line:col: severity: message" line per diagnostic.
type TextFormatter struct {
	Files *location.FileTable
}

func (f TextFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.New("diagnostics is nil")
	}

	var sb strings.Builder
	for _, d := range diagnostics.All() {
		path, ok := f.Files.Path(d.Range.Start.File)
		if !ok {
			path = "<builtins>"
		}
		fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", path, d.Range.Start.Line, d.Range.Start.Column, severityName(d.Severity), d.Message)
	}
	return []byte(sb.String()), nil
}

func severityName(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.DiagnosticSeverityError:
		return "error"
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	}
	return "hint"
}

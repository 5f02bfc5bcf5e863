// Package ast holds the identifier and path shapes annotations refer to. The
// full syntax tree lives with the parser; only what facts expose is here.
package ast

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Ident is a single identifier as written in source.
type Ident = string

// PathOp is the separator in front of a type path segment.
type PathOp uint8

const (
	// PathOpSlash is the "/" separator: exact parent-child step.
	PathOpSlash PathOp = iota
	// PathOpDot is the "." separator: upward search.
	PathOpDot
	// PathOpColon is the ":" separator: downward search.
	PathOpColon
)

func (op PathOp) String() string {
	switch op {
	case PathOpSlash:
		return "/"
	case PathOpDot:
		return "."
	case PathOpColon:
		return ":"
	}
	return "?"
}

func ParsePathOp(s string) (PathOp, error) {
	switch s {
	case "/":
		return PathOpSlash, nil
	case ".":
		return PathOpDot, nil
	case ":":
		return PathOpColon, nil
	}
	return 0, errors.Errorf("unknown path operator %q", s)
}

// MarshalText and UnmarshalText keep path operators readable in dumps.
func (op PathOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

func (op *PathOp) UnmarshalText(b []byte) error {
	parsed, err := ParsePathOp(string(b))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// TypePathElem is one (separator, name) step of a TypePath.
type TypePathElem struct {
	Op   PathOp `json:"op" msgpack:"op"`
	Name Ident  `json:"name" msgpack:"name"`
}

// TypePath is a dotted/slashed path such as /obj/item.proc.
type TypePath []TypePathElem

func (p TypePath) String() string {
	var sb strings.Builder
	for _, e := range p {
		sb.WriteString(e.Op.String())
		sb.WriteString(e.Name)
	}
	return sb.String()
}

// Idents drops the separators.
func (p TypePath) Idents() []Ident {
	out := make([]Ident, len(p))
	for i, e := range p {
		out[i] = e.Name
	}
	return out
}

// FormatTreePath renders a slash-joined tree path, with a leading slash when absolute.
func FormatTreePath(absolute bool, path []Ident) string {
	joined := strings.Join(path, "/")
	if absolute {
		return "/" + joined
	}
	return joined
}

// VarTypeFlags are the declaration keywords preceding a variable's type.
type VarTypeFlags uint8

const (
	VarStatic VarTypeFlags = 1 << iota
	VarConst
	VarTmp
	VarFinal
	VarPrivate
	VarProtected
)

var varFlagNames = []struct {
	flag VarTypeFlags
	name string
}{
	{VarStatic, "static"},
	{VarConst, "const"},
	{VarTmp, "tmp"},
	{VarFinal, "final"},
	{VarPrivate, "private"},
	{VarProtected, "protected"},
}

func (f VarTypeFlags) Has(flag VarTypeFlags) bool {
	return f&flag != 0
}

// Names lists the set flags in declaration order.
func (f VarTypeFlags) Names() []string {
	var out []string
	for _, n := range varFlagNames {
		if f.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

// VarType is the declared type of a variable: its flags and type path.
type VarType struct {
	Flags VarTypeFlags `json:"flags,omitempty" msgpack:"flags,omitempty"`
	Path  []Ident      `json:"path,omitempty" msgpack:"path,omitempty"`
}

func (v VarType) String() string {
	parts := append([]string{"var"}, v.Flags.Names()...)
	parts = append(parts, v.Path...)
	return strings.Join(parts, "/")
}

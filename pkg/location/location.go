// Package location defines the ordered source positions annotations are keyed by.
package location

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// FileID identifies a source file within a FileTable. File 0 is reserved for builtins.
type FileID uint16

// Location is a position in source text. Locations are totally ordered by
// file, then line, then column.
type Location struct {
	File   FileID `json:"file" msgpack:"file"`
	Line   uint32 `json:"line" msgpack:"line"`
	Column uint16 `json:"column" msgpack:"column"`
}

// Compare returns -1, 0 or +1 depending on whether l sorts before, equal to or after other.
func (l Location) Compare(other Location) int {
	switch {
	case l.File != other.File:
		return cmp3(l.File < other.File)
	case l.Line != other.Line:
		return cmp3(l.Line < other.Line)
	case l.Column != other.Column:
		return cmp3(l.Column < other.Column)
	}
	return 0
}

func cmp3(less bool) int {
	if less {
		return -1
	}
	return 1
}

func (l Location) Less(other Location) bool {
	return l.Compare(other) < 0
}

func (l Location) IsZero() bool {
	return l == Location{}
}

// Pred returns the position immediately before l. Column 0 steps back to the
// last column of the previous line, and line 0 steps back to the previous file.
// The zero Location wraps around to the largest one.
func (l Location) Pred() Location {
	switch {
	case l.Column != 0:
		l.Column--
	case l.Line != 0:
		l.Line--
		l.Column = math.MaxUint16
	default:
		l.File--
		l.Line = math.MaxUint32
		l.Column = math.MaxUint16
	}
	return l
}

// Succ is the inverse of Pred.
func (l Location) Succ() Location {
	switch {
	case l.Column != math.MaxUint16:
		l.Column++
	case l.Line != math.MaxUint32:
		l.Line++
		l.Column = 0
	default:
		l.File++
		l.Line = 0
		l.Column = 0
	}
	return l
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d:%d", l.File, l.Line, l.Column)
}

// ParseLocation parses the "file:line:column" form produced by String.
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Location{}, errors.Errorf("location %q: expected file:line:column", s)
	}

	file, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return Location{}, errors.Errorf("location %q: parsing file: %w", s, err)
	}
	line, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Location{}, errors.Errorf("location %q: parsing line: %w", s, err)
	}
	col, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return Location{}, errors.Errorf("location %q: parsing column: %w", s, err)
	}

	return Location{File: FileID(file), Line: uint32(line), Column: uint16(col)}, nil
}

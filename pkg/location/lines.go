package location

import (
	"sort"

	"fortio.org/safecast"
	"github.com/apparentlymart/go-textseg/v13/textseg"
	"gitlab.com/tozd/go/errors"
)

// LineIndex converts between byte offsets in a file's text and Locations.
// Lines and columns are 1-based; columns count grapheme clusters, so a
// multi-byte character or a combined emoji occupies a single column.
type LineIndex struct {
	file   FileID
	text   []byte
	starts []int
}

func NewLineIndex(file FileID, text []byte) *LineIndex {
	starts := []int{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{file: file, text: text, starts: starts}
}

func (x *LineIndex) LineCount() int {
	return len(x.starts)
}

// Location returns the location of the byte at offset. An offset equal to
// the text length addresses the position just past the last character.
func (x *LineIndex) Location(offset int) (Location, error) {
	if offset < 0 || offset > len(x.text) {
		return Location{}, errors.Errorf("offset %d out of range [0, %d]", offset, len(x.text))
	}

	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1

	cols, err := textseg.TokenCount(x.text[x.starts[line]:offset], textseg.ScanGraphemeClusters)
	if err != nil {
		return Location{}, errors.Errorf("counting columns at offset %d: %w", offset, err)
	}

	l, err := safecast.Conv[uint32](line + 1)
	if err != nil {
		return Location{}, errors.Errorf("line at offset %d: %w", offset, err)
	}
	c, err := safecast.Conv[uint16](cols + 1)
	if err != nil {
		return Location{}, errors.Errorf("column at offset %d: %w", offset, err)
	}

	return Location{File: x.file, Line: l, Column: c}, nil
}

// Offset is the inverse of Location.
func (x *LineIndex) Offset(loc Location) (int, error) {
	if loc.File != x.file {
		return 0, errors.Errorf("location %s is not in file %d", loc, x.file)
	}
	if loc.Line == 0 || int(loc.Line) > len(x.starts) || loc.Column == 0 {
		return 0, errors.Errorf("location %s out of range", loc)
	}

	start := x.starts[loc.Line-1]
	end := len(x.text)
	if int(loc.Line) < len(x.starts) {
		end = x.starts[loc.Line]
	}

	offset := start
	for col := uint16(1); col < loc.Column; col++ {
		if offset >= end {
			return 0, errors.Errorf("location %s is past the end of its line", loc)
		}
		advance, _, err := textseg.ScanGraphemeClusters(x.text[offset:end], true)
		if err != nil {
			return 0, errors.Errorf("scanning line %d: %w", loc.Line, err)
		}
		offset += advance
	}

	return offset, nil
}

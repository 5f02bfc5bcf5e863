package location

import (
	"fmt"
)

// Range is a half-open span [Start, End) as produced from token spans.
type Range struct {
	Start Location `json:"start" msgpack:"start"`
	End   Location `json:"end" msgpack:"end"`
}

// Inclusive is a closed span [Start, End], the form the interval store indexes.
type Inclusive struct {
	Start Location `json:"start" msgpack:"start"`
	End   Location `json:"end" msgpack:"end"`
}

func NewRange(start, end Location) Range {
	return Range{Start: start, End: end}
}

func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) >= 0
}

// Contains reports whether start <= loc < end.
func (r Range) Contains(loc Location) bool {
	return r.Start.Compare(loc) <= 0 && loc.Compare(r.End) < 0
}

// Inclusive converts r to [Start, End.Pred()]. An empty or inverted range has
// no inclusive form; passing one is a caller bug and panics.
func (r Range) Inclusive() Inclusive {
	if r.IsEmpty() {
		panic(fmt.Sprintf("location: empty or inverted range %s", r))
	}
	return Inclusive{Start: r.Start, End: r.End.Pred()}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Point is the inclusive range covering exactly loc.
func Point(loc Location) Inclusive {
	return Inclusive{Start: loc, End: loc}
}

// HalfOpen converts r back to [Start, End.Succ()).
func (r Inclusive) HalfOpen() Range {
	return Range{Start: r.Start, End: r.End.Succ()}
}

func (r Inclusive) IsInverted() bool {
	return r.Start.Compare(r.End) > 0
}

func (r Inclusive) Contains(loc Location) bool {
	return r.Start.Compare(loc) <= 0 && loc.Compare(r.End) <= 0
}

func (r Inclusive) Overlaps(other Inclusive) bool {
	return r.Start.Compare(other.End) <= 0 && other.Start.Compare(r.End) <= 0
}

func (r Inclusive) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start, r.End)
}

// Package dump persists annotation trees so independently parsed fragments can
// be stored, shipped and merged later.
package dump

import (
	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/location"
)

// Version is bumped whenever the on-disk shape changes incompatibly.
const Version = 1

// Record is one stored fact with the half-open range it was inserted under.
type Record struct {
	Range location.Range      `json:"range" msgpack:"range"`
	Fact  annotation.Envelope `json:"fact" msgpack:"fact"`
}

// Dump is a parse unit on disk: its file table and every fact it produced.
// ID identifies the parse unit; merging dumps produces a fresh one.
type Dump struct {
	Version     int                  `json:"version" msgpack:"version"`
	ID          uuid.UUID            `json:"id" msgpack:"id"`
	Files       []location.FileEntry `json:"files" msgpack:"files"`
	Annotations []Record             `json:"annotations" msgpack:"annotations"`
}

// FromTree snapshots tree in its native order. files may be nil when every
// location points at the builtins file.
func FromTree(tree *annotation.Tree, files *location.FileTable) *Dump {
	d := &Dump{
		Version:     Version,
		ID:          uuid.New(),
		Files:       []location.FileEntry{},
		Annotations: make([]Record, 0, tree.Len()),
	}
	if files != nil {
		d.Files = files.Entries()
	}
	for span, f := range tree.Iter() {
		d.Annotations = append(d.Annotations, Record{
			Range: span.HalfOpen(),
			Fact:  annotation.Envelope{Fact: f},
		})
	}
	return d
}

// Tree rebuilds an annotation tree from the dump's records.
func (d *Dump) Tree() (*annotation.Tree, error) {
	tree := annotation.NewTree()
	for i, rec := range d.Annotations {
		if rec.Fact.Fact == nil {
			return nil, errors.Errorf("record %d: missing fact", i)
		}
		if rec.Range.IsEmpty() {
			return nil, errors.Errorf("record %d: empty range %s", i, rec.Range)
		}
		tree.Insert(rec.Range, rec.Fact.Fact)
	}
	return tree, nil
}

// Validate checks the header and that every location refers to a listed file.
func (d *Dump) Validate() error {
	if d.Version != Version {
		return errors.Errorf("unsupported dump version %d, want %d", d.Version, Version)
	}

	known := map[location.FileID]bool{location.BuiltinsFile: true}
	for _, f := range d.Files {
		if f.ID == location.BuiltinsFile {
			return errors.Errorf("file %q uses the reserved builtins id", f.Path)
		}
		if known[f.ID] {
			return errors.Errorf("file id %d listed twice", f.ID)
		}
		known[f.ID] = true
	}

	for i, rec := range d.Annotations {
		if !known[rec.Range.Start.File] || !known[rec.Range.End.File] {
			return errors.Errorf("record %d: range %s refers to an unlisted file", i, rec.Range)
		}
	}
	return nil
}

// Remap registers the dump's files in table and rewrites every location so
// it uses table's IDs. Dumps remapped into one table can be merged safely.
// MacroUse definition locations and ReturnOperation ranges are rewritten too.
func (d *Dump) Remap(table *location.FileTable) error {
	ids := map[location.FileID]location.FileID{location.BuiltinsFile: location.BuiltinsFile}
	for _, f := range d.Files {
		id, err := table.Register(f.Path)
		if err != nil {
			return errors.Errorf("remapping %q: %w", f.Path, err)
		}
		ids[f.ID] = id
	}

	m := remapper(ids)
	for i := range d.Annotations {
		rec := &d.Annotations[i]
		r, err := m.moveRange(rec.Range)
		if err != nil {
			return errors.Errorf("record %d: %w", i, err)
		}
		rec.Range = r

		if rec.Fact.Fact, err = m.fact(rec.Fact.Fact); err != nil {
			return errors.Errorf("record %d: %w", i, err)
		}
	}

	d.Files = table.Entries()
	return nil
}

// Rebase re-keys a tree whose locations use IDs from one table to another,
// registering from's files in to in ID order. The native order of tree is
// kept.
func Rebase(tree *annotation.Tree, from, to *location.FileTable) (*annotation.Tree, error) {
	d := FromTree(tree, from)
	if err := d.Remap(to); err != nil {
		return nil, err
	}
	return d.Tree()
}

type remapper map[location.FileID]location.FileID

func (m remapper) move(loc location.Location) (location.Location, error) {
	id, ok := m[loc.File]
	if !ok {
		return loc, errors.Errorf("location %s refers to an unlisted file", loc)
	}
	loc.File = id
	return loc, nil
}

func (m remapper) moveRange(r location.Range) (location.Range, error) {
	start, err := m.move(r.Start)
	if err != nil {
		return r, err
	}
	end, err := m.move(r.End)
	if err != nil {
		return r, err
	}
	return location.NewRange(start, end), nil
}

// fact rewrites the locations a fact carries in its payload.
func (m remapper) fact(f annotation.Fact) (annotation.Fact, error) {
	var err error
	switch f := f.(type) {
	case annotation.MacroUse:
		f.DefinitionLocation, err = m.move(f.DefinitionLocation)
		return f, err
	case annotation.ReturnOperation:
		f.Range, err = m.moveRange(f.Range)
		return f, err
	case annotation.ReturnStatement:
		out := make([]annotation.Fact, len(f.ReturnedValue))
		for i, v := range f.ReturnedValue {
			if out[i], err = m.fact(v); err != nil {
				return f, err
			}
		}
		return annotation.ReturnStatement{ReturnedValue: out}, nil
	}
	return f, nil
}

package location

import (
	"math"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// BuiltinsFile is the reserved file for locations with no backing source file.
const BuiltinsFile FileID = 0

// FileTable maps FileIDs to the paths they were registered with. It is safe
// for concurrent use so fragment producers can register files in parallel.
type FileTable struct {
	mu    sync.RWMutex
	paths []string
	ids   map[string]FileID
}

func NewFileTable() *FileTable {
	return &FileTable{
		paths: []string{""},
		ids:   map[string]FileID{},
	}
}

// Register returns the ID of path, assigning the next free one on first sight.
func (t *FileTable) Register(path string) (FileID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[path]; ok {
		return id, nil
	}
	if len(t.paths) > math.MaxUint16 {
		return 0, errors.Errorf("registering %q: file table is full", path)
	}

	id := FileID(len(t.paths))
	t.paths = append(t.paths, path)
	t.ids[path] = id
	return id, nil
}

// Path returns the path registered for id.
func (t *FileTable) Path(id FileID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id == BuiltinsFile || int(id) >= len(t.paths) {
		return "", false
	}
	return t.paths[id], true
}

func (t *FileTable) Lookup(path string) (FileID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.ids[path]
	return id, ok
}

// Len is the number of registered files, not counting the builtins slot.
func (t *FileTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.paths) - 1
}

// FileEntry is one row of a FileTable.
type FileEntry struct {
	ID   FileID `json:"id" msgpack:"id"`
	Path string `json:"path" msgpack:"path"`
}

// Entries lists the registered files in ID order.
func (t *FileTable) Entries() []FileEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]FileEntry, 0, len(t.paths)-1)
	for i, p := range t.paths[1:] {
		out = append(out, FileEntry{ID: FileID(i + 1), Path: p})
	}
	return out
}

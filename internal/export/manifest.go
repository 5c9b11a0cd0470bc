package export

// EntryKind distinguishes generated content from copied files.
type EntryKind int

const (
	// EntryContent carries generated bytes.
	EntryContent EntryKind = iota
	// EntryCopy references a source file to copy verbatim.
	EntryCopy
)

// Entry is one output file in the manifest.
type Entry struct {
	Path    string // relative to the site root, forward slashes
	Kind    EntryKind
	Content []byte // EntryContent only
	Source  string // EntryCopy only: absolute source path
}

// Manifest is the complete, ordered file set handed to the writer.
// Paths are unique; a resource referenced by many notes appears once.
type Manifest struct {
	entries []Entry
	index   map[string]int
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{index: make(map[string]int)}
}

// AddContent adds a generated file. A duplicate path is a CollisionError;
// the layout planner guarantees uniqueness, so hitting this is a bug.
func (m *Manifest) AddContent(path string, content []byte) error {
	return m.add(Entry{Path: path, Kind: EntryContent, Content: content})
}

// AddCopy adds a file copied from source. Re-adding the same path with
// the same source is a no-op (shared resources reach this from every
// referencing note); a differing source is a CollisionError.
func (m *Manifest) AddCopy(path, source string) error {
	if i, ok := m.index[path]; ok {
		if m.entries[i].Kind == EntryCopy && m.entries[i].Source == source {
			return nil
		}
		return &CollisionError{Path: path, IDs: []string{m.entries[i].Source, source}}
	}
	return m.add(Entry{Path: path, Kind: EntryCopy, Source: source})
}

func (m *Manifest) add(e Entry) error {
	if _, ok := m.index[e.Path]; ok {
		return &CollisionError{Path: e.Path}
	}
	m.index[e.Path] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

// Has reports whether the manifest contains the given path.
func (m *Manifest) Has(path string) bool {
	_, ok := m.index[path]
	return ok
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Entries returns the entries in insertion order.
func (m *Manifest) Entries() []Entry { return m.entries }

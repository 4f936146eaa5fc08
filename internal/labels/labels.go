// Package labels loads the label database of an exam form: the page and
// bubble geometry plus the physical position of every answer bubble.
package labels

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Group names used by the exam forms.
const (
	HeadGroup   = "head"
	UIDGroup    = "UID"
	AnswerGroup = "ans"
)

// Format selects the document syntax of a label database.
type Format int

const (
	FormatXML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "xml"
}

// FormatFromPath picks the format from the file extension; anything that is
// not .yaml/.yml is read as XML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatXML
	}
}

var (
	ErrMissingHead  = errors.New("head lacks paper or bubble dimensions")
	ErrBadCoord     = errors.New("malformed coordinate")
	ErrBadKey       = errors.New("key is not <index>:<value>")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrIndexGap     = errors.New("logical indices are not contiguous")
	ErrEmptyGroup   = errors.New("group has no positions")
	ErrDupGroup     = errors.New("duplicate group")
)

// FormatError reports an inconsistent or malformed label database.
type FormatError struct {
	Source string
	Group  string
	Key    string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("label database")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	if e.Group != "" {
		fmt.Fprintf(&b, ": group %q", e.Group)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " key %q", e.Key)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

// Head holds the physical page and bubble dimensions in millimetres.
type Head struct {
	PaperWidth   float64
	PaperHeight  float64
	BubbleWidth  float64
	BubbleHeight float64
	// Extra keeps any additional head items by name.
	Extra map[string]Value
}

// Entry is one bubble: compound key, its parsed parts and its position in
// millimetres with the origin at the bottom-left corner of the page.
type Entry struct {
	Key   string
	Index int
	Value string
	X     float64
	Y     float64
}

// Group is a named set of entries in document order.
type Group struct {
	Name    string
	Entries []Entry
	// Base is the smallest logical index (1, or 0 for legacy forms).
	Base int
	// Count is the number of distinct logical indices.
	Count int
}

// Database is a validated label database.
type Database struct {
	Head   Head
	Groups []*Group
}

// Group returns the named group or nil.
func (db *Database) Group(name string) *Group {
	for _, g := range db.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// FieldCount returns the number of logical fields of the named group, 0 when
// the group is absent.
func (db *Database) FieldCount(name string) int {
	if g := db.Group(name); g != nil {
		return g.Count
	}
	return 0
}

// Label is an entry flattened with its group name.
type Label struct {
	Group string
	Entry
}

// Labels returns every entry of every group in document order.
func (db *Database) Labels() []Label {
	var out []Label
	for _, g := range db.Groups {
		for _, e := range g.Entries {
			out = append(out, Label{Group: g.Name, Entry: e})
		}
	}
	return out
}

// Load reads the label database at path; the format follows the extension.
func Load(path string) (*Database, error) {
	f, err := os.Open(path) //nolint:gosec // G304: label database path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("open label database: %w", err)
	}
	defer func() { _ = f.Close() }()

	db, err := Parse(f, FormatFromPath(path))
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Source = path
		}
		return nil, err
	}
	slog.Debug("Label database loaded", "path", path, "groups", len(db.Groups),
		"uid_fields", db.FieldCount(UIDGroup), "answer_fields", db.FieldCount(AnswerGroup))
	return db, nil
}

// Save writes db to path in the format its extension selects.
func (db *Database) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: export path comes from the command line
	if err != nil {
		return fmt.Errorf("create label database: %w", err)
	}
	write := db.WriteXML
	if FormatFromPath(path) == FormatYAML {
		write = db.WriteYAML
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode label database: %w", err)
	}
	return f.Close()
}

// Parse decodes and validates a label database.
func Parse(r io.Reader, format Format) (*Database, error) {
	var (
		raw *rawDatabase
		err error
	)
	switch format {
	case FormatYAML:
		raw, err = decodeYAML(r)
	default:
		raw, err = decodeXML(r)
	}
	if err != nil {
		return nil, err
	}
	return raw.build()
}

// rawDatabase is the syntax-independent intermediate form.
type rawDatabase struct {
	head   []rawItem
	groups []rawGroup
}

type rawGroup struct {
	name  string
	items []rawItem
}

type rawItem struct {
	name  string
	value Value
}

func (raw *rawDatabase) build() (*Database, error) {
	db := &Database{}
	if err := db.Head.fill(raw.head); err != nil {
		return nil, err
	}
	for _, rg := range raw.groups {
		if db.Group(rg.name) != nil {
			return nil, &FormatError{Group: rg.name, Err: ErrDupGroup}
		}
		g, err := buildGroup(rg)
		if err != nil {
			return nil, err
		}
		db.Groups = append(db.Groups, g)
	}
	return db, nil
}

func (h *Head) fill(items []rawItem) error {
	found := map[string]bool{}
	for _, it := range items {
		n, numeric := it.value.Number()
		switch strings.ToLower(it.name) {
		case "paperwidth":
			h.PaperWidth = n
		case "paperheight":
			h.PaperHeight = n
		case "bubblewidth":
			h.BubbleWidth = n
		case "bubbleheight":
			h.BubbleHeight = n
		default:
			if h.Extra == nil {
				h.Extra = map[string]Value{}
			}
			h.Extra[it.name] = it.value
			continue
		}
		if !numeric || n <= 0 {
			return &FormatError{Group: HeadGroup, Key: it.name, Err: ErrMissingHead}
		}
		found[strings.ToLower(it.name)] = true
	}
	for _, k := range []string{"paperwidth", "paperheight", "bubblewidth", "bubbleheight"} {
		if !found[k] {
			return &FormatError{Group: HeadGroup, Key: k, Err: ErrMissingHead}
		}
	}
	return nil
}

func buildGroup(rg rawGroup) (*Group, error) {
	if len(rg.items) == 0 {
		return nil, &FormatError{Group: rg.name, Err: ErrEmptyGroup}
	}
	g := &Group{Name: rg.name}
	seen := make(map[string]bool, len(rg.items))
	indices := map[int]bool{}
	lo, hi := 0, 0
	for i, it := range rg.items {
		idx, val, err := SplitKey(it.name)
		if err != nil {
			return nil, &FormatError{Group: rg.name, Key: it.name, Err: err}
		}
		if seen[it.name] {
			return nil, &FormatError{Group: rg.name, Key: it.name, Err: ErrDuplicateKey}
		}
		seen[it.name] = true
		if it.value.Kind != KindCoord {
			return nil, &FormatError{Group: rg.name, Key: it.name, Err: ErrBadCoord}
		}
		if i == 0 || idx < lo {
			lo = idx
		}
		if i == 0 || idx > hi {
			hi = idx
		}
		indices[idx] = true
		g.Entries = append(g.Entries, Entry{Key: it.name, Index: idx, Value: val, X: it.value.X, Y: it.value.Y})
	}
	if lo != 0 && lo != 1 {
		return nil, &FormatError{Group: rg.name, Err: fmt.Errorf("%w: first index is %d", ErrIndexGap, lo)}
	}
	for i := lo; i <= hi; i++ {
		if !indices[i] {
			return nil, &FormatError{Group: rg.name, Err: fmt.Errorf("%w: index %d has no positions", ErrIndexGap, i)}
		}
	}
	g.Base = lo
	g.Count = hi - lo + 1
	return g, nil
}

// SplitKey splits a compound key "<index>:<value>".
func SplitKey(key string) (int, string, error) {
	name, value, ok := strings.Cut(key, ":")
	if !ok || value == "" || strings.Contains(value, ":") {
		return 0, "", ErrBadKey
	}
	idx, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil || idx < 0 {
		return 0, "", ErrBadKey
	}
	return idx, value, nil
}

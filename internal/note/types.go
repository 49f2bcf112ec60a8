// Package note defines the core entities of an indexed vault: notes,
// their stable identifiers, and the link references extracted from
// markdown sources. Types here carry no behavior beyond accessors so
// they can flow freely between the parser, the store, and the planner.
package note

import (
	"time"

	"github.com/google/uuid"
)

// ID is the opaque stable identifier of a note. It survives renames and
// key changes; only the identity registry allocates new ones.
type ID [16]byte

// NewID allocates a fresh random note id.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical string form produced by String.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero id (no note).
func (id ID) IsZero() bool {
	return id == ID{}
}

// Key is the hierarchical textual identifier of a note, derived from its
// path by the semantic model. Example: "projects.dendrite".
type Key string

// Span is a half-open byte range [Start, End) into a file's bytes.
type Span struct {
	Start int `msgpack:"s"`
	End   int `msgpack:"e"`
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// LinkKind discriminates the two link syntaxes tracked by the engine.
type LinkKind int

const (
	// KindWiki is a [[target]] style link.
	KindWiki LinkKind = iota
	// KindMarkdown is a standard [label](dest) inline link.
	KindMarkdown
)

func (k LinkKind) String() string {
	switch k {
	case KindWiki:
		return "wiki"
	case KindMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// AnchorKind discriminates heading anchors from block anchors.
type AnchorKind int

const (
	// AnchorHeading targets a heading by its slug.
	AnchorHeading AnchorKind = iota
	// AnchorBlock targets a ^block-id.
	AnchorBlock
)

// Anchor is the sub-note target of a link: a heading slug or a block id.
type Anchor struct {
	Kind  AnchorKind `msgpack:"k"`
	Value string     `msgpack:"v"`
}

// LinkRef is an un-resolved outgoing link as written in the source file.
// Refs are stored un-resolved so they survive renames of their target;
// resolution happens on demand against the current key set.
type LinkRef struct {
	Kind   LinkKind `msgpack:"k"`
	Target string   `msgpack:"t"`
	Alias  string   `msgpack:"a,omitempty"`
	Anchor *Anchor  `msgpack:"an,omitempty"`
	Span   Span     `msgpack:"sp"`
}

// Heading is one extracted heading with its deterministic slug and the
// byte range of its section body (heading line up to the next heading of
// equal or higher level).
type Heading struct {
	Level int    `msgpack:"l"`
	Text  string `msgpack:"t"`
	Slug  string `msgpack:"sl"`
	Span  Span   `msgpack:"sp"`
}

// Block is a ^block-id anchor and the range of its enclosing block.
type Block struct {
	ID   string `msgpack:"id"`
	Span Span   `msgpack:"sp"`
}

// Note is a single markdown file as a structured entity. Notes are
// created and mutated only by the indexer and the cache loader.
type Note struct {
	ID          ID             `msgpack:"id"`
	Key         Key            `msgpack:"key"`
	Path        string         `msgpack:"path"`
	Title       string         `msgpack:"title,omitempty"` // empty means no title
	Digest      [32]byte       `msgpack:"digest"`
	MTime       time.Time      `msgpack:"mtime"`
	Size        int64          `msgpack:"size"`
	Headings    []Heading      `msgpack:"headings,omitempty"`
	Blocks      []Block        `msgpack:"blocks,omitempty"`
	Frontmatter map[string]any `msgpack:"frontmatter,omitempty"`
	Links       []LinkRef      `msgpack:"links,omitempty"`
	Diagnostics []Diagnostic   `msgpack:"-"`
}

// HeadingBySlug returns the heading with the given slug, if any.
func (n *Note) HeadingBySlug(slug string) (Heading, bool) {
	for _, h := range n.Headings {
		if h.Slug == slug {
			return h, true
		}
	}
	return Heading{}, false
}

// BlockByID returns the block anchor with the given id, if any.
func (n *Note) BlockByID(id string) (Block, bool) {
	for _, b := range n.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

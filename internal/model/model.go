// Package model defines the semantic model: the pluggable rule set that
// maps file paths to note keys, decides hierarchy, and renders link
// syntax. Models are pure and perform no I/O; the variant is chosen once
// at initialization from configuration.
package model

import (
	"errors"
	"strings"

	"github.com/dendrite-md/dendrite/internal/note"
)

var (
	// ErrNotANote is returned by KeyFromPath when the path is not
	// managed by the model (wrong extension, reserved name). The
	// indexer drops such paths from the vault.
	ErrNotANote = errors.New("path is not a note")

	// ErrAmbiguous is returned by PathFromKey when the model admits no
	// canonical path for the key.
	ErrAmbiguous = errors.New("no canonical path for key")

	// ErrBadKey is returned for keys the model cannot represent.
	ErrBadKey = errors.New("invalid note key")
)

// Model is the capability object consulted by the parser, the
// assembler, the hierarchy builder, and the refactor planner.
type Model interface {
	// Name is the registry identifier ("Dendron", ...).
	Name() string

	// KeyFromPath derives the note key for a vault-relative path.
	// Deterministic, and stable under content edits that do not change
	// the path. Content is provided for models that key off frontmatter.
	KeyFromPath(path string, content []byte) (note.Key, error)

	// PathFromKey is the inverse used when creating files.
	PathFromKey(key note.Key) (string, error)

	// Parent returns the hierarchy parent of key, or false for roots.
	Parent(key note.Key) (note.Key, bool)

	// DisplayName picks the human label: title, else first heading,
	// else the last key segment.
	DisplayName(n *note.Note) string

	// Extensions lists the file extensions the scanner should admit,
	// with leading dot (".md").
	Extensions() []string

	// SuffixMatch reports whether an unmatched link target may resolve
	// against a key ending in ".<target>".
	SuffixMatch() bool

	// RenderWikilink renders a wikilink for the target. It is the exact
	// inverse of the parser's wikilink extraction.
	RenderWikilink(target note.Key, alias string, anchor *note.Anchor) string
}

// RenderAnchor renders the "#..." fragment for an anchor, shared by
// wikilink and markdown-link rewriting.
func RenderAnchor(anchor *note.Anchor) string {
	if anchor == nil {
		return ""
	}
	if anchor.Kind == note.AnchorBlock {
		return "#^" + anchor.Value
	}
	return "#" + anchor.Value
}

// registry of models selectable via the semantic.model config option.
var registry = map[string]Model{}

// Register makes a model selectable by name. Later registrations of the
// same name win, which lets tests install fakes.
func Register(m Model) {
	registry[m.Name()] = m
}

// Lookup returns the model registered under name.
func Lookup(name string) (Model, bool) {
	m, ok := registry[name]
	return m, ok
}

// Default returns the model used when configuration names none.
func Default() Model {
	m, ok := Lookup("Dendron")
	if !ok {
		panic("model: Dendron model not registered")
	}
	return m
}

// LastSegment returns the final dot-separated segment of a key.
func LastSegment(key note.Key) string {
	s := string(key)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

package query

import (
	"sort"
	"strings"

	"github.com/dendrite-md/dendrite/internal/note"
)

// ItemKind classifies a completion item.
type ItemKind int

const (
	ItemKey ItemKind = iota
	ItemHeading
	ItemBlock
)

// Item is one completion proposal.
type Item struct {
	Label  string
	Detail string
	Kind   ItemKind
}

// Completions proposes targets for the wikilink under construction at
// offset in the file at path. Inside `[[` it completes note keys; after
// `#` it completes headings of the referenced note; after `#^` it
// completes block ids. Content comes from the overlay-aware backend so
// unsaved buffers complete correctly.
func (q *Queries) Completions(path string, offset int) []Item {
	content, err := q.fs.Read(path)
	if err != nil {
		return nil
	}
	if offset > len(content) {
		offset = len(content)
	}

	inner, ok := wikiContext(content, offset)
	if !ok {
		return nil
	}

	if hash := strings.IndexByte(inner, '#'); hash >= 0 {
		targetText := inner[:hash]
		frag := inner[hash+1:]
		target := q.contextTarget(path, targetText)
		if target == nil {
			return nil
		}
		if strings.HasPrefix(frag, "^") {
			return blockItems(target, frag[1:])
		}
		return headingItems(target, frag)
	}
	return q.keyItems(inner)
}

// wikiContext extracts the partial inner text of an unclosed wikilink
// ending at offset.
func wikiContext(content []byte, offset int) (string, bool) {
	lineStart := offset
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	line := string(content[lineStart:offset])
	open := strings.LastIndex(line, "[[")
	if open < 0 {
		return "", false
	}
	inner := line[open+2:]
	if strings.Contains(inner, "]]") || strings.Contains(inner, "|") {
		return "", false
	}
	return inner, true
}

// contextTarget resolves the target segment of an in-progress wikilink;
// an empty target means the current note.
func (q *Queries) contextTarget(path, targetText string) *note.Note {
	if targetText == "" {
		n, ok := q.store.NoteByPath(path)
		if !ok {
			return nil
		}
		return n
	}
	if n, ok := q.store.NoteByKey(note.Key(targetText)); ok {
		return n
	}
	if q.model.SuffixMatch() {
		suffix := "." + targetText
		var found *note.Note
		for _, n := range q.store.All() {
			if strings.HasSuffix(string(n.Key), suffix) {
				if found != nil {
					return nil
				}
				found = n
			}
		}
		return found
	}
	return nil
}

func (q *Queries) keyItems(prefix string) []Item {
	var items []Item
	for _, n := range q.store.All() {
		if strings.HasPrefix(string(n.Key), prefix) {
			items = append(items, Item{
				Label:  string(n.Key),
				Detail: q.model.DisplayName(n),
				Kind:   ItemKey,
			})
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].Label < items[b].Label })
	return items
}

func headingItems(target *note.Note, prefix string) []Item {
	var items []Item
	for _, h := range target.Headings {
		if strings.HasPrefix(h.Slug, prefix) {
			items = append(items, Item{Label: h.Slug, Detail: h.Text, Kind: ItemHeading})
		}
	}
	return items
}

func blockItems(target *note.Note, prefix string) []Item {
	var items []Item
	for _, b := range target.Blocks {
		if strings.HasPrefix(b.ID, prefix) {
			items = append(items, Item{Label: "^" + b.ID, Kind: ItemBlock})
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].Label < items[b].Label })
	return items
}

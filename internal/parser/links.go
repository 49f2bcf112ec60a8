package parser

import (
	"bytes"
	"path"
	"sort"
	"strings"

	"github.com/dendrite-md/dendrite/internal/note"
)

// scanLinks locates wikilinks and inline markdown links in body,
// skipping code regions. Spans are file-absolute (shifted by base).
func (p *Parser) scanLinks(body []byte, base int, code []note.Span) []note.LinkRef {
	var links []note.LinkRef

	// Wikilinks first; markdown-link scanning skips their spans so a
	// "[[x]](y)" oddity is not double-counted.
	taken := make([]note.Span, 0, 8)

	for i := 0; i+1 < len(body); i++ {
		if body[i] != '[' || body[i+1] != '[' {
			continue
		}
		if i > 0 && body[i-1] == '\\' {
			continue
		}
		if inRegions(code, i) {
			continue
		}
		closing := bytes.Index(body[i+2:], []byte("]]"))
		if closing < 0 {
			continue
		}
		inner := body[i+2 : i+2+closing]
		end := i + 2 + closing + 2
		if len(inner) == 0 || bytes.ContainsAny(inner, "\n[") {
			continue
		}
		ref, ok := parseWikiInner(string(inner))
		if !ok {
			i = end - 1
			continue
		}
		ref.Span = note.Span{Start: base + i, End: base + end}
		links = append(links, ref)
		taken = append(taken, note.Span{Start: i, End: end})
		i = end - 1
	}

	for i := 0; i < len(body); i++ {
		if body[i] != '[' {
			continue
		}
		if i > 0 && (body[i-1] == '\\' || body[i-1] == '!' || body[i-1] == '[') {
			continue
		}
		if i+1 < len(body) && body[i+1] == '[' {
			continue
		}
		if inRegions(code, i) || inRegions(taken, i) {
			continue
		}
		labelEnd := bytes.IndexByte(body[i+1:], ']')
		if labelEnd < 0 {
			continue
		}
		label := body[i+1 : i+1+labelEnd]
		destStart := i + 1 + labelEnd + 1
		if bytes.ContainsAny(label, "\n[") || destStart >= len(body) || body[destStart] != '(' {
			continue
		}
		destEnd := bytes.IndexByte(body[destStart+1:], ')')
		if destEnd < 0 {
			continue
		}
		rawDest := body[destStart+1 : destStart+1+destEnd]
		end := destStart + 1 + destEnd + 1
		if bytes.ContainsRune(rawDest, '\n') {
			continue
		}
		ref, ok := p.parseMarkdownDest(string(label), string(rawDest))
		if !ok {
			i = end - 1
			continue
		}
		ref.Span = note.Span{Start: base + i, End: base + end}
		links = append(links, ref)
		i = end - 1
	}

	// Report in source order regardless of which pass found them; link
	// indices are part of the backlink contract.
	sort.Slice(links, func(a, b int) bool { return links[a].Span.Start < links[b].Span.Start })
	return links
}

// parseWikiInner splits "target#anchor|alias" per the wikilink grammar:
// first '|' separates the alias, then '#' inside the target part
// separates the anchor, '^' marking block anchors.
func parseWikiInner(inner string) (note.LinkRef, bool) {
	ref := note.LinkRef{Kind: note.KindWiki}

	targetPart := inner
	if bar := strings.IndexByte(inner, '|'); bar >= 0 {
		targetPart = inner[:bar]
		ref.Alias = strings.TrimSpace(inner[bar+1:])
	}
	if hash := strings.IndexByte(targetPart, '#'); hash >= 0 {
		anchor := strings.TrimSpace(targetPart[hash+1:])
		targetPart = targetPart[:hash]
		if anchor == "" {
			return ref, false
		}
		if strings.HasPrefix(anchor, "^") {
			ref.Anchor = &note.Anchor{Kind: note.AnchorBlock, Value: anchor[1:]}
		} else {
			ref.Anchor = &note.Anchor{Kind: note.AnchorHeading, Value: anchor}
		}
	}
	ref.Target = strings.TrimSpace(targetPart)
	if ref.Target == "" && ref.Anchor == nil {
		return ref, false
	}
	return ref, true
}

// parseMarkdownDest keeps only destinations the engine can resolve: a
// relative path ending in a supported extension, or a bare #fragment.
func (p *Parser) parseMarkdownDest(label, rawDest string) (note.LinkRef, bool) {
	dest := strings.TrimSpace(rawDest)
	dest = strings.TrimPrefix(dest, "<")
	dest = strings.TrimSuffix(dest, ">")
	// Drop an optional link title.
	if sp := strings.IndexAny(dest, " \t"); sp >= 0 {
		dest = dest[:sp]
	}
	if dest == "" {
		return note.LinkRef{}, false
	}

	ref := note.LinkRef{Kind: note.KindMarkdown, Alias: label}

	if strings.HasPrefix(dest, "#") {
		frag := dest[1:]
		if frag == "" {
			return note.LinkRef{}, false
		}
		if strings.HasPrefix(frag, "^") {
			ref.Anchor = &note.Anchor{Kind: note.AnchorBlock, Value: frag[1:]}
		} else {
			ref.Anchor = &note.Anchor{Kind: note.AnchorHeading, Value: frag}
		}
		return ref, true
	}

	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "/") ||
		strings.Contains(dest, ":") {
		return note.LinkRef{}, false
	}

	target := dest
	if hash := strings.IndexByte(dest, '#'); hash >= 0 {
		frag := dest[hash+1:]
		target = dest[:hash]
		if frag == "" {
			return note.LinkRef{}, false
		}
		if strings.HasPrefix(frag, "^") {
			ref.Anchor = &note.Anchor{Kind: note.AnchorBlock, Value: frag[1:]}
		} else {
			ref.Anchor = &note.Anchor{Kind: note.AnchorHeading, Value: frag}
		}
	}
	if !p.extensions[strings.ToLower(path.Ext(target))] {
		return note.LinkRef{}, false
	}
	ref.Target = target
	return ref, true
}


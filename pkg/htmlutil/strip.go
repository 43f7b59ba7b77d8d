// Package htmlutil turns HTML fragments from book descriptions and store
// pages into plain text.
package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end a line when they close (or open, for br).
var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Br:         true,
	atom.Li:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Blockquote: true,
	atom.Tr:         true,
}

// skippedElements have no readable text.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// StripTags removes all tags from an HTML fragment, decodes entities, and
// normalizes whitespace. Block-level elements become line breaks so paragraph
// structure survives.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	skipDepth := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed fragment; keep what was read.
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken:
			if skippedElements[tok.DataAtom] {
				skipDepth++
				continue
			}
			if tok.DataAtom == atom.Br {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if skippedElements[tok.DataAtom] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(tok.Data)
			}
		case html.ErrorToken, html.CommentToken, html.DoctypeToken:
		}
	}

	return normalizeLines(b.String())
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, " ", " ")), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

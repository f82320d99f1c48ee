// Package rag indexes exported documents into the vector store and answers
// questions grounded on the retrieved chunks.
package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 150
)

// Chunk packs paragraphs into parts of at most size characters (a single
// longer paragraph stays whole), then prefixes every part after the first
// with the last overlap characters of the previous part.
func Chunk(text string, size, overlap int) []string {
	var parts []string
	var buf strings.Builder
	n := 0
	for _, para := range strings.Split(text, "\n\n") {
		pl := utf8.RuneCountInString(para)
		if n+pl+2 <= size {
			buf.WriteString(para + "\n\n")
			n += pl + 2
			continue
		}
		if n > 0 {
			parts = appendPart(parts, buf.String())
		}
		buf.Reset()
		buf.WriteString(para + "\n\n")
		n = pl + 2
	}
	if n > 0 {
		parts = appendPart(parts, buf.String())
	}
	if overlap <= 0 || len(parts) < 2 {
		return parts
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		tail := ""
		if i > 0 {
			tail = lastRunes(parts[i-1], overlap)
		}
		out[i] = strings.TrimSpace(tail + "\n" + p)
	}
	return out
}

// appendPart drops whitespace-only parts.
func appendPart(parts []string, s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return parts
	}
	return append(parts, s)
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// Package chunker splits raw document text into overlapping, size-bounded
// chunks suitable for embedding.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Options struct {
	ChunkSize int // max chunk size in characters
	Overlap   int // max carried-over tail between chunks, in characters
}

func DefaultOptions() Options {
	return Options{
		ChunkSize: 1500, // ~400 tokens
		Overlap:   150,
	}
}

// TextChunk is one slice of a document. Page is nil for plain-text sources.
type TextChunk struct {
	Content string
	Index   int
	Page    *int
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Split breaks text into paragraph-aligned chunks. Paragraphs are
// accumulated greedily up to Options.ChunkSize; when a paragraph would
// overflow, the buffer is emitted and the tail of its last paragraph is
// carried into the next chunk as overlap. A single paragraph longer than
// ChunkSize is never split mid-paragraph: it is emitted oversized.
// Split is a pure function: identical input yields identical chunks.
func Split(text string, opts Options) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []TextChunk
	var current []string
	currentLen := 0

	emit := func() {
		chunks = append(chunks, TextChunk{
			Content: strings.Join(current, "\n\n"),
			Index:   len(chunks),
		})
	}

	for _, p := range paragraphSep.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pLen := utf8.RuneCountInString(p) + 2 // paragraph plus joining blank line

		if len(current) > 0 && currentLen+pLen > opts.ChunkSize {
			emit()

			// Overlap: carry the tail of the last emitted paragraph, but
			// only when that paragraph exceeds the overlap budget. Sizes
			// and the tail slice are in runes so multi-byte text never
			// gets cut mid-character.
			last := []rune(current[len(current)-1])
			if len(last) > opts.Overlap {
				tail := string(last[len(last)-opts.Overlap:])
				current = []string{tail}
				currentLen = opts.Overlap
			} else {
				current = nil
				currentLen = 0
			}
		}

		current = append(current, p)
		currentLen += pLen
	}

	if len(current) > 0 {
		emit()
	}

	return chunks
}

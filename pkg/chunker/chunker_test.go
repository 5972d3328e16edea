package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\n", " \t \n \n "} {
		if got := Split(input, DefaultOptions()); len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func TestSplitSingleParagraph(t *testing.T) {
	chunks := Split("Gradient descent minimizes the cost function.", DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].Page != nil {
		t.Errorf("page = %v, want nil for plain text", *chunks[0].Page)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 40; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("Paragraph %d: %s", i, strings.Repeat("word ", 40)))
	}
	text := strings.Join(paragraphs, "\n\n")

	opts := DefaultOptions()
	chunks := Split(text, opts)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Budget can be exceeded only by the carried overlap tail plus the
	// joining separator, never by an extra paragraph.
	limit := opts.ChunkSize + opts.Overlap + 2
	for _, c := range chunks {
		if len(c.Content) > limit {
			t.Errorf("chunk %d is %d chars, exceeds %d", c.Index, len(c.Content), limit)
		}
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk at position %d has index %d", i, c.Index)
		}
	}
}

func TestSplitOversizedParagraphNotSplit(t *testing.T) {
	big := strings.Repeat("a", 5000)
	chunks := Split("intro paragraph\n\n"+big+"\n\noutro paragraph", DefaultOptions())

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, big) {
			found = true
		}
	}
	if !found {
		t.Error("oversized paragraph was split across chunks")
	}
}

func TestSplitOverlapCarriesParagraphTail(t *testing.T) {
	long := strings.Repeat("x", 1400)
	next := strings.Repeat("y", 300)
	chunks := Split(long+"\n\n"+next, DefaultOptions())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	wantTail := long[len(long)-150:]
	if !strings.HasPrefix(chunks[1].Content, wantTail) {
		t.Errorf("second chunk does not start with 150-char tail of first paragraph")
	}
	if !strings.HasSuffix(chunks[1].Content, next) {
		t.Errorf("second chunk does not end with the next paragraph")
	}
}

func TestSplitShortLastParagraphNoOverlap(t *testing.T) {
	// When the last emitted paragraph is within the overlap budget the next
	// buffer starts empty instead of duplicating it whole.
	a := strings.Repeat("a", 1300)
	b := strings.Repeat("b", 100)
	c := strings.Repeat("c", 400)
	chunks := Split(a+"\n\n"+b+"\n\n"+c, DefaultOptions())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if strings.Contains(chunks[1].Content, b) {
		t.Errorf("short paragraph duplicated into next chunk as overlap")
	}
	if chunks[1].Content != c {
		t.Errorf("second chunk = %q..., want only the final paragraph", chunks[1].Content[:20])
	}
}

func TestSplitMultiByteOverlapStaysValidUTF8(t *testing.T) {
	// 149 ASCII bytes at the end put the 150-byte-from-end offset inside
	// the last é, so a byte-sliced tail would start on a continuation
	// byte. The tail must be carved by runes.
	long := strings.Repeat("é", 800) + strings.Repeat("z", 149)
	next := strings.Repeat("y", 600)
	chunks := Split(long+"\n\n"+next, DefaultOptions())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	for _, c := range chunks {
		if !utf8.ValidString(c.Content) {
			t.Fatalf("chunk %d contains invalid UTF-8: %q", c.Index, c.Content[:12])
		}
	}

	wantTail := "é" + strings.Repeat("z", 149)
	if !strings.HasPrefix(chunks[1].Content, wantTail) {
		t.Errorf("second chunk does not start with the 150-rune tail of the first paragraph")
	}
}

func TestSplitSizesCountRunesNotBytes(t *testing.T) {
	// 1400 runes but 2800 bytes: still within the 1500-character budget,
	// so the following paragraph triggers exactly one overflow.
	long := strings.Repeat("é", 1400)
	next := strings.Repeat("y", 300)
	chunks := Split(long+"\n\n"+next, DefaultOptions())
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Content != long {
		t.Errorf("first chunk is not the intact first paragraph")
	}
}

func TestSplitDeterministic(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "Lecture note %d. %s\n\n", i, strings.Repeat("detail ", 30))
	}
	text := sb.String()

	first := Split(text, DefaultOptions())
	second := Split(text, DefaultOptions())
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPreservesParagraphOrder(t *testing.T) {
	paragraphs := []string{}
	for i := 0; i < 30; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("marker-%03d %s", i, strings.Repeat("z", 120)))
	}
	chunks := Split(strings.Join(paragraphs, "\n\n"), DefaultOptions())

	// Every paragraph marker must appear, in order, across the chunk
	// sequence (overlap may repeat a tail but never reorders content).
	joined := ""
	for _, c := range chunks {
		joined += c.Content + "\n\n"
	}
	last := -1
	for i := range paragraphs {
		marker := fmt.Sprintf("marker-%03d", i)
		pos := strings.Index(joined, marker)
		if pos < 0 {
			t.Fatalf("paragraph %d missing from chunk output", i)
		}
		if pos < last {
			t.Errorf("paragraph %d appears out of order", i)
		}
		last = pos
	}
}

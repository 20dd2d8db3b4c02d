// Package chunker splits extracted document text into bounded, optionally
// overlapping pieces suitable for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is one chunk of text. Text is always an exact substring of the input,
// so concatenating pieces in order, minus the overlapping prefixes, reconstructs
// the input. Start and End are byte offsets into the input.
type Piece struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into pieces of at most MaxChars bytes each. Splits land on
// paragraph breaks when one falls in the second half of the window, then on
// sentence breaks, and only then on a hard byte cut. Cuts never land inside a
// UTF-8 sequence; a rune wider than MaxChars is emitted whole, the only case
// where a piece exceeds the bound. When Overlap > 0, each piece begins with the
// trailing Overlap bytes of the previous one to keep cross-boundary context
// retrievable.
type Chunker struct {
	maxChars int
	overlap  int
}

// New returns a chunker, validating the size options.
func New(maxChars, overlap int) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max_chars must be positive, got %d", maxChars)
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("overlap must be in [0, max_chars), got %d", overlap)
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}, nil
}

// Split chunks text in document order. Empty or whitespace-only input yields no
// pieces; whitespace-only windows inside the text are skipped rather than emitted.
func (c *Chunker) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var pieces []Piece
	pos := 0
	for pos < len(text) {
		end := pos + c.maxChars
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.cut(text, pos, end)
		}
		if piece := text[pos:end]; strings.TrimSpace(piece) != "" {
			pieces = append(pieces, Piece{Text: piece, Start: pos, End: end})
		}
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= pos {
			// Overlap would stall or move backwards; drop it for this step.
			next = end
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		pos = next
	}
	return pieces
}

// cut picks the split point for the window [pos, limit). A semantic boundary is
// used only when it falls past the middle of the window, so pathological inputs
// cannot degrade into a stream of tiny chunks.
func (c *Chunker) cut(text string, pos, limit int) int {
	for limit > pos && !utf8.RuneStart(text[limit]) {
		limit--
	}
	if limit == pos {
		// maxChars is narrower than the rune at pos. Emit the rune whole so
		// the window always advances.
		_, n := utf8.DecodeRuneInString(text[pos:])
		return pos + n
	}
	floor := pos + c.maxChars/2
	window := text[pos:limit]
	if i := strings.LastIndex(window, "\n\n"); i >= 0 && pos+i+2 > floor {
		return pos + i + 2
	}
	if i := lastSentenceEnd(window); i > 0 && pos+i > floor {
		return pos + i
	}
	return limit
}

// lastSentenceEnd returns the byte index just after the last sentence boundary
// in s, or -1 when s contains none.
func lastSentenceEnd(s string) int {
	last := -1
	var prev rune
	for i, r := range s {
		if i > 0 && sentenceBoundary(prev, r) {
			last = i
		}
		prev = r
	}
	return last
}

// sentenceBoundary reports whether a split may occur between prev and next.
// Latin sentence enders need trailing whitespace to avoid cutting decimals and
// abbreviated names; CJK enders and newlines stand on their own.
func sentenceBoundary(prev, next rune) bool {
	switch prev {
	case '\n', '。', '！', '？':
		return true
	case '.', '!', '?':
		return unicode.IsSpace(next)
	}
	return false
}

package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewRejectsBadOptions(t *testing.T) {
	cases := []struct {
		name     string
		maxChars int
		overlap  int
	}{
		{"zero max", 0, 0},
		{"negative max", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max", 100, 100},
		{"overlap exceeds max", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.maxChars, tc.overlap); err == nil {
				t.Fatalf("New(%d, %d) should fail", tc.maxChars, tc.overlap)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	for _, input := range []string{"", "   ", "\n\n\t  \n"} {
		if got := c.Split(input); len(got) != 0 {
			t.Errorf("Split(%q) = %d pieces, want 0", input, len(got))
		}
	}
}

func TestSplitShortInputSinglePiece(t *testing.T) {
	c, _ := New(1000, 200)
	text := "A short document that fits in one chunk."
	pieces := c.Split(text)
	if len(pieces) != 1 {
		t.Fatalf("got %d pieces, want 1", len(pieces))
	}
	if pieces[0].Text != text || pieces[0].Start != 0 || pieces[0].End != len(text) {
		t.Errorf("unexpected piece %+v", pieces[0])
	}
}

func TestSplitRespectsMaxChars(t *testing.T) {
	c, _ := New(120, 20)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	pieces := c.Split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if len(p.Text) > 120 {
			t.Errorf("piece %d has %d bytes, want <= 120", i, len(p.Text))
		}
	}
}

func TestSplitPiecesAreExactSubstrings(t *testing.T) {
	c, _ := New(80, 10)
	text := "First paragraph with a sentence. And another one here.\n\nSecond paragraph continues the story. It has more words to say about things."
	for i, p := range c.Split(text) {
		if text[p.Start:p.End] != p.Text {
			t.Errorf("piece %d: offsets [%d:%d] do not match text", i, p.Start, p.End)
		}
	}
}

func TestSplitReconstruction(t *testing.T) {
	c, _ := New(100, 25)
	text := strings.Repeat("Sentences follow one another in order. Each adds a little more text. ", 20)
	pieces := c.Split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	var b strings.Builder
	b.WriteString(pieces[0].Text)
	for i := 1; i < len(pieces); i++ {
		shared := pieces[i-1].End - pieces[i].Start
		if shared < 0 {
			t.Fatalf("gap between pieces %d and %d", i-1, i)
		}
		b.WriteString(pieces[i].Text[shared:])
	}
	if b.String() != text {
		t.Error("concatenation minus overlaps does not reconstruct the input")
	}
}

func TestSplitOverlapSharesSuffix(t *testing.T) {
	c, _ := New(100, 30)
	text := strings.Repeat("abcdefghij", 50)
	pieces := c.Split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i := 1; i < len(pieces); i++ {
		prev, cur := pieces[i-1], pieces[i]
		if cur.Start != prev.End-30 {
			t.Errorf("piece %d starts at %d, want %d", i, cur.Start, prev.End-30)
		}
		if !strings.HasPrefix(cur.Text, prev.Text[len(prev.Text)-30:]) {
			t.Errorf("piece %d does not begin with the previous overlap", i)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	c, _ := New(100, 0)
	text := strings.Repeat("x", 70) + "\n\n" + strings.Repeat("y", 70)
	pieces := c.Split(text)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	if pieces[0].End != 72 {
		t.Errorf("first piece ends at %d, want 72 (after paragraph break)", pieces[0].End)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, _ := New(100, 0)
	text := strings.Repeat("x", 70) + ". " + strings.Repeat("y", 70)
	pieces := c.Split(text)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	if pieces[0].End != 71 {
		t.Errorf("first piece ends at %d, want 71 (after the period)", pieces[0].End)
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	c, _ := New(50, 0)
	text := strings.Repeat("a", 175)
	pieces := c.Split(text)
	if len(pieces) != 4 {
		t.Fatalf("got %d pieces, want 4", len(pieces))
	}
	for i, p := range pieces[:3] {
		if len(p.Text) != 50 {
			t.Errorf("piece %d has %d bytes, want 50", i, len(p.Text))
		}
	}
	if len(pieces[3].Text) != 25 {
		t.Errorf("last piece has %d bytes, want 25", len(pieces[3].Text))
	}
}

func TestSplitNeverCutsRunes(t *testing.T) {
	c, _ := New(50, 10)
	text := strings.Repeat("日本語のテキストを分割します。", 30)
	for i, p := range c.Split(text) {
		if !utf8.ValidString(p.Text) {
			t.Errorf("piece %d is not valid UTF-8", i)
		}
		if len(p.Text) > 50 {
			t.Errorf("piece %d has %d bytes, want <= 50", i, len(p.Text))
		}
	}
}

func TestSplitTinyMaxEmitsWholeRunes(t *testing.T) {
	c, _ := New(2, 0)
	text := "你好"
	pieces := c.Split(text)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	for i, want := range []string{"你", "好"} {
		if pieces[i].Text != want {
			t.Errorf("piece %d = %q, want %q", i, pieces[i].Text, want)
		}
	}
	if pieces[1].Start != pieces[0].End {
		t.Errorf("pieces not contiguous: %d then %d", pieces[0].End, pieces[1].Start)
	}

	// Mixed-width input must also advance rune by rune and terminate.
	pieces = c.Split("a日b本c")
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.Text)
	}
	if b.String() != "a日b本c" {
		t.Errorf("reconstructed %q, want %q", b.String(), "a日b本c")
	}
}

func TestSplitSkipsWhitespaceOnlyWindows(t *testing.T) {
	c, _ := New(10, 0)
	text := "aaaa" + strings.Repeat(" ", 20) + "bbbb"
	pieces := c.Split(text)
	if len(pieces) != 2 {
		t.Fatalf("got %d pieces, want 2", len(pieces))
	}
	if gap := text[pieces[0].End:pieces[1].Start]; strings.TrimSpace(gap) != "" {
		t.Errorf("dropped region %q contains non-whitespace", gap)
	}
	if !strings.Contains(pieces[1].Text, "bbbb") {
		t.Errorf("second piece %q should carry the trailing content", pieces[1].Text)
	}
}

func TestSplitIndicesAreContiguous(t *testing.T) {
	c, _ := New(60, 15)
	text := strings.Repeat("Words and more words fill the page. ", 20)
	pieces := c.Split(text)
	if pieces[0].Start != 0 {
		t.Errorf("first piece starts at %d, want 0", pieces[0].Start)
	}
	if pieces[len(pieces)-1].End != len(text) {
		t.Errorf("last piece ends at %d, want %d", pieces[len(pieces)-1].End, len(text))
	}
}

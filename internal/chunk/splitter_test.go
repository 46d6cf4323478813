package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split(""); got != nil {
		t.Errorf("empty input should yield no chunks, got %d", len(got))
	}
	if got := s.Split("  \n\t\n  "); got != nil {
		t.Errorf("whitespace-only input should yield no chunks, got %d", len(got))
	}
}

func TestSplitShortInput(t *testing.T) {
	s := NewSplitter(100, 20)
	chunks := s.Split("a short paragraph")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short paragraph" {
		t.Errorf("short input should be returned verbatim, got %q", chunks[0])
	}
}

func TestSplitChunkLengthBound(t *testing.T) {
	s := NewSplitter(120, 30)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) +
		"\n\n" + strings.Repeat("word ", 200) + "\n" + strings.Repeat("x", 500)

	for i, c := range s.Split(text) {
		if len(c) > 120 {
			t.Errorf("chunk %d exceeds size bound: %d bytes", i, len(c))
		}
	}
}

func TestSplitSpanOverlapAndCoverage(t *testing.T) {
	s := NewSplitter(60, 20)
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike november oscar papa quebec romeo sierra tango"

	spans := s.SplitSpans(text)
	if len(spans) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(spans))
	}

	if spans[0].Start != 0 {
		t.Errorf("first span starts at %d, want 0", spans[0].Start)
	}
	if spans[len(spans)-1].End != len(text) {
		t.Errorf("last span ends at %d, want %d", spans[len(spans)-1].End, len(text))
	}

	sawOverlap := false
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.Start > prev.End {
			t.Errorf("gap between span %d and %d: %d..%d", i-1, i, prev.End, cur.Start)
		}
		if overlap := prev.End - cur.Start; overlap > 20 {
			t.Errorf("span %d overlaps previous by %d bytes, bound is 20", i, overlap)
		} else if overlap > 0 {
			sawOverlap = true
		}
		if cur.End <= prev.End {
			t.Errorf("span %d does not advance: %d <= %d", i, cur.End, prev.End)
		}
		if cur.Text != text[cur.Start:cur.End] {
			t.Errorf("span %d text does not match its offsets", i)
		}
	}
	if !sawOverlap {
		t.Error("expected at least one pair of overlapping chunks")
	}
}

func TestSplitReconstruction(t *testing.T) {
	s := NewSplitter(80, 25)
	text := "First paragraph with several words in it.\n\nSecond paragraph, a bit longer, " +
		"carries on for a while. It has two sentences.\n\nThird one.\nWith a line break inside.\n\n" +
		strings.Repeat("trailing content ", 30)

	spans := s.SplitSpans(text)
	if len(spans) == 0 {
		t.Fatal("expected chunks")
	}

	var rebuilt strings.Builder
	prevEnd := 0
	for _, sp := range spans {
		if sp.End <= prevEnd {
			continue
		}
		start := sp.Start
		if start < prevEnd {
			start = prevEnd
		}
		rebuilt.WriteString(text[start:sp.End])
		prevEnd = sp.End
	}
	if rebuilt.String() != text {
		t.Error("concatenating unique spans did not reconstruct the input")
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter(90, 15)
	text := strings.Repeat("Some sentences here. And more there. ", 50)

	a := s.Split(text)
	b := s.Split(text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("a", 300)
	para2 := strings.Repeat("b", 300)
	para3 := strings.Repeat("c", 300)
	text := para1 + "\n\n" + para2 + "\n\n" + para3

	s := NewSplitter(400, 0)
	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 paragraph-aligned chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") || strings.ContainsRune(chunks[0], 'b') {
		t.Errorf("first chunk should be the first paragraph, got %q…", chunks[0][:10])
	}
	if chunks[2] != para3 {
		t.Error("last chunk should be exactly the third paragraph")
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("This sentence has exactly enough words to matter. ", 10)
	s := NewSplitter(120, 0)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, ". ") {
			t.Errorf("chunk %d should end at a sentence boundary, ends with %q", i, c[len(c)-5:])
		}
	}
}

func TestSplitHardCutsOversizedToken(t *testing.T) {
	s := NewSplitter(1000, 100)
	text := strings.Repeat("x", 2500)

	spans := s.SplitSpans(text)
	if len(spans) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(spans))
	}
	want := []int{1000, 1000, 500}
	for i, sp := range spans {
		if len(sp.Text) != want[i] {
			t.Errorf("chunk %d: got %d bytes, want %d", i, len(sp.Text), want[i])
		}
	}
}

func TestSplitHardCutRespectsRuneBoundaries(t *testing.T) {
	s := NewSplitter(25, 0)
	// 40 two-byte runes with no separator anywhere: forces the hard cut,
	// which must back up from byte 25 to the rune start at 24.
	text := strings.Repeat("é", 40)

	chunks := s.Split(text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	total := 0
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if len(c) > 25 {
			t.Errorf("chunk %d exceeds size bound: %d", i, len(c))
		}
		total += len(c)
	}
	if total != len(text) {
		t.Errorf("hard cut lost bytes: got %d, want %d", total, len(text))
	}
}

func TestNewSplitterGuardsOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap() != 25 {
		t.Errorf("overlap >= size should fall back to size/4, got %d", s.Overlap())
	}
	s = NewSplitter(100, -5)
	if s.Overlap() != 25 {
		t.Errorf("negative overlap should fall back to size/4, got %d", s.Overlap())
	}
}

package chunk

import (
	"strings"
	"unicode/utf8"
)

// separators is the boundary preference order: paragraph break, line break,
// sentence end, word break, hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Span is one chunk of a larger text: the half-open byte range [Start, End)
// it occupies in the input, and the text itself.
type Span struct {
	Start int
	End   int
	Text  string
}

// Splitter breaks long text into chunks of at most size bytes, cutting at
// the coarsest natural boundary available and carrying up to overlap bytes
// of trailing context into the next chunk. Chunks are exact substrings of
// the input: consecutive spans never leave a gap, so concatenating each
// span's unique part reproduces the input.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter. An overlap that is negative or not smaller
// than size is replaced with size/4.
func NewSplitter(size, overlap int) *Splitter {
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}
	return &Splitter{size: size, overlap: overlap}
}

// Size returns the maximum chunk length in bytes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the maximum overlap between consecutive chunks in bytes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks text and returns the chunk texts only.
func (s *Splitter) Split(text string) []string {
	spans := s.SplitSpans(text)
	if spans == nil {
		return nil
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}

// SplitSpans chunks text. Empty or whitespace-only input yields no chunks.
// The result is deterministic for a given input and configuration.
func (s *Splitter) SplitSpans(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.pieces(text, separators)

	starts := make([]int, len(pieces))
	offset := 0
	for i, p := range pieces {
		starts[i] = offset
		offset += len(p)
	}

	emit := func(spans []Span, first, length int) []Span {
		start := starts[first]
		end := start + length
		return append(spans, Span{Start: start, End: end, Text: text[start:end]})
	}

	// Greedily pack consecutive pieces into chunks of at most size bytes.
	// first..next-1 are the pieces of the chunk being assembled; on emit,
	// whole trailing pieces totalling at most overlap bytes carry over.
	var spans []Span
	first, curLen := 0, 0
	for next, piece := range pieces {
		if curLen > 0 && curLen+len(piece) > s.size {
			spans = emit(spans, first, curLen)

			keep := next
			keptLen := 0
			for keep > first && keptLen+len(pieces[keep-1]) <= s.overlap {
				keptLen += len(pieces[keep-1])
				keep--
			}
			first, curLen = keep, keptLen

			// The carried tail plus a large incoming piece can still
			// overflow; shed carried pieces from the front until it fits.
			for curLen > 0 && curLen+len(piece) > s.size {
				curLen -= len(pieces[first])
				first++
			}
		}
		curLen += len(piece)
	}
	if curLen > 0 {
		spans = emit(spans, first, curLen)
	}
	return spans
}

// pieces recursively cuts text into fragments of at most size bytes. It
// splits on the first separator present, keeps each separator attached to
// the fragment it ends, and re-splits oversized fragments with the finer
// separators that follow. Concatenating the fragments reproduces text.
func (s *Splitter) pieces(text string, seps []string) []string {
	if len(text) <= s.size {
		return []string{text}
	}

	sep := ""
	var finer []string
	for i, candidate := range seps {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			finer = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return hardCut(text, s.size)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= s.size {
			out = append(out, part)
		} else {
			out = append(out, s.pieces(part, finer)...)
		}
	}
	return out
}

// hardCut chops text every size bytes, backing up to the nearest rune
// boundary so multi-byte characters are never split.
func hardCut(text string, size int) []string {
	var out []string
	for len(text) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

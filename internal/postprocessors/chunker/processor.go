// Package chunker splits document text into overlapping chunks that prefer
// paragraph and sentence boundaries.
package chunker

import (
	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

var (
	paragraphBreak = []rune("\n\n")
	sentenceBreaks = [][]rune{[]rune(". "), []rune("! "), []rune("? ")}
)

// Span is a chunk's position in the source text, in characters.
// End is exclusive.
type Span struct {
	Start int
	End   int
}

// Len returns the number of characters in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Processor splits text into chunks of at most the requested size.
// Characters are Unicode code points, so a chunk never splits a
// multi-byte sequence.
//
// For text without paragraph or sentence breaks and longer than size, the
// chunk count is ceil((L-overlap)/(size-overlap)), since chunking stops at
// the first window that reaches the end of the text.
type Processor struct{}

// New creates a chunker processor.
func New() *Processor {
	return &Processor{}
}

// Split returns the chunk texts for the given size and overlap.
func (p *Processor) Split(text string, size, overlap int) ([]string, error) {
	spans, err := p.Spans(text, size, overlap)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunks = append(chunks, string(runes[s.Start:s.End]))
	}
	return chunks, nil
}

// Spans returns the chunk boundaries for the given size and overlap.
func (p *Processor) Spans(text string, size, overlap int) ([]Span, error) {
	return spansOf([]rune(text), size, overlap)
}

func spansOf(runes []rune, size, overlap int) ([]Span, error) {
	if err := domain.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}

	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	spans := make([]Span, 0, n/(size-overlap)+1)
	start := 0

	for start < n {
		end := start + size
		if end > n {
			end = n
		}

		if end < n {
			end = snap(runes, start, end, start+size/2)
		}

		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return spans, nil
}

// snap moves end back to just after the last paragraph break, or failing
// that the last sentence break, found past mid in runes[start:end].
func snap(runes []rune, start, end, mid int) int {
	if pos := lastIndex(runes, start, end, paragraphBreak); pos > mid {
		return pos + len(paragraphBreak)
	}

	best, width := -1, 0
	for _, sep := range sentenceBreaks {
		if pos := lastIndex(runes, start, end, sep); pos > best {
			best, width = pos, len(sep)
		}
	}
	if best > mid {
		return best + width
	}
	return end
}

// lastIndex returns the position of the last sep lying wholly inside
// runes[start:end], or -1.
func lastIndex(runes []rune, start, end int, sep []rune) int {
	for i := end - len(sep); i >= start; i-- {
		match := true
		for j, r := range sep {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

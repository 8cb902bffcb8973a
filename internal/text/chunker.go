package text

import (
	"iter"
	"strings"
	"unicode"
)

const (
	DefaultMaxLength = 512
	DefaultOverlap   = 50
)

// Chunker splits text into bounded, overlapping windows measured in runes.
// A Chunker holds only its configuration, so one value can be shared freely.
type Chunker struct {
	maxLength int
	overlap   int
}

type Option func(*Chunker)

func WithMaxLength(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{maxLength: DefaultMaxLength, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.maxLength {
		c.overlap = c.maxLength / 4
	}
	return c
}

func (c *Chunker) MaxLength() int { return c.maxLength }

func (c *Chunker) Overlap() int { return c.overlap }

// All yields (index, chunk) pairs in source order. Every chunk after the
// first starts exactly Overlap runes before the end of its predecessor.
// Windows end on whitespace when one exists past the overlap region.
func (c *Chunker) All(s string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		runes := []rune(strings.TrimSpace(s))
		n := len(runes)
		if n == 0 {
			return
		}

		index := 0
		start := 0
		for {
			end := min(start+c.maxLength, n)
			if end < n {
				end = c.breakPoint(runes, start, end)
			}

			window := runes[start:end]
			if !isBlank(window) {
				if !yield(index, string(window)) {
					return
				}
				index++
			}

			if end == n {
				return
			}
			start = end - c.overlap
		}
	}
}

// Split collects All into a slice.
func (c *Chunker) Split(s string) []string {
	var chunks []string
	for _, chunk := range c.All(s) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// breakPoint moves end back to the last whitespace rune that still leaves the
// window longer than the overlap, so the next window always makes progress.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	for i := end - 1; i > start+c.overlap; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func isBlank(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

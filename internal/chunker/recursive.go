package chunker

import (
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
const DefaultChunkOverlap = 400

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Recursive splits text on the largest separator that keeps pieces under the
// chunk size, falling back to smaller separators for oversized pieces, and
// merges neighbouring pieces into overlapping chunks.
type Recursive struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the recursive chunker.
type Option func(*Recursive)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(r *Recursive) {
		if size > 0 {
			r.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(r *Recursive) {
		if overlap >= 0 {
			r.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy. The list should end with ""
// so any piece can be broken down to single characters.
func WithSeparators(seps ...string) Option {
	return func(r *Recursive) {
		if len(seps) > 0 {
			r.separators = seps
		}
	}
}

// NewRecursive creates a recursive chunker with the given options.
func NewRecursive(opts ...Option) *Recursive {
	r := &Recursive{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.overlap >= r.chunkSize {
		r.overlap = r.chunkSize / 4
	}
	return r
}

// Split returns the chunks of text in document order.
func (r *Recursive) Split(text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.E(domain.KindSplit, "split", domain.ErrEmptyInput)
	}
	pieces := r.split(text, r.separators)
	chunks := make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{Index: i, Text: p}
	}
	return chunks, nil
}

func (r *Recursive) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, s := range splitKeepSeparator(text, separator) {
		if length(s) < r.chunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			out = append(out, r.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, s)
		} else {
			out = append(out, r.split(s, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, r.merge(good)...)
	}
	return out
}

// merge joins pieces into chunks of at most chunkSize characters, carrying up
// to overlap characters of trailing pieces into the next chunk.
func (r *Recursive) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := length(p)
		if total+n > r.chunkSize {
			if len(current) > 0 {
				if chunk := join(current); chunk != "" {
					out = append(out, chunk)
				}
				for total > r.overlap || (total+n > r.chunkSize && total > 0) {
					total -= length(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += n
	}
	if chunk := join(current); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeepSeparator splits text on sep, attaching each separator to the start
// of the piece that follows it. An empty sep splits into characters.
func splitKeepSeparator(text, sep string) []string {
	var out []string
	if sep == "" {
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int { return utf8.RuneCountInString(s) }

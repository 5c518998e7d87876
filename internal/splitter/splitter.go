package splitter

import (
	"strings"
	"unicode/utf8"

	"web-rag/internal/models"
)

// DefaultSeparators are tried in priority order: paragraph break, line
// break, space, then a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts documents into overlapping chunks for embedding. Pieces are
// produced by recursive priority-separator splitting, then packed into
// chunks of at most ChunkSize characters where each chunk carries up to
// Overlap trailing characters of its predecessor.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// New returns a splitter with the given limits and the default separators.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}
}

// SplitDocuments splits each document and tags every chunk with the parent
// document's source and title. Seq numbers chunks across the whole batch in
// order, which later breaks retrieval score ties deterministically.
func (s *Splitter) SplitDocuments(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	seq := 0
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.Content) {
			chunks = append(chunks, models.Chunk{
				Content: text,
				Source:  doc.Source,
				Title:   doc.Title,
				Seq:     seq,
			})
			seq++
		}
	}
	return chunks
}

// SplitText splits one text. A text no longer than ChunkSize comes back as
// a single unmodified chunk.
func (s *Splitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}
	return s.merge(s.split(text, s.Separators))
}

// split recursively cuts text into pieces no longer than ChunkSize, trying
// separators in priority order. The separator stays attached to the
// preceding piece so no characters are lost.
func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	sep := ""
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		// No separator applies: hard cut at the chunk boundary, backed
		// off so a multibyte rune is never split.
		var pieces []string
		for start := 0; start < len(text); {
			end := start + s.ChunkSize
			if end >= len(text) {
				pieces = append(pieces, text[start:])
				break
			}
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				_, size := utf8.DecodeRuneInString(text[start:])
				end = start + size
			}
			pieces = append(pieces, text[start:end])
			start = end
		}
		return pieces
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= s.ChunkSize {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, s.split(part, rest)...)
	}
	return pieces
}

// merge packs pieces into chunks of at most ChunkSize characters. When a
// chunk fills up, the next chunk is seeded with up to Overlap trailing
// characters of the flushed chunk, trimmed so the new piece still fits.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+len(piece) > s.ChunkSize {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			cur.Reset()

			tail := lastN(chunk, s.Overlap)
			if len(tail)+len(piece) > s.ChunkSize {
				tail = lastN(tail, s.ChunkSize-len(piece))
			}
			cur.WriteString(tail)
		}
		cur.WriteString(piece)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// lastN returns at most the last n bytes of s, advanced to the next rune
// start so the tail never begins mid-rune.
func lastN(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

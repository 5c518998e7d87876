package rag

import (
	"strings"

	"web-rag/internal/models"
)

// BuildContext concatenates retrieved chunks in descending-score order into
// one context block of at most maxChars characters. Lowest-score chunks are
// dropped first when the budget is exceeded. The returned sources cover only
// the chunks that made it into the block, deduplicated in first-seen order.
func BuildContext(retrieved []models.SearchResult, maxChars int) (string, []string) {
	var sb strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for _, res := range retrieved {
		// Chunks arrive sorted by descending score, so stopping at the
		// budget drops the lowest-score chunks.
		if maxChars > 0 && sb.Len()+len(res.Chunk.Content)+2 > maxChars && sb.Len() > 0 {
			break
		}
		sb.WriteString(res.Chunk.Content)
		sb.WriteString("\n\n")
		if res.Chunk.Source != "" && !seen[res.Chunk.Source] {
			seen[res.Chunk.Source] = true
			sources = append(sources, res.Chunk.Source)
		}
	}
	return sb.String(), sources
}

package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"web-rag/internal/config"
	"web-rag/internal/embedding"
	"web-rag/internal/models"
	"web-rag/internal/store"
)

// Completer issues one completion against the chat model. The production
// implementation lives in llmservice; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RAG owns the retrieval pipeline: it builds the index from chunks and
// answers questions against it.
type RAG struct {
	store     store.VectorStore
	embedder  embeddings.Embedder
	completer Completer
	cfg       *config.Config
}

func New(s store.VectorStore, embedder embeddings.Embedder, completer Completer, cfg *config.Config) *RAG {
	return &RAG{store: s, embedder: embedder, completer: completer, cfg: cfg}
}

// BuildIndex embeds every chunk and replaces the index in one swap. All
// embeddings are computed before anything is stored, so a provider failure
// partway through leaves the prior index untouched. Returns the number of
// entries indexed.
func (r *RAG) BuildIndex(ctx context.Context, chunks []models.Chunk) (int, error) {
	entries, err := embedding.EmbedChunks(ctx, r.embedder, chunks)
	if err != nil {
		return 0, err
	}
	if err := r.store.Replace(ctx, entries); err != nil {
		return 0, err
	}
	log.Info().Int("entries", len(entries)).Msg("Index built")
	return len(entries), nil
}

// Ready reports whether an index exists to answer against.
func (r *RAG) Ready() bool {
	return r.store.Count() > 0
}

// Retrieve embeds the question and returns the top-k chunks by descending
// similarity. Ties are broken by chunk insertion order so results are
// deterministic for identical inputs.
func (r *RAG) Retrieve(ctx context.Context, question string, k int) ([]models.SearchResult, error) {
	if !r.Ready() {
		return nil, models.ErrNoIndex
	}

	queryVec, err := embedding.EmbedQuery(ctx, r.embedder, question)
	if err != nil {
		return nil, err
	}

	raw, err := r.store.Search(ctx, queryVec, k)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(raw))
	for _, res := range raw {
		seq, _ := strconv.Atoi(res.Metadata[store.MetaSeq])
		results = append(results, models.SearchResult{
			Chunk: models.Chunk{
				Content: res.Content,
				Source:  res.Metadata[store.MetaSource],
				Title:   res.Metadata[store.MetaTitle],
				Seq:     seq,
			},
			Score: res.Similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Seq < results[j].Chunk.Seq
	})
	return results, nil
}

// Query answers one question: retrieve, compose a bounded context, complete.
func (r *RAG) Query(ctx context.Context, question string) (*models.QueryResult, error) {
	retrieved, err := r.Retrieve(ctx, question, r.cfg.RAG.TopK)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return nil, models.ErrNoIndex
	}

	contextBlock, sources := BuildContext(retrieved, r.cfg.RAG.MaxContextChars)
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextBlock, question)

	answer, err := r.completer.Complete(ctx, models.AnswerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("retrieved", len(retrieved)).Int("sources", len(sources)).Msg("Answered query")
	return &models.QueryResult{Answer: answer, Sources: sources}, nil
}

package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-rag/internal/config"
	"web-rag/internal/models"
	"web-rag/internal/store"
)

// fakeEmbedder maps known phrases to fixed vectors so similarity is
// predictable.
type fakeEmbedder struct {
	vectors    map[string][]float32
	queryCalls int
	failAfter  int // fail the nth EmbedQuery call, 0 disables
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.failAfter > 0 && f.queryCalls >= f.failAfter {
		return nil, errors.New("provider unreachable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// memStore is a deterministic in-memory VectorStore.
type memStore struct {
	entries      []store.Entry
	replaceCalls int
}

func (m *memStore) Replace(ctx context.Context, entries []store.Entry) error {
	m.replaceCalls++
	m.entries = entries
	return nil
}

func (m *memStore) Search(ctx context.Context, embedding []float32, k int) ([]store.Result, error) {
	results := make([]store.Result, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, store.Result{Entry: e, Similarity: cosine(embedding, e.Embedding)})
	}
	// Descending similarity, stable over insertion order.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Similarity > results[j-1].Similarity; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *memStore) Count() int { return len(m.entries) }

func cosine(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt32(na) * sqrt32(nb))
}

func sqrt32(f float32) float32 {
	// Newton iterations are plenty for test vectors.
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

type fakeCompleter struct {
	answer  string
	fail    bool
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if f.fail {
		return "", &models.CompletionError{Cause: errors.New("provider down")}
	}
	f.prompts = append(f.prompts, user)
	return f.answer, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RAG.TopK = 3
	return cfg
}

func newTestRAG(embedder *fakeEmbedder, s store.VectorStore, completer Completer) *RAG {
	return New(s, embedder, completer, testConfig())
}

func pricingChunks() []models.Chunk {
	return []models.Chunk{
		{Content: "Our pricing starts at $10/month for the basic plan.", Source: "https://example.com/pricing", Seq: 0},
		{Content: "The about page describes the team.", Source: "https://example.com/about", Seq: 1},
	}
}

func pricingVectors() map[string][]float32 {
	return map[string][]float32{
		"Our pricing starts at $10/month for the basic plan.": {1, 0, 0},
		"The about page describes the team.":                  {0, 1, 0},
		"What does the site say about pricing?":               {1, 0.1, 0},
	}
}

func TestBuildIndex_EmptyChunks(t *testing.T) {
	s := &memStore{}
	r := newTestRAG(&fakeEmbedder{}, s, &fakeCompleter{})

	_, err := r.BuildIndex(context.Background(), nil)

	assert.True(t, errors.Is(err, models.ErrNoChunks))
	assert.Zero(t, s.replaceCalls, "store must be untouched on empty input")
}

func TestBuildIndex_EmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	s := &memStore{}
	embedder := &fakeEmbedder{vectors: pricingVectors()}
	r := newTestRAG(embedder, s, &fakeCompleter{})

	_, err := r.BuildIndex(context.Background(), pricingChunks())
	require.NoError(t, err)
	require.Equal(t, 1, s.replaceCalls)

	embedder.failAfter = embedder.queryCalls + 2 // fail on the second chunk
	_, err = r.BuildIndex(context.Background(), pricingChunks())

	var embedErr *models.EmbeddingError
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, 1, s.replaceCalls, "failed build must not replace the index")
	assert.Equal(t, 2, s.Count())
}

func TestRetrieve_NoIndex(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := newTestRAG(embedder, &memStore{}, &fakeCompleter{})

	_, err := r.Retrieve(context.Background(), "anything", 3)

	assert.True(t, errors.Is(err, models.ErrNoIndex))
	assert.Zero(t, embedder.queryCalls, "retriever must not touch the provider without an index")
}

func TestRetrieve_Deterministic(t *testing.T) {
	s := &memStore{}
	r := newTestRAG(&fakeEmbedder{vectors: pricingVectors()}, s, &fakeCompleter{})
	_, err := r.BuildIndex(context.Background(), pricingChunks())
	require.NoError(t, err)

	first, err := r.Retrieve(context.Background(), "What does the site say about pricing?", 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(context.Background(), "What does the site say about pricing?", 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	require.Len(t, first, 2)
	assert.Equal(t, "https://example.com/pricing", first[0].Chunk.Source)
}

func TestRetrieve_TieBreakByInsertionOrder(t *testing.T) {
	s := &memStore{}
	vectors := map[string][]float32{
		"chunk one": {1, 0, 0},
		"chunk two": {1, 0, 0},
		"query":     {1, 0, 0},
	}
	r := newTestRAG(&fakeEmbedder{vectors: vectors}, s, &fakeCompleter{})
	_, err := r.BuildIndex(context.Background(), []models.Chunk{
		{Content: "chunk one", Source: "https://a.com", Seq: 0},
		{Content: "chunk two", Source: "https://b.com", Seq: 1},
	})
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, 0, results[0].Chunk.Seq, "earlier-indexed chunk wins the tie")
	assert.Equal(t, 1, results[1].Chunk.Seq)
}

func TestQuery_AnswerWithSources(t *testing.T) {
	s := &memStore{}
	completer := &fakeCompleter{answer: "The basic plan costs $10/month."}
	r := newTestRAG(&fakeEmbedder{vectors: pricingVectors()}, s, completer)
	_, err := r.BuildIndex(context.Background(), pricingChunks())
	require.NoError(t, err)

	result, err := r.Query(context.Background(), "What does the site say about pricing?")
	require.NoError(t, err)

	assert.Contains(t, result.Answer, "$10/month")
	assert.Contains(t, result.Sources, "https://example.com/pricing")

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "$10/month", "prompt must carry the retrieved context")
	assert.Contains(t, completer.prompts[0], "What does the site say about pricing?")
}

func TestQuery_CompletionFailure(t *testing.T) {
	s := &memStore{}
	r := newTestRAG(&fakeEmbedder{vectors: pricingVectors()}, s, &fakeCompleter{fail: true})
	_, err := r.BuildIndex(context.Background(), pricingChunks())
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "What does the site say about pricing?")

	var completionErr *models.CompletionError
	assert.ErrorAs(t, err, &completionErr)
}

func TestBuildContext_BoundAndSourceFidelity(t *testing.T) {
	retrieved := []models.SearchResult{
		{Chunk: models.Chunk{Content: strings.Repeat("a", 40), Source: "https://a.com"}, Score: 0.9},
		{Chunk: models.Chunk{Content: strings.Repeat("b", 40), Source: "https://b.com"}, Score: 0.8},
		{Chunk: models.Chunk{Content: strings.Repeat("c", 40), Source: "https://c.com"}, Score: 0.7},
	}

	contextBlock, sources := BuildContext(retrieved, 100)

	// Only the two highest-score chunks fit; the dropped chunk's source
	// must not be attributed.
	assert.Contains(t, contextBlock, strings.Repeat("a", 40))
	assert.Contains(t, contextBlock, strings.Repeat("b", 40))
	assert.NotContains(t, contextBlock, strings.Repeat("c", 40))
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, sources)
}

func TestBuildContext_DeduplicatesSources(t *testing.T) {
	retrieved := []models.SearchResult{
		{Chunk: models.Chunk{Content: "one", Source: "https://a.com"}, Score: 0.9},
		{Chunk: models.Chunk{Content: "two", Source: "https://a.com"}, Score: 0.8},
		{Chunk: models.Chunk{Content: "three", Source: "https://b.com"}, Score: 0.7},
	}

	_, sources := BuildContext(retrieved, 0)

	assert.Equal(t, []string{"https://a.com", "https://b.com"}, sources)
}

func TestBuildContext_FirstChunkAlwaysIncluded(t *testing.T) {
	retrieved := []models.SearchResult{
		{Chunk: models.Chunk{Content: strings.Repeat("x", 500), Source: "https://a.com"}, Score: 0.9},
	}

	contextBlock, sources := BuildContext(retrieved, 100)

	assert.NotEmpty(t, contextBlock)
	assert.Equal(t, []string{"https://a.com"}, sources)
}

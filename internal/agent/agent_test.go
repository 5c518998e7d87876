package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"web-rag/internal/config"
	"web-rag/internal/fetcher"
	"web-rag/internal/models"
	"web-rag/internal/rag"
	"web-rag/internal/splitter"
	"web-rag/internal/store"
)

type fakeEmbedder struct {
	queryCalls int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

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
		results = append(results, store.Result{Entry: e, Similarity: 1})
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *memStore) Count() int { return len(m.entries) }

type fakeCompleter struct {
	answer string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.answer, nil
}

type testEnv struct {
	session  *Session
	store    *memStore
	embedder *fakeEmbedder
}

func newTestEnv(t *testing.T, answer string) *testEnv {
	t.Helper()
	cfg := config.Default()
	s := &memStore{}
	embedder := &fakeEmbedder{}
	r := rag.New(s, embedder, &fakeCompleter{answer: answer}, cfg)
	f := fetcher.New(5*time.Second, 2)
	sp := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.Overlap())
	return &testEnv{
		session:  NewSession(f, sp, r),
		store:    s,
		embedder: embedder,
	}
}

func pageServer(t *testing.T, title, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><title>%s</title><body>%s</body></html>", title, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		intent  Intent
		sources []string
	}{
		{
			name:    "bare url",
			input:   "https://example.com",
			intent:  IntentLoad,
			sources: []string{"https://example.com"},
		},
		{
			name:    "urls in a sentence",
			input:   "Load these websites: https://a.com, https://b.com/page",
			intent:  IntentLoad,
			sources: []string{"https://a.com", "https://b.com/page"},
		},
		{
			name:   "question",
			input:  "What does the website say about pricing?",
			intent: IntentQuestion,
		},
		{
			name:   "mentions http without url",
			input:  "how does http caching work?",
			intent: IntentQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, sources := Classify(tt.input)
			assert.Equal(t, tt.intent, intent)
			assert.Equal(t, tt.sources, sources)
		})
	}
}

func TestClassify_ExistingFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o644))

	intent, sources := Classify("please load " + path)

	assert.Equal(t, IntentLoad, intent)
	assert.Equal(t, []string{path}, sources)
}

func TestSession_AnswerWithoutIndex(t *testing.T) {
	env := newTestEnv(t, "unused")

	result, err := env.session.Answer(context.Background(), "anything?")

	require.NoError(t, err)
	assert.Equal(t, NoContentMessage, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, env.embedder.queryCalls, "retriever must not run without an index")
}

func TestSession_LoadAllURLsFail(t *testing.T) {
	env := newTestEnv(t, "unused")

	report, err := env.session.Load(context.Background(), []string{"http://127.0.0.1:1"})

	assert.True(t, errors.Is(err, models.ErrNoDocumentsLoaded))
	assert.Len(t, report.Failed, 1)
	assert.Zero(t, env.store.replaceCalls, "failed load must leave the index untouched")
	assert.False(t, env.session.Ready())
}

func TestSession_LoadAndAnswer(t *testing.T) {
	env := newTestEnv(t, "The basic plan costs $10/month.")
	srv := pageServer(t, "Pricing", "Our pricing starts at $10/month.")

	report, err := env.session.Load(context.Background(), []string{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Chunks)
	assert.Empty(t, report.Failed)
	assert.True(t, env.session.Ready())

	result, err := env.session.Answer(context.Background(), "What does the site say about pricing?")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, "$10/month")
	assert.Equal(t, []string{srv.URL}, result.Sources)
}

func TestSession_PartialFailureProceedsAndReports(t *testing.T) {
	env := newTestEnv(t, "answer")
	srv := pageServer(t, "Good", "reachable content")

	report, err := env.session.Load(context.Background(), []string{srv.URL, "http://127.0.0.1:1"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, []string{"http://127.0.0.1:1"}, report.Failed)
	assert.True(t, env.session.Ready())
}

func TestSession_ReloadReplacesIndex(t *testing.T) {
	env := newTestEnv(t, "answer")
	first := pageServer(t, "One", "first site content")
	second := pageServer(t, "Two", "second site content")

	_, err := env.session.Load(context.Background(), []string{first.URL})
	require.NoError(t, err)
	_, err = env.session.Load(context.Background(), []string{second.URL})
	require.NoError(t, err)

	assert.Equal(t, 2, env.store.replaceCalls)
	for _, e := range env.store.entries {
		assert.Equal(t, second.URL, e.Metadata[store.MetaSource])
	}
}

func TestAgent_HandleInputRoutes(t *testing.T) {
	env := newTestEnv(t, "The site is about gophers.")
	srv := pageServer(t, "Gophers", "All about gophers.")
	a := New(env.session, nil, false)

	response, err := a.HandleInput(context.Background(), "Load this: "+srv.URL)
	require.NoError(t, err)
	assert.Contains(t, response, "Loaded 1 documents")

	response, err = a.HandleInput(context.Background(), "What is the site about?")
	require.NoError(t, err)
	assert.Contains(t, response, "gophers")
	assert.Contains(t, response, srv.URL)
}

type fakePlanner struct {
	calls     int
	responses []*llms.ContentResponse
}

func (f *fakePlanner) GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error) {
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return resp, nil
}

func toolCallResponse(name, arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call-1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: arguments},
		}},
	}}}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func TestPlan_LoadThenFinalAnswer(t *testing.T) {
	env := newTestEnv(t, "answer")
	srv := pageServer(t, "Docs", "documentation content")
	planner := &fakePlanner{responses: []*llms.ContentResponse{
		toolCallResponse(toolLoadWebsites, fmt.Sprintf(`{"urls":"%s"}`, srv.URL)),
		textResponse("Loaded the site for you."),
	}}
	a := New(env.session, planner, true)

	response, err := a.HandleInput(context.Background(), "please read "+srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "Loaded the site for you.", response)
	assert.Equal(t, 2, planner.calls)
	assert.True(t, env.session.Ready(), "tool call must have loaded the site")
}

func TestPlan_IterationBound(t *testing.T) {
	env := newTestEnv(t, "answer")
	planner := &fakePlanner{responses: []*llms.ContentResponse{
		toolCallResponse(toolAnswer, `{"question":"loop forever?"}`),
	}}
	a := New(env.session, planner, true)

	response, err := a.HandleInput(context.Background(), "do something")

	require.NoError(t, err)
	assert.Equal(t, UnableMessage, response)
	assert.Equal(t, maxPlannerSteps, planner.calls)
}

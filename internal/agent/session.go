package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"web-rag/internal/fetcher"
	"web-rag/internal/loader"
	"web-rag/internal/models"
	"web-rag/internal/rag"
	"web-rag/internal/splitter"
)

// NoContentMessage is returned for questions asked before any load.
const NoContentMessage = "No websites have been loaded yet. Please load websites first."

// Session owns the single mutable index handle for the process. One load or
// answer runs to completion before the next is accepted.
type Session struct {
	fetcher  *fetcher.Fetcher
	splitter *splitter.Splitter
	rag      *rag.RAG

	mu sync.Mutex
}

// LoadReport describes the outcome of one load operation, including which
// sources failed when the batch partially succeeded.
type LoadReport struct {
	Documents int
	Chunks    int
	Entries   int
	Failed    []string
}

func (r *LoadReport) String() string {
	msg := fmt.Sprintf("Loaded %d documents into %d chunks (%d indexed).", r.Documents, r.Chunks, r.Entries)
	if len(r.Failed) > 0 {
		msg += fmt.Sprintf(" Failed sources: %s.", strings.Join(r.Failed, ", "))
	}
	return msg
}

func NewSession(f *fetcher.Fetcher, sp *splitter.Splitter, r *rag.RAG) *Session {
	return &Session{fetcher: f, splitter: sp, rag: r}
}

// Ready reports whether an index exists.
func (s *Session) Ready() bool {
	return s.rag.Ready()
}

// Load fetches the given sources (URLs and local file paths), chunks them,
// and replaces the session's index. Sources that fail are skipped and
// reported; the operation only fails when nothing at all was loaded, in
// which case the prior index is left untouched.
func (s *Session) Load(ctx context.Context, sources []string) (*LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls, files []string
	for _, src := range sources {
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			urls = append(urls, src)
		} else {
			files = append(files, src)
		}
	}

	var docs []models.Document
	var failed []string

	if len(urls) > 0 {
		loaded, fetchErrs, err := s.fetcher.FetchAll(ctx, urls)
		if err != nil && len(files) == 0 {
			return &LoadReport{Failed: urls}, err
		}
		docs = append(docs, loaded...)
		for _, fe := range fetchErrs {
			var fetchErr *models.FetchError
			if errors.As(fe, &fetchErr) {
				failed = append(failed, fetchErr.URL)
			}
		}
	}

	for _, path := range files {
		doc, err := loader.Load(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping file")
			failed = append(failed, path)
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return &LoadReport{Failed: failed}, models.ErrNoDocumentsLoaded
	}

	chunks := s.splitter.SplitDocuments(docs)
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Created text chunks")

	entries, err := s.rag.BuildIndex(ctx, chunks)
	if err != nil {
		return &LoadReport{Documents: len(docs), Chunks: len(chunks), Failed: failed}, err
	}

	return &LoadReport{
		Documents: len(docs),
		Chunks:    len(chunks),
		Entries:   entries,
		Failed:    failed,
	}, nil
}

// Answer answers a question against the current index. With no index it
// returns the no-content message immediately, without touching the
// retriever.
func (s *Session) Answer(ctx context.Context, question string) (*models.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rag.Ready() {
		return &models.QueryResult{Answer: NoContentMessage}, nil
	}
	return s.rag.Query(ctx, question)
}

package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"web-rag/internal/models"
	"web-rag/internal/normalizer"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20 // 10 MiB
	userAgent      = "web-rag/1.0"
)

// Fetcher retrieves web pages and normalizes them into documents.
type Fetcher struct {
	client  *http.Client
	workers int
}

// New creates a fetcher with the given per-request timeout and worker pool
// size for batch loads.
func New(timeout time.Duration, workers int) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if workers <= 0 {
		workers = 1
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		workers: workers,
	}
}

// ValidateURL rejects anything that is not an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// Fetch retrieves one URL and returns it as a normalized document. All
// failures come back as *models.FetchError so a batch caller can decide
// whether to skip or abort.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (models.Document, error) {
	if err := ValidateURL(rawURL); err != nil {
		return models.Document{}, &models.FetchError{URL: rawURL, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Document{}, &models.FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.Document{}, &models.FetchError{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Document{}, &models.FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Document{}, &models.FetchError{URL: rawURL, Cause: fmt.Errorf("read body: %w", err)}
	}

	doc := normalizer.Normalize(body, rawURL)
	log.Debug().Str("url", rawURL).Str("title", doc.Title).Int("chars", len(doc.Content)).Msg("Fetched page")
	return doc, nil
}

// FetchAll loads a batch of URLs with bounded parallelism. Results are
// collected by input position so document order is deterministic regardless
// of completion order. Per-URL failures are logged and skipped; the batch
// only fails with ErrNoDocumentsLoaded when every URL fails.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]models.Document, []error, error) {
	docs := make([]models.Document, len(urls))
	errs := make([]error, len(urls))

	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			docs[i], errs[i] = f.Fetch(ctx, u)
		}(i, u)
	}
	wg.Wait()

	var loaded []models.Document
	var failed []error
	for i := range urls {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("url", urls[i]).Msg("Skipping URL")
			failed = append(failed, errs[i])
			continue
		}
		loaded = append(loaded, docs[i])
	}

	if len(loaded) == 0 {
		return nil, failed, models.ErrNoDocumentsLoaded
	}
	return loaded, failed, nil
}

// SplitURLList parses the conversational comma-separated URL form.
func SplitURLList(s string) []string {
	var urls []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

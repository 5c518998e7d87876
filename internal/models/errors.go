package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocumentsLoaded means every URL in a load batch failed.
	ErrNoDocumentsLoaded = errors.New("no documents were loaded successfully")

	// ErrNoIndex means a question was asked before any successful load.
	ErrNoIndex = errors.New("no content loaded yet, load website URLs first")

	// ErrNoChunks means an index build was attempted with empty input.
	ErrNoChunks = errors.New("no chunks to index")
)

// FetchError reports a single failed URL. It is non-fatal to a batch load.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// EmbeddingError wraps a failure from the embedding provider.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Cause)
}

func (e *EmbeddingError) Unwrap() error { return e.Cause }

// CompletionError wraps a failure from the completion provider.
type CompletionError struct {
	Cause error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion provider: %v", e.Cause)
}

func (e *CompletionError) Unwrap() error { return e.Cause }

// TranscriptionError wraps a failed speech-to-text attempt. The message is
// surfaced to the user verbatim, no retry.
type TranscriptionError struct {
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("could not understand audio: %v", e.Cause)
}

func (e *TranscriptionError) Unwrap() error { return e.Cause }

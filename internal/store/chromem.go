package store

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"web-rag/internal/helper"
)

// ChromemStore is a chromem-go backed vector store. Persistent mode writes
// under dbPath in the process working directory; the on-disk format carries
// no schema version, so reopening a directory written by a different build
// of this program is undefined behavior.
type ChromemStore struct {
	db   *chromem.DB
	name string

	mu         sync.RWMutex
	collection *chromem.Collection
	count      int
}

// NewChromemStore opens (or creates) a persistent store under dbPath. With
// inMemory set, nothing touches disk; tests use that mode.
func NewChromemStore(dbPath, collectionName string, inMemory bool) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	s := &ChromemStore{db: db, name: collectionName}

	// Pick up a collection persisted by a previous run, if any. Each build
	// writes a freshly named collection, so match on the configured prefix.
	// A crash between swap and delete can leave more than one; the first
	// name in sorted order wins and the rest are dropped.
	collections := db.ListCollections()
	var names []string
	for name := range collections {
		if strings.HasPrefix(name, collectionName+"-") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) > 0 {
		s.collection = collections[names[0]]
		s.count = s.collection.Count()
		for _, stale := range names[1:] {
			if err := db.DeleteCollection(stale); err != nil {
				log.Warn().Err(err).Str("collection", stale).Msg("Could not drop stale collection")
			}
		}
	}
	return s, nil
}

// Replace builds a fresh collection from the given entries and swaps it in.
// The old collection stays queryable until the swap, so a concurrent reader
// sees either the old index or the new one, never a mix.
func (s *ChromemStore) Replace(ctx context.Context, entries []Entry) error {
	uid, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s", s.name, uid[:8])
	c, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata,
			Embedding: e.Embedding,
		})
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			// The half-built collection is discarded; the prior index
			// stays in place.
			if delErr := s.db.DeleteCollection(name); delErr != nil {
				log.Warn().Err(delErr).Str("collection", name).Msg("Could not drop half-built collection")
			}
			return fmt.Errorf("failed to add documents: %v", err)
		}
	}

	s.mu.Lock()
	old := s.collection
	s.collection = c
	s.count = len(entries)
	s.mu.Unlock()

	if old != nil {
		if err := s.db.DeleteCollection(old.Name); err != nil {
			log.Warn().Err(err).Str("collection", old.Name).Msg("Could not drop replaced collection")
		}
	}
	return nil
}

// Search returns up to k nearest entries by cosine similarity. The query
// fetches every entry and cuts to k here, with ties at the cut line broken
// by insertion order, so the same index and query always return the same
// entries in the same order.
func (s *ChromemStore) Search(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	s.mu.RLock()
	c := s.collection
	count := s.count
	s.mu.RUnlock()

	if c == nil || count == 0 || k < 1 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			Entry: Entry{
				ID:        r.ID,
				Content:   r.Content,
				Embedding: r.Embedding,
				Metadata:  r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return entrySeq(out[i].Entry) < entrySeq(out[j].Entry)
	})
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// entrySeq reads the insertion-order tie-break key; entries without one
// sort last among equals.
func entrySeq(e Entry) int {
	n, err := strconv.Atoi(e.Metadata[MetaSeq])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// Count reports the number of entries in the active index.
func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

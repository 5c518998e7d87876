package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"web-rag/internal/config"
)

type pgEntry struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string `bun:"id,pk"`
	Content       string `bun:"content,notnull"`
	Embedding     string `bun:"embedding,notnull,type:vector(768)"`
	Source        string `bun:"source,notnull"`
	Title         string `bun:"title"`
	Seq           int    `bun:"seq,notnull"`
	Similarity    float32 `bun:"similarity,scanonly"`
}

// PgStore is a Postgres+pgvector backed vector store.
type PgStore struct {
	db *bun.DB

	mu    sync.RWMutex
	count int
}

// NewPgStore connects to Postgres, creates the chunks table if missing, and
// reads the current entry count.
func NewPgStore(ctx context.Context, cfg *config.DBConfig) (*PgStore, error) {
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.NewCreateTable().Model((*pgEntry)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize chunks table: %w", err)
	}

	count, err := db.NewSelect().Model((*pgEntry)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	return &PgStore{db: db, count: count}, nil
}

// Replace swaps the table contents in one transaction, so a concurrent
// reader sees the old entries or the new ones, never a mix.
func (s *PgStore) Replace(ctx context.Context, entries []Entry) error {
	rows := make([]pgEntry, 0, len(entries))
	for _, e := range entries {
		seq, _ := strconv.Atoi(e.Metadata[MetaSeq])
		rows = append(rows, pgEntry{
			ID:        e.ID,
			Content:   e.Content,
			Embedding: vectorLiteral(e.Embedding),
			Source:    e.Metadata[MetaSource],
			Title:     e.Metadata[MetaTitle],
			Seq:       seq,
		})
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*pgEntry)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	s.mu.Lock()
	s.count = len(entries)
	s.mu.Unlock()
	return nil
}

// Search returns up to k nearest entries by cosine similarity. Distance
// ties are broken by insertion order so repeated queries select the same
// rows.
func (s *PgStore) Search(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	var rows []pgEntry
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("id, content, source, title, seq").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vectorLiteral(embedding)).
		OrderExpr("embedding <=> ?, seq ASC", vectorLiteral(embedding)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, Result{
			Entry: Entry{
				ID:      row.ID,
				Content: row.Content,
				Metadata: map[string]string{
					MetaSource: row.Source,
					MetaTitle:  row.Title,
					MetaSeq:    strconv.Itoa(row.Seq),
				},
			},
			Similarity: row.Similarity,
		})
	}
	return out, nil
}

// Count reports the number of entries in the active index.
func (s *PgStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close releases the database connection.
func (s *PgStore) Close() error {
	return s.db.Close()
}

// vectorLiteral renders an embedding in pgvector's input syntax.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

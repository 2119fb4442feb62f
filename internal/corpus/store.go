package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// entryCols is the standard SELECT column list scanned by scanEntries.
const entryCols = `id, source, content, tags, metadata, created_at`

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 15 * time.Second

// Store provides access to corpus entries backed by PostgreSQL + pgvector.
// Vector queries embed the query text through the configured embedder.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewStore creates a corpus Store. The rate limiter guards the embedding
// provider; pass a generous limit for batch imports.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		logger:   logger,
	}, nil
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding rate limit wait: %w", err)
	}

	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds and upserts an entry. Existing entries with the same ID are
// replaced, so corpus imports are idempotent.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("entry ID is required")
	}
	if !e.Source.Valid() {
		return fmt.Errorf("invalid source: %q", e.Source)
	}
	if e.Content == "" {
		return fmt.Errorf("entry content is required")
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, e.Content)
	if err != nil {
		return fmt.Errorf("embedding entry %q: %w", e.ID, err)
	}

	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", e.ID, err)
	}

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO corpus_entries (id, source, content, tags, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET source = EXCLUDED.source,
		    content = EXCLUDED.content,
		    tags = EXCLUDED.tags,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding`,
		e.ID, string(e.Source), e.Content, tags, metadata, vec)
	if err != nil {
		return fmt.Errorf("upserting entry %q: %w", e.ID, err)
	}

	s.logger.Debug("added corpus entry", "id", e.ID, "source", e.Source)
	return nil
}

// LexicalSearch runs a full-text match over entry content, ranked by
// ts_rank. Returns an empty slice when nothing matches.
func (s *Store) LexicalSearch(ctx context.Context, query string, opts ...SearchOption) ([]Entry, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	sql := `
		SELECT ` + entryCols + `,
		       ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1))::float8 AS score
		FROM corpus_entries
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)`
	args := []any{query}

	if cfg.source != "" {
		sql += ` AND source = $2`
		args = append(args, string(cfg.source))
	}
	sql += fmt.Sprintf(` ORDER BY score DESC, created_at LIMIT %d`, cfg.limit)

	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lexical search timeout: %w", err)
		}
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

// VectorSearch embeds the query and returns the nearest entries by cosine
// similarity. Score is 1-distance, so higher is closer.
func (s *Store) VectorSearch(ctx context.Context, query string, opts ...SearchOption) ([]Entry, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	sql := `
		SELECT ` + entryCols + `,
		       (1 - (embedding <=> $1))::float8 AS score
		FROM corpus_entries
		WHERE embedding IS NOT NULL`
	args := []any{vec}

	if cfg.source != "" {
		sql += ` AND source = $2`
		args = append(args, string(cfg.source))
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, cfg.limit)

	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

// QueryByTags returns entries whose tag set overlaps the given tags,
// scored by overlap size.
func (s *Store) QueryByTags(ctx context.Context, tags []string, opts ...SearchOption) ([]Entry, error) {
	if len(tags) == 0 {
		return []Entry{}, nil
	}
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	sql := `
		SELECT ` + entryCols + `,
		       (SELECT count(*) FROM unnest(tags) t WHERE t = ANY($1))::float8 AS score
		FROM corpus_entries
		WHERE tags && $1`
	args := []any{tags}

	if cfg.source != "" {
		sql += ` AND source = $2`
		args = append(args, string(cfg.source))
	}
	sql += fmt.Sprintf(` ORDER BY score DESC, created_at LIMIT %d`, cfg.limit)

	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("tag search: %w", err)
	}
	defer rows.Close()

	return s.scanEntries(rows)
}

// Count returns the number of entries, optionally restricted to a source.
func (s *Store) Count(ctx context.Context, source Source) (int64, error) {
	var count int64
	var err error
	if source != "" {
		err = s.pool.QueryRow(ctx,
			`SELECT count(*) FROM corpus_entries WHERE source = $1`, string(source)).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM corpus_entries`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// scanEntries converts rows of (entryCols, score) into Entry values.
// Malformed metadata is logged and replaced with an empty map rather
// than failing the whole result set.
func (s *Store) scanEntries(rows pgx.Rows) ([]Entry, error) {
	entries := make([]Entry, 0, 8)

	for rows.Next() {
		var (
			e            Entry
			source       string
			metadataJSON []byte
		)
		if err := rows.Scan(&e.ID, &source, &e.Content, &e.Tags, &metadataJSON, &e.CreatedAt, &e.Score); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		e.Source = Source(source)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				s.logger.Warn("failed to parse entry metadata", "entry_id", e.ID, "error", err)
				e.Metadata = map[string]string{}
			}
		}
		if e.Metadata == nil {
			e.Metadata = map[string]string{}
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entry rows: %w", err)
	}

	return entries, nil
}

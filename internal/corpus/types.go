// Package corpus manages the multi-source knowledge base backing the
// question-answering pipeline. Entries live in PostgreSQL with pgvector
// embeddings and are reachable through three query paths: full-text
// (lexical), vector similarity, and tag overlap.
package corpus

import "time"

// VectorDimension is the embedding dimensionality used across the system.
// The pgvector column and the embedder output dimensionality must agree.
const VectorDimension int32 = 768

// Source identifies which corpus an entry belongs to. The set is closed:
// ranking, weighting and the contradiction filter all branch on it.
type Source string

const (
	// SourceQuran is the primary source. Its entries are never
	// contradiction-filtered and rank first when present.
	SourceQuran Source = "quran"

	SourceBible   Source = "bible"
	SourceBook    Source = "book"
	SourceArticle Source = "article"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceQuran, SourceBible, SourceBook, SourceArticle:
		return true
	}
	return false
}

// Primary reports whether s is the primary source.
func (s Source) Primary() bool { return s == SourceQuran }

// AllSources returns every known source, primary first.
func AllSources() []Source {
	return []Source{SourceQuran, SourceBible, SourceBook, SourceArticle}
}

// SecondarySources returns every non-primary source.
func SecondarySources() []Source {
	return []Source{SourceBible, SourceBook, SourceArticle}
}

// Entry is one passage of the corpus. Entries are immutable once stored;
// the pipeline reads copies and annotates them with a transient Score.
type Entry struct {
	ID        string            `json:"id"`
	Source    Source            `json:"source"`
	Content   string            `json:"content"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`

	// Score is the relevance assigned by the search that produced this
	// copy. It is not persisted.
	Score float64 `json:"-"`
}

// Reference returns the canonical citation for the entry, e.g.
// "Surah 39:53" or "Psalm 34:18". Empty when the metadata has none.
func (e Entry) Reference() string {
	return e.Metadata["reference"]
}

// HasTag reports whether the entry carries the given tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchOption configures a corpus search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	source  Source
	limit   int32
	timeout time.Duration
}

// WithSource restricts results to a single source.
func WithSource(s Source) SearchOption {
	return func(c *searchConfig) {
		c.source = s
	}
}

// WithLimit caps the number of results. Default is 5.
func WithLimit(n int32) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithTimeout overrides the per-query timeout. Default is 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		limit:   5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

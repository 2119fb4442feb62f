// Package index maintains the thematic index: a periodically rebuilt
// snapshot mapping each configured theme to a ranked list of corpus
// entries across sources.
//
// Readers see an immutable snapshot; Rebuild constructs a fresh one and
// swaps the pointer atomically, so concurrent lookups never observe a
// partially built index.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
)

// Searcher is the corpus capability the index needs. *corpus.Store
// satisfies it.
type Searcher interface {
	VectorSearch(ctx context.Context, query string, opts ...corpus.SearchOption) ([]corpus.Entry, error)
}

// snapshot is one immutable build of the index. Every configured theme
// has a key, possibly with an empty list, so lookups are total.
type snapshot struct {
	themes  map[string][]corpus.Entry
	builtAt time.Time
}

// Index holds the current thematic snapshot.
//
// Index is safe for concurrent use: many readers, one rebuilder.
type Index struct {
	searcher Searcher
	persona  *config.Persona
	logger   *slog.Logger

	snap atomic.Pointer[snapshot]
}

// New creates an empty index. Call Rebuild (or start a Scheduler) to
// populate it; until then every Lookup returns an empty list.
func New(searcher Searcher, persona *config.Persona, logger *slog.Logger) (*Index, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	idx := &Index{
		searcher: searcher,
		persona:  persona,
		logger:   logger,
	}

	empty := &snapshot{themes: map[string][]corpus.Entry{}}
	for theme := range persona.Themes {
		empty.themes[theme] = []corpus.Entry{}
	}
	idx.snap.Store(empty)

	return idx, nil
}

// Rebuild queries the corpus per theme and source, with per-source caps,
// and atomically replaces the snapshot.
//
// A failing source contributes an empty list for that theme instead of
// aborting the rebuild: a partially populated fresh snapshot beats a
// stale one. Rebuild returns an error only when every query failed, so
// callers can retry while the previous snapshot keeps serving.
func (idx *Index) Rebuild(ctx context.Context) error {
	start := time.Now()
	next := &snapshot{
		themes:  make(map[string][]corpus.Entry, len(idx.persona.Themes)),
		builtAt: start,
	}

	themes := make([]string, 0, len(idx.persona.Themes))
	for theme := range idx.persona.Themes {
		themes = append(themes, theme)
	}
	sort.Strings(themes)

	var queries, failures int
	for _, theme := range themes {
		entries := make([]corpus.Entry, 0, 32)

		for _, source := range corpus.AllSources() {
			limit := idx.persona.IndexCap(string(source))
			queries++

			results, err := idx.searcher.VectorSearch(ctx, theme,
				corpus.WithSource(source),
				corpus.WithLimit(int32(limit))) // #nosec G115 -- caps are small config values
			if err != nil {
				failures++
				idx.logger.Warn("theme query failed, source contributes nothing",
					"theme", theme, "source", source, "error", err)
				continue
			}
			entries = append(entries, results...)
		}

		// Every theme resolves to a list, never a missing key.
		next.themes[theme] = entries
	}

	if queries > 0 && failures == queries {
		return fmt.Errorf("thematic rebuild: all %d queries failed", queries)
	}

	idx.snap.Store(next)
	idx.logger.Info("thematic index rebuilt",
		"themes", len(next.themes),
		"entries", next.size(),
		"failed_queries", failures,
		"elapsed", time.Since(start))
	return nil
}

// Lookup returns the indexed entries for a theme. Unknown themes return
// an empty list, never an error. Callers must not mutate the result.
func (idx *Index) Lookup(theme string) []corpus.Entry {
	snap := idx.snap.Load()
	if entries, ok := snap.themes[theme]; ok {
		return entries
	}
	return []corpus.Entry{}
}

// Themes returns the theme names of the current snapshot, sorted.
func (idx *Index) Themes() []string {
	snap := idx.snap.Load()
	themes := make([]string, 0, len(snap.themes))
	for theme := range snap.themes {
		themes = append(themes, theme)
	}
	sort.Strings(themes)
	return themes
}

// BuiltAt returns when the current snapshot was built. Zero when the
// index has never been rebuilt.
func (idx *Index) BuiltAt() time.Time {
	return idx.snap.Load().builtAt
}

func (s *snapshot) size() int {
	n := 0
	for _, entries := range s.themes {
		n += len(entries)
	}
	return n
}

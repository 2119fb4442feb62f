// Package scanner turns a free-text question into a ranked, deduplicated,
// contradiction-filtered bundle of candidate passages, partitioned into
// primary and secondary source lists.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
)

// Per-list caps on the returned bundle.
const (
	MaxPrimary   = 5
	MaxSecondary = 3
	MaxRelated   = 5

	// hybridLimit is how many candidates each search leg fetches before
	// merging.
	hybridLimit = 20

	// minPrimary triggers thematic expansion when the primary list is
	// thinner than this.
	minPrimary = 3
)

// Corpus is the search capability the scanner needs. *corpus.Store
// satisfies it.
type Corpus interface {
	LexicalSearch(ctx context.Context, query string, opts ...corpus.SearchOption) ([]corpus.Entry, error)
	VectorSearch(ctx context.Context, query string, opts ...corpus.SearchOption) ([]corpus.Entry, error)
}

// ThemeIndex is the thematic lookup the scanner expands from.
// *index.Index satisfies it.
type ThemeIndex interface {
	Lookup(theme string) []corpus.Entry
}

// Result is the scan bundle handed to the synthesizer. Created per query
// and discarded after synthesis.
type Result struct {
	// Primary holds primary-source passages only, best first.
	Primary []corpus.Entry

	// Secondary holds contradiction-filtered passages from other sources.
	Secondary []corpus.Entry

	// Related holds thematically expanded passages used as fallback
	// context.
	Related []corpus.Entry
}

// Empty reports whether the scan found nothing at all.
func (r Result) Empty() bool {
	return len(r.Primary) == 0 && len(r.Secondary) == 0 && len(r.Related) == 0
}

// Scanner retrieves candidate passages via hybrid search over the corpus
// plus thematic expansion from the index snapshot.
type Scanner struct {
	corpus  Corpus
	index   ThemeIndex
	persona *config.Persona
	logger  *slog.Logger
}

// New creates a Scanner.
func New(c Corpus, idx ThemeIndex, persona *config.Persona, logger *slog.Logger) (*Scanner, error) {
	if c == nil {
		return nil, fmt.Errorf("corpus is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}
	if persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{corpus: c, index: idx, persona: persona, logger: logger}, nil
}

// Scan produces the candidate bundle for a question. recentTopics is
// optional conversational context (recent theme names) that widens the
// thematic expansion.
//
// Scan is total: collaborator failures and empty corpora degrade to an
// empty Result, never an error, so downstream stages can fall back to
// the canonical answer.
func (s *Scanner) Scan(ctx context.Context, question string, recentTopics []string) Result {
	candidates := s.hybridSearch(ctx, question)

	primary, secondary := partitionBySource(candidates)
	secondary = s.filterContradictions(secondary, primary)

	var related []corpus.Entry
	if len(primary) >= minPrimary {
		// Strong primary coverage: expand from the tags the primary
		// passages already carry.
		related = s.expandThemes(tagsOf(primary[:minPrimary]))
	} else {
		related = s.expandThemes(append(s.matchThemes(question), recentTopics...))
	}

	return Result{
		Primary:   truncate(primary, MaxPrimary),
		Secondary: truncate(secondary, MaxSecondary),
		Related:   truncate(related, MaxRelated),
	}
}

// hybridSearch merges the lexical and vector legs, deduplicating by
// entry ID and keeping the higher score per duplicate. Insertion order
// is preserved so the later stable sort stays deterministic for a fixed
// corpus snapshot.
func (s *Scanner) hybridSearch(ctx context.Context, question string) []corpus.Entry {
	lexical, lexErr := s.corpus.LexicalSearch(ctx, question, corpus.WithLimit(hybridLimit))
	if lexErr != nil {
		s.logger.Warn("lexical search failed", "error", lexErr)
	}

	vector, vecErr := s.corpus.VectorSearch(ctx, question, corpus.WithLimit(hybridLimit))
	if vecErr != nil {
		s.logger.Warn("vector search failed", "error", vecErr)
	}

	seen := make(map[string]int, len(lexical)+len(vector))
	merged := make([]corpus.Entry, 0, len(lexical)+len(vector))

	for _, e := range append(lexical, vector...) {
		if i, ok := seen[e.ID]; ok {
			if e.Score > merged[i].Score {
				merged[i].Score = e.Score
			}
			continue
		}
		seen[e.ID] = len(merged)
		merged = append(merged, e)
	}

	return merged
}

// partitionBySource splits candidates into primary and secondary lists,
// each sorted descending by score. The sort is stable: ties keep
// insertion order.
func partitionBySource(candidates []corpus.Entry) (primary, secondary []corpus.Entry) {
	for _, e := range candidates {
		if e.Source.Primary() {
			primary = append(primary, e)
		} else {
			secondary = append(secondary, e)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool { return primary[i].Score > primary[j].Score })
	sort.SliceStable(secondary, func(i, j int) bool { return secondary[i].Score > secondary[j].Score })
	return primary, secondary
}

// filterContradictions rejects secondary entries whose text contains an
// anti-keyword for any theme tag they share with the selected primary
// entries. Secondary sources may never surface content that lexically
// opposes a primary-source theme already selected.
func (s *Scanner) filterContradictions(secondary, primary []corpus.Entry) []corpus.Entry {
	if len(primary) == 0 || len(secondary) == 0 {
		return secondary
	}

	primaryTags := make(map[string]bool)
	for _, e := range primary {
		for _, tag := range e.Tags {
			primaryTags[tag] = true
		}
	}

	kept := make([]corpus.Entry, 0, len(secondary))
	for _, e := range secondary {
		if s.contradicts(e, primaryTags) {
			s.logger.Debug("rejected contradicting passage", "entry_id", e.ID, "source", e.Source)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func (s *Scanner) contradicts(e corpus.Entry, primaryTags map[string]bool) bool {
	content := strings.ToLower(e.Content)
	for _, tag := range e.Tags {
		if !primaryTags[tag] {
			continue
		}
		for _, word := range s.persona.AntiKeywords[tag] {
			if strings.Contains(content, strings.ToLower(word)) {
				return true
			}
		}
	}
	return false
}

// matchThemes maps a question to configured themes by case-insensitive
// substring containment, so inflected forms still hit their keyword
// ("forgiveness" matches "forgive"). Theme names themselves also match.
func (s *Scanner) matchThemes(question string) []string {
	lower := strings.ToLower(question)

	themes := make([]string, 0, len(s.persona.Themes))
	for theme := range s.persona.Themes {
		themes = append(themes, theme)
	}
	sort.Strings(themes)

	matched := make([]string, 0, 2)
	for _, theme := range themes {
		if strings.Contains(lower, theme) {
			matched = append(matched, theme)
			continue
		}
		for _, keyword := range s.persona.Themes[theme] {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				matched = append(matched, theme)
				break
			}
		}
	}
	return matched
}

// expandThemes collects indexed entries for the given themes, sorted
// descending by score, deduplicated by ID.
func (s *Scanner) expandThemes(themes []string) []corpus.Entry {
	seen := make(map[string]bool)
	var related []corpus.Entry

	for _, theme := range themes {
		for _, e := range s.index.Lookup(theme) {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			related = append(related, e)
		}
	}

	sort.SliceStable(related, func(i, j int) bool { return related[i].Score > related[j].Score })
	return related
}

// tagsOf returns the distinct tags across entries, in first-seen order.
func tagsOf(entries []corpus.Entry) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, e := range entries {
		for _, tag := range e.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func truncate(entries []corpus.Entry, n int) []corpus.Entry {
	if entries == nil {
		return []corpus.Entry{}
	}
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

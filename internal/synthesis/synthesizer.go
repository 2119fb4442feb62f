// Package synthesis reduces a scan bundle to a single answer: a headline
// passage, a supporting excerpt, a dominant theme, a confidence score and
// a mood cue.
package synthesis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
	"github.com/firstclay/adam/internal/scanner"
)

const (
	// excerptBudget caps the supporting-point excerpt length in runes.
	excerptBudget = 200

	// maxSupporting caps the supporting source list.
	maxSupporting = 3

	// FallbackContent is the canonical empty-bundle answer.
	FallbackContent = "I need more time to contemplate this."

	// Confidence parameters: base grows with corroborating entries, the
	// headline's source weight scales it, both capped.
	confidenceFloor   = 0.7
	confidencePerHit  = 0.05
	confidenceBaseCap = 0.95

	// Mood cue increments per sentiment lexicon hit.
	moodCueStep = 0.02
)

// Answer is the synthesized result handed to the renderer.
type Answer struct {
	// Content is the blended answer text: headline passage plus an
	// optional supporting excerpt.
	Content string

	// PrimaryTheme is the dominant detected theme, or "default" when no
	// configured theme maps.
	PrimaryTheme string

	// Sources holds the headline entry (at most one).
	Sources []corpus.Entry

	// Supporting holds up to three further contributing entries.
	Supporting []corpus.Entry

	// Confidence is in [0, 1] and never decreases when more corroborating
	// entries or higher-priority sources contribute.
	Confidence float64

	// MoodScore is the answer's own emotional coloring in [0.1, 0.9]
	// (0.5 when neutral or empty).
	MoodScore float64

	// DetectedThemes lists every matched theme, most frequent first.
	DetectedThemes []string
}

// Fallback reports whether this is the canonical empty answer.
func (a Answer) Fallback() bool { return a.Confidence == 0 }

// Synthesizer blends scan bundles using the persona's source weights,
// theme vocabulary and sentiment lexicon.
type Synthesizer struct {
	persona *config.Persona
	logger  *slog.Logger
}

// New creates a Synthesizer.
func New(persona *config.Persona, logger *slog.Logger) (*Synthesizer, error) {
	if persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{persona: persona, logger: logger}, nil
}

// Synthesize reduces a scan bundle to one Answer. It is a pure function
// of the bundle and the persona data: same input, same answer.
func (s *Synthesizer) Synthesize(res scanner.Result) Answer {
	combined := s.combine(res)
	if len(combined) == 0 {
		return Answer{
			Content:        FallbackContent,
			PrimaryTheme:   config.DefaultTheme,
			Sources:        []corpus.Entry{},
			Supporting:     []corpus.Entry{},
			Confidence:     0.0,
			MoodScore:      0.5,
			DetectedThemes: []string{},
		}
	}

	headline := combined[0]

	content := headline.entry.Content
	if len(combined) > 1 {
		content += "\n\n" + excerpt(combined[1].entry.Content, excerptBudget)
	}

	supporting := make([]corpus.Entry, 0, maxSupporting)
	for _, w := range combined[1:] {
		if len(supporting) == maxSupporting {
			break
		}
		supporting = append(supporting, w.entry)
	}

	themes := s.detectThemes(combined)
	primaryTheme := config.DefaultTheme
	if len(themes) > 0 {
		primaryTheme = themes[0]
	}

	return Answer{
		Content:        content,
		PrimaryTheme:   primaryTheme,
		Sources:        []corpus.Entry{headline.entry},
		Supporting:     supporting,
		Confidence:     s.confidence(len(combined), headline.weight),
		MoodScore:      s.moodCue(combined),
		DetectedThemes: themes,
	}
}

// weighted pairs an entry with its per-source blend multiplier.
type weighted struct {
	entry  corpus.Entry
	weight float64
}

// combine merges primary and secondary passages, assigns source weights,
// and orders by (weight, relevance) descending. Source priority, not
// recency, decides the headline. The sort is stable so a fixed bundle
// always yields the same ordering.
func (s *Synthesizer) combine(res scanner.Result) []weighted {
	combined := make([]weighted, 0, len(res.Primary)+len(res.Secondary))
	for _, e := range res.Primary {
		combined = append(combined, weighted{entry: e, weight: s.persona.Weight(string(e.Source))})
	}
	for _, e := range res.Secondary {
		combined = append(combined, weighted{entry: e, weight: s.persona.Weight(string(e.Source))})
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].weight != combined[j].weight {
			return combined[i].weight > combined[j].weight
		}
		return combined[i].entry.Score > combined[j].entry.Score
	})

	return combined
}

// confidence implements the monotone scoring rule: more corroborating
// entries raise the base (capped at 0.95), and the headline's source
// weight scales it (capped at 1.0).
func (s *Synthesizer) confidence(count int, headlineWeight float64) float64 {
	base := confidenceFloor + confidencePerHit*float64(count)
	if base > confidenceBaseCap {
		base = confidenceBaseCap
	}
	conf := base * headlineWeight
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// detectThemes computes term frequencies over the combined texts and
// tags, maps terms onto the theme vocabulary, and returns matched themes
// ordered by frequency (name as tie-break, for determinism).
func (s *Synthesizer) detectThemes(combined []weighted) []string {
	freq := make(map[string]int)
	for _, w := range combined {
		for _, term := range tokenize(w.entry.Content) {
			freq[term]++
		}
		for _, tag := range w.entry.Tags {
			freq[strings.ToLower(tag)]++
		}
	}

	scores := make(map[string]int, len(s.persona.Themes))
	for theme, keywords := range s.persona.Themes {
		score := freq[theme]
		for _, kw := range keywords {
			score += freq[strings.ToLower(kw)]
		}
		if score > 0 {
			scores[theme] = score
		}
	}

	themes := make([]string, 0, len(scores))
	for theme := range scores {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if scores[themes[i]] != scores[themes[j]] {
			return scores[themes[i]] > scores[themes[j]]
		}
		return themes[i] < themes[j]
	})

	return themes
}

// moodCue derives the answer's emotional coloring from sentiment lexicon
// hits across the combined texts, clipped to [0.1, 0.9].
func (s *Synthesizer) moodCue(combined []weighted) float64 {
	cue := 0.5
	for _, w := range combined {
		content := strings.ToLower(w.entry.Content)
		for _, word := range s.persona.PositiveWords {
			if strings.Contains(content, word) {
				cue += moodCueStep
			}
		}
		for _, word := range s.persona.NegativeWords {
			if strings.Contains(content, word) {
				cue -= moodCueStep
			}
		}
	}
	return clip(cue, 0.1, 0.9)
}

// excerpt truncates text to budget runes on a word boundary, appending
// an ellipsis when shortened.
func excerpt(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	cut := string(runes[:budget])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t\n") + "…"
}

// tokenize lowercases and keeps alphabetic words longer than three runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 3 {
			terms = append(terms, strings.ToLower(f))
		}
	}
	return terms
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

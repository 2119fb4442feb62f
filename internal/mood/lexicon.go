package mood

import (
	"strings"
	"unicode"
)

// Signal is the dominant emotional reading of one input text.
type Signal struct {
	// Label names the winning emotion, or "neutral" when nothing matched.
	Label string

	// Weight is the signed contribution per unit intensity.
	Weight float64

	// Intensity is in [0, 1], growing with hit count.
	Intensity float64
}

// Lexicon maps emotion labels to trigger words and signed weights.
type Lexicon struct {
	entries []lexiconEntry
}

type lexiconEntry struct {
	label  string
	weight float64
	words  []string
}

// DefaultLexicon returns the built-in emotional vocabulary. Positive
// labels pull the mood up, negative labels pull it down.
func DefaultLexicon() *Lexicon {
	return &Lexicon{entries: []lexiconEntry{
		{label: "joy", weight: 0.15, words: []string{
			"happy", "joy", "wonderful", "blessed", "peace", "beautiful", "love",
		}},
		{label: "gratitude", weight: 0.10, words: []string{
			"thank", "grateful", "appreciate", "alhamdulillah",
		}},
		{label: "sadness", weight: -0.15, words: []string{
			"sad", "lonely", "grief", "loss", "cry", "miss", "heartbroken",
		}},
		{label: "anger", weight: -0.20, words: []string{
			"angry", "hate", "furious", "unfair", "rage",
		}},
		{label: "fear", weight: -0.10, words: []string{
			"afraid", "scared", "worry", "anxious", "fear", "dread",
		}},
	}}
}

// Detect scores every label by trigger-word hits and returns the highest
// scorer with an intensity derived from the hit count. When nothing
// matches, the neutral signal (zero weight) is returned, so updating on
// neutral text only applies decay.
//
// Ties break toward the label listed first, so detection is
// deterministic for a fixed lexicon.
func (l *Lexicon) Detect(text string) Signal {
	words := tokenize(text)
	if len(words) == 0 {
		return Signal{Label: "neutral"}
	}

	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	best := Signal{Label: "neutral"}
	bestHits := 0
	for _, e := range l.entries {
		hits := 0
		for _, trigger := range e.words {
			if set[trigger] {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = Signal{Label: e.label, Weight: e.weight, Intensity: intensity(hits)}
		}
	}
	return best
}

// intensity maps a hit count onto [0, 1]: one hit is a mild signal,
// three or more saturate.
func intensity(hits int) float64 {
	v := float64(hits) / 3.0
	if v > 1.0 {
		return 1.0
	}
	return v
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		words = append(words, strings.ToLower(f))
	}
	return words
}

// Package persona turns synthesized answers into the character's voice:
// seeded template selection per theme, scripture term rewriting,
// mood-band decoration and conversational bridges.
package persona

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
	"github.com/firstclay/adam/internal/mood"
	"github.com/firstclay/adam/internal/synthesis"
)

// bridgeChance is the percent chance a bridge question is appended in
// the high mood bands.
const bridgeChance = 60

// Renderer produces user-facing text from a synthesized answer. Given
// the same answer, band and seed it always renders the same string;
// variety in production comes from the per-turn seed.
type Renderer struct {
	persona *config.Persona
	logger  *slog.Logger
}

// NewRenderer creates a Renderer. The persona must already be validated.
func NewRenderer(persona *config.Persona, logger *slog.Logger) (*Renderer, error) {
	if persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{persona: persona, logger: logger}, nil
}

// Render produces the final response text. It never returns an empty
// string: when every step yields nothing, the persona's fallback phrase
// is emitted.
func (r *Renderer) Render(ans synthesis.Answer, question string, band mood.Band, seed uint64) string {
	if ans.Fallback() {
		return r.persona.Fallback
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	tmpl := r.pickTemplate(ans.PrimaryTheme, band, rng)
	text := r.fill(tmpl, ans, question)
	text = r.naturalize(text)
	text = r.decorate(text, band, rng)

	if band >= mood.BandHigh && len(r.persona.Bridges) > 0 && rng.IntN(100) < bridgeChance {
		bridge := r.persona.Bridges[rng.IntN(len(r.persona.Bridges))]
		text = text + "\n\n" + bridge
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return r.persona.Fallback
	}
	return text
}

// pickTemplate selects from the theme's pool, falling back to the
// default pool when the theme has no dedicated templates.
//
// The pool is scored by the band's modifiers: elaboration sets the
// preferred template length (low bands favor short templates, high
// bands the longest) and positivity rewards templates carrying words
// from the positive lexicon. The seed breaks ties among equally scored
// templates.
func (r *Renderer) pickTemplate(theme string, band mood.Band, rng *rand.Rand) string {
	pool := r.persona.Templates[theme]
	if len(pool) == 0 {
		pool = r.persona.Templates[config.DefaultTheme]
	}
	switch len(pool) {
	case 0:
		return "{content}"
	case 1:
		return pool[0]
	}

	mods := mood.ModifiersOf(band)

	longest := 1
	for _, tmpl := range pool {
		if n := len(strings.Fields(tmpl)); n > longest {
			longest = n
		}
	}

	best := math.Inf(-1)
	var top []string
	for _, tmpl := range pool {
		length := float64(len(strings.Fields(tmpl))) / float64(longest)
		score := 1 - math.Abs(length-mods.Elaboration)
		score += 0.1 * mods.Positivity * float64(r.positiveHits(tmpl))

		switch {
		case score > best:
			best = score
			top = append(top[:0], tmpl)
		case score == best:
			top = append(top, tmpl)
		}
	}
	return top[rng.IntN(len(top))]
}

func (r *Renderer) positiveHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, word := range r.persona.PositiveWords {
		if strings.Contains(lower, strings.ToLower(word)) {
			hits++
		}
	}
	return hits
}

// fill substitutes template placeholders. Missing data becomes the empty
// string, never an error.
func (r *Renderer) fill(tmpl string, ans synthesis.Answer, question string) string {
	reference := ""
	if len(ans.Sources) > 0 {
		reference = formatReference(ans.Sources[0])
	}

	text := strings.ReplaceAll(tmpl, "{content}", ans.Content)
	text = strings.ReplaceAll(text, "{reference}", reference)
	text = strings.ReplaceAll(text, "{question}", question)
	return text
}

// naturalize rewrites scripture terms into the persona's voice.
// Longer terms are replaced first so a short term never clobbers part of
// a longer one.
func (r *Renderer) naturalize(text string) string {
	terms := make([]string, 0, len(r.persona.TermMap))
	for term := range r.persona.TermMap {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})

	for _, term := range terms {
		text = strings.ReplaceAll(text, term, r.persona.TermMap[term])
	}
	return text
}

// decorate applies the band's decoration phrase: prepended in the low
// bands, appended in the high ones. Bands with no configured pool render
// undecorated.
func (r *Renderer) decorate(text string, band mood.Band, rng *rand.Rand) string {
	pool := r.persona.Decorations[band.String()]
	if len(pool) == 0 {
		return text
	}
	phrase := pool[rng.IntN(len(pool))]

	if band <= mood.BandLow {
		return phrase + " " + text
	}
	return text + "\n" + phrase
}

// formatReference renders an entry's citation, e.g. "(Quran 21:107)".
func formatReference(e corpus.Entry) string {
	ref := e.Reference()
	if ref == "" {
		return ""
	}
	return "(" + ref + ")"
}

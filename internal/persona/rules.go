package persona

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

// rule pairs a question pattern with a phrase pool. Rules answer social
// chatter without touching the corpus.
type rule struct {
	pattern *regexp.Regexp
	pool    []string
}

// RuleTable matches small-talk questions to canned in-voice responses.
// First matching rule wins; the phrase within the pool is chosen by the
// turn seed.
type RuleTable struct {
	rules []rule
}

// DefaultRules returns the built-in small-talk table.
func DefaultRules() *RuleTable {
	return &RuleTable{rules: []rule{
		{
			pattern: regexp.MustCompile(`(?i)^\s*(hello|hi|hey|salam|assalamu|peace be upon)`),
			pool: []string{
				"*looks up from the clay* Peace be upon you, friend. What brings you to my workshop?",
				"*sets down the clay* And upon you, peace. Sit with me a while.",
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\bwho\s+are\s+you\b`),
			pool: []string{
				"*holds up clay-stained hands* I am Adam, the first of my kind, shaped from this very earth.",
				"I am the first man, molded from clay by the Lord's own hands. And you?",
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\bhow\s+are\s+you\b`),
			pool: []string{
				"*kneads clay thoughtfully* The earth is patient with me today, and so I am well.",
				"As well as clay in a steady hand. And your own heart?",
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)^\s*(bye|goodbye|farewell|see you)`),
			pool: []string{
				"*presses a small clay token into your hand* Go in peace. Return when your heart is full of questions.",
				"Farewell, friend. The workshop door stays open.",
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)^\s*(thank you|thanks|shukran)`),
			pool: []string{
				"*smiles, wiping clay from his brow* It is the Lord's wisdom, I only pass it along.",
			},
		},
	}}
}

// Match returns a canned response when a rule fires. The seed picks the
// phrase deterministically. Empty questions never match.
func (t *RuleTable) Match(question string, seed uint64) (string, bool) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", false
	}
	for _, r := range t.rules {
		if r.pattern.MatchString(q) {
			rng := rand.New(rand.NewPCG(seed, seed))
			return r.pool[rng.IntN(len(r.pool))], true
		}
	}
	return "", false
}

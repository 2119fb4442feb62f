package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

var (
	// ErrPersonaThemes indicates the theme vocabulary is invalid.
	ErrPersonaThemes = errors.New("invalid persona themes")

	// ErrPersonaWeights indicates the source weight table is invalid.
	ErrPersonaWeights = errors.New("invalid persona source weights")

	// ErrPersonaTemplates indicates a template pool is invalid.
	ErrPersonaTemplates = errors.New("invalid persona templates")
)

// DefaultTheme is the template pool and answer theme used when no
// configured theme matches.
const DefaultTheme = "default"

// Persona holds the externally supplied persona data: everything the
// pipeline branches on that is data, not logic. It ships with compiled-in
// defaults and can be replaced wholesale by a YAML file.
type Persona struct {
	// Themes maps a theme name to its keyword list, used for index
	// construction, query expansion and answer classification.
	Themes map[string][]string `mapstructure:"themes"`

	// AntiKeywords maps a theme to words that lexically oppose it. A
	// secondary entry sharing theme t with a selected primary entry is
	// rejected when its text contains any word from AntiKeywords[t].
	AntiKeywords map[string][]string `mapstructure:"anti_keywords"`

	// SourceWeights are the per-source blend multipliers. The primary
	// source must carry the highest weight.
	SourceWeights map[string]float64 `mapstructure:"source_weights"`

	// IndexCaps limit how many entries each source contributes per theme
	// during an index rebuild.
	IndexCaps map[string]int `mapstructure:"index_caps"`

	// PositiveWords and NegativeWords form the sentiment lexicon used for
	// the synthesized mood cue.
	PositiveWords []string `mapstructure:"positive_words"`
	NegativeWords []string `mapstructure:"negative_words"`

	// Templates maps a theme to its response template pool. Placeholders:
	// {content}, {reference}, {question}. A "default" pool is required.
	Templates map[string][]string `mapstructure:"templates"`

	// TermMap rewrites scripture terms into the persona's voice before
	// templating.
	TermMap map[string]string `mapstructure:"term_map"`

	// Bridges are follow-up phrases appended in the higher mood bands.
	Bridges []string `mapstructure:"bridges"`

	// Decorations maps a mood band name (very_low .. very_high) to its
	// decoration phrase pool. Low bands prepend the chosen phrase, high
	// bands append it. A band with no pool renders undecorated.
	Decorations map[string][]string `mapstructure:"decorations"`

	// Fallback is the canonical phrase emitted when every rendering step
	// yields empty content.
	Fallback string `mapstructure:"fallback"`
}

// DefaultPersona returns the built-in persona data.
func DefaultPersona() *Persona {
	return &Persona{
		Themes: map[string][]string{
			"mercy":    {"forgive", "compassion", "kindness", "pardon", "merciful"},
			"comfort":  {"lonely", "sad", "ease", "distress", "anxiety", "peace"},
			"prophets": {"muhammad", "isa", "musa", "abraham", "david", "solomon"},
			"prayer":   {"supplication", "dua", "worship", "invocation"},
			"patience": {"perseverance", "steadfast", "endurance", "trials"},
			"creation": {"clay", "dust", "made", "shaped", "fashioned"},
		},
		AntiKeywords: map[string][]string{
			"mercy":   {"harsh", "unforgiving", "cruel"},
			"comfort": {"despair", "hopeless", "abandon"},
			"truth":   {"falsehood", "lie", "deceive"},
		},
		SourceWeights: map[string]float64{
			"quran":   1.4,
			"bible":   1.1,
			"book":    1.0,
			"article": 0.9,
		},
		IndexCaps: map[string]int{
			"quran":   20,
			"bible":   10,
			"book":    5,
			"article": 5,
		},
		PositiveWords: []string{
			"peace", "joy", "thank", "wisdom", "love", "kind", "merciful", "heaven",
		},
		NegativeWords: []string{
			"pain", "evil", "suffer", "hate", "death", "sin", "hell", "anger",
		},
		Templates: map[string][]string{
			"mercy": {
				"*offers clay piece* No soul is so broken it cannot be reshaped. {content}",
				"*smoothing cracks* The Lord's mercy is softer than fresh clay. {content} {reference}",
			},
			"comfort": {
				"*cradles clay* When my heart was heavy, these words held me: {content}",
				"*presses hand to chest* {content} {reference}",
			},
			"creation": {
				"*shaping clay into human form* The same Lord who molded me shaped you too. {content}",
				"*kneading clay* We are fashioned from the same divine clay. {content}",
			},
			DefaultTheme: {
				"*kneads clay* Regarding your question: {content}",
				"*brushes hands* {content}\nThus I learned of this. {reference}",
				"*gazes upward* The Divine whispers: {content}",
			},
		},
		TermMap: map[string]string{
			"Allah":     "the Lord",
			"Paradise":  "the Garden",
			"Messenger": "Prophet",
			"verily":    "truly",
		},
		Bridges: []string{
			"Tell me, what stirs in your heart about this?",
			"Does this land differently than you expected?",
			"*offers clay* Shall we shape this understanding together?",
		},
		Decorations: map[string][]string{
			"very_low": {
				"*clay crumbles slightly*",
				"*works the clay in silence*",
			},
			"low": {
				"*slowly turns the clay*",
			},
			"high": {
				"*clay takes form easily today*",
			},
			"very_high": {
				"*the clay almost sings*",
				"*shapes a small bird from clay*",
			},
		},
		Fallback: "*reshapes clay* I need more time to contemplate this.",
	}
}

// LoadPersona reads persona data from a YAML file, or returns the
// defaults when path is empty. The result is validated; a malformed
// persona file must abort startup.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		p := DefaultPersona()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading persona file %q: %w", path, err)
	}

	var p Persona
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("unmarshaling persona file %q: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("persona file %q: %w", path, err)
	}
	return &p, nil
}

// Validate checks the persona data invariants the pipeline depends on.
func (p *Persona) Validate() error {
	if len(p.Themes) == 0 {
		return fmt.Errorf("%w: no themes configured", ErrPersonaThemes)
	}
	for theme, keywords := range p.Themes {
		if theme == "" {
			return fmt.Errorf("%w: empty theme name", ErrPersonaThemes)
		}
		if len(keywords) == 0 {
			return fmt.Errorf("%w: theme %q has no keywords", ErrPersonaThemes, theme)
		}
	}

	if len(p.SourceWeights) == 0 {
		return fmt.Errorf("%w: no source weights configured", ErrPersonaWeights)
	}
	primary, ok := p.SourceWeights["quran"]
	if !ok {
		return fmt.Errorf("%w: missing weight for primary source", ErrPersonaWeights)
	}
	for source, w := range p.SourceWeights {
		if w <= 0 {
			return fmt.Errorf("%w: source %q has non-positive weight %v", ErrPersonaWeights, source, w)
		}
		if source != "quran" && w >= primary {
			return fmt.Errorf("%w: source %q weight %v must be below primary weight %v",
				ErrPersonaWeights, source, w, primary)
		}
	}

	pool, ok := p.Templates[DefaultTheme]
	if !ok || len(pool) == 0 {
		return fmt.Errorf("%w: missing %q template pool", ErrPersonaTemplates, DefaultTheme)
	}
	for theme, templates := range p.Templates {
		for i, tmpl := range templates {
			if tmpl == "" {
				return fmt.Errorf("%w: theme %q template %d is empty", ErrPersonaTemplates, theme, i)
			}
		}
	}

	if p.Fallback == "" {
		return fmt.Errorf("%w: fallback phrase is empty", ErrPersonaTemplates)
	}

	return nil
}

// Weight returns the blend multiplier for a source, defaulting to 1.0
// for sources the table does not name.
func (p *Persona) Weight(source string) float64 {
	if w, ok := p.SourceWeights[source]; ok {
		return w
	}
	return 1.0
}

// IndexCap returns the per-theme rebuild cap for a source, defaulting
// to 5.
func (p *Persona) IndexCap(source string) int {
	if c, ok := p.IndexCaps[source]; ok && c > 0 {
		return c
	}
	return 5
}

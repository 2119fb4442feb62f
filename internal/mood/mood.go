// Package mood maintains a continuous per-user affect state in
// [0.1, 0.9]. Each turn the user's question is scanned for an emotional
// signal, the state decays toward its last value and absorbs the signal,
// and a discrete band derived from the state drives response formatting.
package mood

import (
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// Baseline is the starting state for a fresh conversation.
	Baseline = 0.7

	// Min and Max bound the state for all update sequences.
	Min = 0.1
	Max = 0.9

	// decayWindow is how long it takes the decay factor to reach its
	// floor when no updates arrive.
	decayWindow = 2 * time.Hour

	// decayFloor is the lower bound on the decay factor. Even a long-idle
	// state keeps at least this fraction of its previous value.
	decayFloor = 0.3

	// historyCap bounds the retained per-state history.
	historyCap = 50

	// State retention in the registry. Idle conversations are evicted and
	// restart at baseline.
	stateTTL      = 24 * time.Hour
	sweepInterval = time.Hour
)

// Band is a discrete range of the mood scalar. Formatting decisions key
// on bands, never on the raw value.
type Band int

const (
	BandVeryLow Band = iota
	BandLow
	BandNeutral
	BandHigh
	BandVeryHigh
)

// Band boundaries, lowest first. A value below boundary i falls into
// Band(i).
var bandBounds = [...]float64{0.25, 0.45, 0.62, 0.78}

func (b Band) String() string {
	switch b {
	case BandVeryLow:
		return "very_low"
	case BandLow:
		return "low"
	case BandNeutral:
		return "neutral"
	case BandHigh:
		return "high"
	case BandVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// BandOf maps a mood value to its band.
func BandOf(value float64) Band {
	for i, bound := range bandBounds {
		if value < bound {
			return Band(i)
		}
	}
	return BandVeryHigh
}

// Modifiers are the formatting knobs a band exposes: how much the
// renderer elaborates and how warm it sounds.
type Modifiers struct {
	Elaboration float64
	Positivity  float64
}

var bandModifiers = map[Band]Modifiers{
	BandVeryLow:  {Elaboration: 0.3, Positivity: 0.2},
	BandLow:      {Elaboration: 0.5, Positivity: 0.4},
	BandNeutral:  {Elaboration: 0.7, Positivity: 0.6},
	BandHigh:     {Elaboration: 0.9, Positivity: 0.8},
	BandVeryHigh: {Elaboration: 1.0, Positivity: 1.0},
}

// ModifiersOf returns the fixed modifier pair for a band.
func ModifiersOf(b Band) Modifiers {
	if m, ok := bandModifiers[b]; ok {
		return m
	}
	return bandModifiers[BandNeutral]
}

// Sample is one history point.
type Sample struct {
	At    time.Time
	Value float64
}

// State is one user's mood. Single writer per turn within a
// conversation; the mutex guards against concurrent turns for the same
// user arriving through different goroutines.
type State struct {
	mu         sync.Mutex
	value      float64
	history    []Sample
	lastUpdate time.Time
}

// Value returns the current mood scalar.
func (s *State) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// History returns a copy of the retained samples, oldest first.
func (s *State) History() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.history))
	copy(out, s.history)
	return out
}

// Model is the per-user mood registry. States are created at baseline on
// first sight and evicted after a day of silence.
type Model struct {
	states  *cache.Cache
	lexicon *Lexicon
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithLexicon overrides the default emotional lexicon.
func WithLexicon(l *Lexicon) Option {
	return func(m *Model) { m.lexicon = l }
}

// NewModel creates a mood registry.
func NewModel(logger *slog.Logger, opts ...Option) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		states:  cache.New(stateTTL, sweepInterval),
		lexicon: DefaultLexicon(),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// state returns the user's State, creating it at baseline when absent.
func (m *Model) state(userID string) *State {
	if v, ok := m.states.Get(userID); ok {
		return v.(*State)
	}
	s := &State{value: Baseline, lastUpdate: m.now()}
	// Two racing first turns may both build a state; Add keeps the
	// winner and we re-read it.
	if err := m.states.Add(userID, s, cache.DefaultExpiration); err != nil {
		if v, ok := m.states.Get(userID); ok {
			return v.(*State)
		}
	}
	return s
}

// Update detects the dominant emotional signal in text and folds it into
// the user's mood. The previous value first decays according to elapsed
// time, then the signed signal weight scaled by intensity is added, and
// the result is clipped to [0.1, 0.9]. Returns the new value.
func (m *Model) Update(userID, text string) float64 {
	s := m.state(userID)
	sig := m.lexicon.Detect(text)
	now := m.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	decay := decayFactor(now.Sub(s.lastUpdate))
	next := clip(s.value*decay+sig.Weight*sig.Intensity, Min, Max)

	s.value = next
	s.lastUpdate = now
	s.history = append(s.history, Sample{At: now, Value: next})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}

	m.logger.Debug("mood updated",
		"user_id", userID,
		"label", sig.Label,
		"intensity", sig.Intensity,
		"value", next,
		"band", BandOf(next).String())

	// Touch the TTL so active conversations are never evicted.
	m.states.Set(userID, s, cache.DefaultExpiration)
	return next
}

// Value returns the user's current mood, or baseline for unknown users.
func (m *Model) Value(userID string) float64 {
	if v, ok := m.states.Get(userID); ok {
		return v.(*State).Value()
	}
	return Baseline
}

// BandFor returns the user's current band.
func (m *Model) BandFor(userID string) Band {
	return BandOf(m.Value(userID))
}

// decayFactor maps idle time onto [decayFloor, 1]. Zero elapsed keeps the
// full previous value; the window or more keeps only the floor.
func decayFactor(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 1.0
	}
	f := 1.0 - elapsed.Seconds()/decayWindow.Seconds()
	if f < decayFloor {
		return decayFloor
	}
	return f
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

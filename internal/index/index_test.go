package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
	"github.com/firstclay/adam/internal/log"
)

// fakeSearcher answers VectorSearch per (theme, source) pair.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]corpus.Entry // keyed by query text
	err     error
	calls   int
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, query string, opts ...corpus.SearchOption) ([]corpus.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if entries, ok := f.results[query]; ok {
		return entries, nil
	}
	return []corpus.Entry{}, nil
}

func newIndex(t *testing.T, s Searcher) *Index {
	t.Helper()
	idx, err := New(s, config.DefaultPersona(), log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestLookupBeforeRebuildIsEmptyNotMissing(t *testing.T) {
	idx := newIndex(t, &fakeSearcher{})

	if got := idx.Lookup("mercy"); got == nil || len(got) != 0 {
		t.Errorf("Lookup before rebuild = %v, want empty slice", got)
	}
	if got := idx.Lookup("no-such-theme"); got == nil || len(got) != 0 {
		t.Errorf("Lookup of unknown theme = %v, want empty slice", got)
	}
}

func TestRebuildPopulatesThemes(t *testing.T) {
	s := &fakeSearcher{results: map[string][]corpus.Entry{
		"mercy": {{ID: "m1", Source: corpus.SourceQuran, Content: "verse", Score: 0.9}},
	}}
	idx := newIndex(t, s)

	if err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	// One query per theme and source; the fake returns the same entries
	// for every source of the matching theme.
	entries := idx.Lookup("mercy")
	if len(entries) == 0 {
		t.Fatal("mercy theme empty after rebuild")
	}
	if idx.BuiltAt().IsZero() {
		t.Error("BuiltAt still zero after rebuild")
	}
}

func TestRebuildQueriesEverySourcePerTheme(t *testing.T) {
	s := &fakeSearcher{}
	idx := newIndex(t, s)

	if err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	p := config.DefaultPersona()
	want := len(p.Themes) * len(corpus.AllSources())
	if s.calls != want {
		t.Errorf("searcher calls = %d, want %d", s.calls, want)
	}
}

func TestRebuildAllQueriesFailedKeepsOldSnapshot(t *testing.T) {
	good := &fakeSearcher{results: map[string][]corpus.Entry{
		"mercy": {{ID: "m1", Source: corpus.SourceQuran, Content: "verse"}},
	}}
	idx := newIndex(t, good)
	if err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	builtAt := idx.BuiltAt()

	good.mu.Lock()
	good.err = errors.New("database down")
	good.mu.Unlock()

	if err := idx.Rebuild(context.Background()); err == nil {
		t.Fatal("rebuild with every query failing returned nil error")
	}

	if len(idx.Lookup("mercy")) == 0 {
		t.Error("stale snapshot was discarded on failed rebuild")
	}
	if !idx.BuiltAt().Equal(builtAt) {
		t.Error("BuiltAt changed on failed rebuild")
	}
}

func TestThemesSorted(t *testing.T) {
	idx := newIndex(t, &fakeSearcher{})

	themes := idx.Themes()
	if len(themes) == 0 {
		t.Fatal("no themes")
	}
	for i := 1; i < len(themes); i++ {
		if themes[i] < themes[i-1] {
			t.Errorf("themes not sorted: %v", themes)
		}
	}
}

func TestConcurrentLookupDuringRebuild(t *testing.T) {
	s := &fakeSearcher{results: map[string][]corpus.Entry{
		"mercy": {{ID: "m1", Source: corpus.SourceQuran, Content: "verse"}},
	}}
	idx := newIndex(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				// Readers must always see a complete snapshot, never nil.
				if idx.Lookup("mercy") == nil {
					t.Error("Lookup returned nil during rebuild")
					return
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		if err := idx.Rebuild(context.Background()); err != nil {
			t.Errorf("Rebuild: %v", err)
		}
	}
	wg.Wait()
}

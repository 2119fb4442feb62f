package corpus_test

import (
	"context"
	"testing"

	"github.com/firstclay/adam/internal/corpus"
	"github.com/firstclay/adam/internal/log"
	"github.com/firstclay/adam/internal/testutil"
)

func setupStore(t *testing.T) (*corpus.Store, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := corpus.NewStore(db.Pool, &testutil.Embedder{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, context.Background()
}

func seedEntries(t *testing.T, ctx context.Context, store *corpus.Store) {
	t.Helper()
	entries := []corpus.Entry{
		{
			ID:      "quran-7-156",
			Source:  corpus.SourceQuran,
			Content: "My mercy encompasses all things, so ask and be forgiven.",
			Tags:    []string{"mercy"},
			Metadata: map[string]string{
				"reference": "Quran 7:156",
			},
		},
		{
			ID:      "quran-94-5",
			Source:  corpus.SourceQuran,
			Content: "With every hardship comes ease, so hold to patience.",
			Tags:    []string{"patience", "comfort"},
			Metadata: map[string]string{
				"reference": "Quran 94:5",
			},
		},
		{
			ID:      "psalm-34-18",
			Source:  corpus.SourceBible,
			Content: "The Lord is close to the brokenhearted and offers comfort.",
			Tags:    []string{"comfort"},
			Metadata: map[string]string{
				"reference": "Psalm 34:18",
			},
		},
	}
	for _, e := range entries {
		if err := store.Add(ctx, e); err != nil {
			t.Fatalf("Add(%s): %v", e.ID, err)
		}
	}
}

func TestStoreAddAndCount(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	total, err := store.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 3 {
		t.Errorf("Count = %d, want 3", total)
	}

	quran, err := store.Count(ctx, corpus.SourceQuran)
	if err != nil {
		t.Fatalf("Count(quran): %v", err)
	}
	if quran != 2 {
		t.Errorf("Count(quran) = %d, want 2", quran)
	}
}

func TestStoreAddIsIdempotent(t *testing.T) {
	store, ctx := setupStore(t)

	e := corpus.Entry{
		ID:      "quran-7-156",
		Source:  corpus.SourceQuran,
		Content: "My mercy encompasses all things.",
		Tags:    []string{"mercy"},
	}
	if err := store.Add(ctx, e); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	e.Content = "My mercy encompasses all things, updated."
	if err := store.Add(ctx, e); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	total, err := store.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 1 {
		t.Errorf("Count = %d after re-import, want 1", total)
	}
}

func TestStoreAddValidation(t *testing.T) {
	store, ctx := setupStore(t)

	tests := []struct {
		name  string
		entry corpus.Entry
	}{
		{"missing id", corpus.Entry{Source: corpus.SourceQuran, Content: "x"}},
		{"bad source", corpus.Entry{ID: "e1", Source: "podcast", Content: "x"}},
		{"empty content", corpus.Entry{ID: "e1", Source: corpus.SourceQuran}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Add(ctx, tt.entry); err == nil {
				t.Error("invalid entry accepted")
			}
		})
	}
}

func TestStoreLexicalSearch(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	results, err := store.LexicalSearch(ctx, "mercy forgiven")
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no lexical results")
	}
	if results[0].ID != "quran-7-156" {
		t.Errorf("top result = %q, want quran-7-156", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("top score = %v, want positive", results[0].Score)
	}
}

func TestStoreLexicalSearchSourceFilter(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	results, err := store.LexicalSearch(ctx, "comfort",
		corpus.WithSource(corpus.SourceBible))
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	for _, e := range results {
		if e.Source != corpus.SourceBible {
			t.Errorf("filter leaked source %q", e.Source)
		}
	}
}

func TestStoreLexicalSearchNoMatchIsEmpty(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	results, err := store.LexicalSearch(ctx, "zxcvbnm qwertyuiop")
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want empty", results)
	}
}

func TestStoreVectorSearch(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	// The deterministic embedder makes shared vocabulary similar, so the
	// mercy verse should rank first for its own wording.
	results, err := store.VectorSearch(ctx, "mercy encompasses all things", corpus.WithLimit(3))
	if err != nil {
		t.Fatalf("VectorSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no vector results")
	}
	if results[0].ID != "quran-7-156" {
		t.Errorf("top result = %q, want quran-7-156", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered by similarity: %+v", results)
		}
	}
}

func TestStoreQueryByTags(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	results, err := store.QueryByTags(ctx, []string{"comfort"})
	if err != nil {
		t.Fatalf("QueryByTags: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, e := range results {
		if !e.HasTag("comfort") {
			t.Errorf("entry %q lacks the queried tag", e.ID)
		}
	}

	empty, err := store.QueryByTags(ctx, nil)
	if err != nil {
		t.Fatalf("QueryByTags(nil): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("QueryByTags(nil) = %+v, want empty", empty)
	}
}

func TestStoreMetadataRoundTrip(t *testing.T) {
	store, ctx := setupStore(t)
	seedEntries(t, ctx, store)

	results, err := store.LexicalSearch(ctx, "mercy")
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if got := results[0].Reference(); got != "Quran 7:156" {
		t.Errorf("Reference() = %q, want Quran 7:156", got)
	}
}

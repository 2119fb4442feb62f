package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firstclay/adam/internal/app"
	"github.com/firstclay/adam/internal/config"
	"github.com/firstclay/adam/internal/corpus"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import corpus entries from a JSON file",
	Long: `Import reads a JSON array of corpus entries, embeds each one and
upserts it into the store. Entries look like:

  [{"id": "quran-21-107", "source": "quran", "content": "...",
    "tags": ["mercy"], "metadata": {"reference": "Quran 21:107"}}]

Imports are idempotent: re-importing the same IDs replaces the entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := os.ReadFile(args[0]) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	var entries []corpus.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s contains no entries", args[0])
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting application: %w", err)
	}
	defer a.Close()

	var imported, failed int
	for _, e := range entries {
		if err := a.Corpus.Add(ctx, e); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", e.ID, err)
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d entries (%d failed).\n", imported, failed)
	if failed > 0 {
		return fmt.Errorf("%d entries failed to import", failed)
	}
	return nil
}

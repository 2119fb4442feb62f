package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firstclay/adam/internal/app"
	"github.com/firstclay/adam/internal/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the thematic index once and exit",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting application: %w", err)
	}
	defer a.Close()

	if err := a.Index.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("Index rebuilt: %d themes as of %s\n",
		len(a.Index.Themes()), a.Index.BuiltAt().Format("2006-01-02 15:04:05"))
	return nil
}

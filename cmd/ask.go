package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firstclay/adam/internal/app"
	"github.com/firstclay/adam/internal/config"
)

var askUserID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUserID, "user", "cli", "user id for mood and history tracking")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.Join(args, " ")
	resp, err := a.Agent.Respond(ctx, askUserID, question)
	if err != nil {
		return err
	}

	fmt.Println(resp.Text)
	return nil
}

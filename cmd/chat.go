package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firstclay/adam/internal/app"
	"github.com/firstclay/adam/internal/config"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "cli", "user id for mood and history tracking")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	fmt.Println("*looks up from the potter's wheel* Peace be upon you. Ask, and I will answer.")
	fmt.Println("Type 'exit' or press Ctrl-D to leave.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			fmt.Println("Go in peace, friend.")
			return nil
		}

		resp, err := a.Agent.Respond(ctx, chatUserID, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
		fmt.Println(resp.Text)
		fmt.Println()
	}
}

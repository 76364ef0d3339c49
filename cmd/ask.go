package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MohamedRasheqA/bents-v3/internal/app"
	"github.com/MohamedRasheqA/bents-v3/internal/chat"
	"github.com/MohamedRasheqA/bents-v3/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a woodworking question",
	Long: `Ask a single question and stream the answer to the terminal.
Video references and related products are printed after the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(question string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	resp, err := a.Engine.AskStream(ctx, chat.Request{Question: question},
		func(_ context.Context, text string) error {
			_, err := fmt.Print(text)
			return err
		})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Println()

	if len(resp.VideoReferences) > 0 {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, "Video references:")
		for _, ref := range resp.VideoReferences {
			fmt.Fprintf(os.Stdout, "  [%s] %s\n      %s\n", ref.Timestamp, ref.Title, ref.DeepLink)
		}
	}

	if len(resp.RelatedProducts) > 0 {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, "Related products:")
		for _, p := range resp.RelatedProducts {
			fmt.Fprintf(os.Stdout, "  %s\n      %s\n", p.Title, p.Link)
		}
	}

	return nil
}

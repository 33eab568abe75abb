package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"refine-ai-api/internal/application/testrun"
	"refine-ai-api/internal/wire"
)

var (
	runPrompt     string
	runPromptFile string
	runObjective  string
	runProvider   string
)

var testRunCmd = &cobra.Command{
	Use:   "test-run",
	Short: "Stream a model response for a refined prompt",
	Long: `Send a refined prompt to the configured test-run provider and stream the answer.

Example:
  refinectl generate -c coding -o "fix my bug" > prompt.md
  refinectl test-run --prompt-file prompt.md --objective "fix my bug" --provider simulated`,
	Args: cobra.NoArgs,
	RunE: runTestRun,
}

func init() {
	testRunCmd.Flags().StringVar(&runPrompt, "prompt", "", "Refined prompt text")
	testRunCmd.Flags().StringVar(&runPromptFile, "prompt-file", "", "Read the refined prompt from a file (- for stdin)")
	testRunCmd.Flags().StringVarP(&runObjective, "objective", "o", "", "Original objective")
	testRunCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider name (defaults to test_run.provider)")
}

func readPrompt() (string, error) {
	switch runPromptFile {
	case "":
		return runPrompt, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(runPromptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt: %w", err)
		}
		return string(data), nil
	}
}

func runTestRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt()
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		return errors.New("a prompt is required (--prompt or --prompt-file)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runProvider != "" {
		cfg.TestRun.Provider = runProvider
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tk, cleanup, err := wire.InitializeToolkit(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	req := testrun.Request{Prompt: prompt, Objective: runObjective}
	if tk.Runner.Refuses(req) {
		fmt.Println(testrun.RefusalNotice)
		return nil
	}

	_, err = tk.Runner.Run(ctx, req, func(chunk string) error {
		_, werr := io.WriteString(os.Stdout, chunk)
		return werr
	})
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

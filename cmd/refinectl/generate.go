package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"refine-ai-api/internal/application/promptgen"
	"refine-ai-api/internal/wire"
)

var (
	genCategory  string
	genObjective string
	genPersona   string
	genModel     string
	genFormat    string
	genTone      string
	genMode      string
	genJSON      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a refined prompt",
	Long: `Generate a refined prompt from a category, an objective and optional constraints.

Example:
  refinectl generate --category coding --objective "fix my flaky test" --tone 80
  refinectl generate --objective "plan a trip" --mode llm --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genCategory, "category", "c", "", "Category id or label")
	generateCmd.Flags().StringVarP(&genObjective, "objective", "o", "", "What you need help with (required)")
	generateCmd.Flags().StringVarP(&genPersona, "persona", "p", "", "Persona the model should adopt")
	generateCmd.Flags().StringVarP(&genModel, "model", "m", "", "Target model name")
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "", "Output format")
	generateCmd.Flags().StringVarP(&genTone, "tone", "t", "50", "Tone from 0 (casual) to 100 (academic)")
	generateCmd.Flags().StringVar(&genMode, "mode", "", "Generation mode: template or llm (defaults to config)")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the result as JSON")
	_ = generateCmd.MarkFlagRequired("objective")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if genMode != "" {
		cfg.Generation.Mode = genMode
	}

	ctx := context.Background()
	tk, cleanup, err := wire.InitializeToolkit(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	out, err := tk.Generator.Generate(ctx, promptgen.Input{
		Category:    genCategory,
		Objective:   genObjective,
		Persona:     genPersona,
		TargetModel: genModel,
		Format:      genFormat,
		Tone:        promptgen.CoerceTone(genTone),
	})
	if err != nil {
		return err
	}

	if genJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Println(out.Text)
	return nil
}

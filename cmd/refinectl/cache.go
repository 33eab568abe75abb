package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"refine-ai-api/internal/wire"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the generation result cache",
}

var cachePattern string

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop cached LLM generations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		tk, cleanup, err := wire.InitializeToolkit(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer cleanup()

		n, err := tk.Cache.InvalidatePattern(ctx, cachePattern)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Removed %d cached generations\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cachePattern, "pattern", "promptgen:*", "Key pattern to delete")
	cacheCmd.AddCommand(cacheClearCmd)
}

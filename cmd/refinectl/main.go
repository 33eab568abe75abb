// Package main RefineAI 命令行工具
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"refine-ai-api/internal/config"
	"refine-ai-api/pkg/logger"
)

var version = "dev"

var configDir string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "refinectl",
		Short:         "Refine rough ideas into structured prompts from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir, "Directory holding config.yaml")

	rootCmd.AddCommand(catalogCmd, generateCmd, testRunCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并初始化日志，日志写到 stderr 以免混入输出
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.InitWithWriter(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, os.Stderr)
	return cfg, nil
}

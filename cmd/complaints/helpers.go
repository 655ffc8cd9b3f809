package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/crypto-complaints/internal/categorize"
	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/config"
	"github.com/Veraticus/crypto-complaints/internal/storage"
	"github.com/spf13/viper"
)

// loadConfig returns the typed configuration from the global viper instance.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openHistory opens and migrates the run history database.
func openHistory(ctx context.Context, cfg config.Config) (*storage.RunHistory, error) {
	history, err := storage.OpenRunHistory(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := history.Migrate(ctx); err != nil {
		_ = history.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return history, nil
}

// loadDefinition reads the category file when one is configured.
func loadDefinition(cfg config.Config) (categorize.Definition, error) {
	if cfg.Data.CategoriesFile == "" {
		return categorize.DefaultDefinition(), nil
	}
	def, err := categorize.LoadCategories(cfg.Data.CategoriesFile)
	if err != nil {
		return categorize.Definition{}, err
	}
	slog.Debug("Loaded category definitions", "path", cfg.Data.CategoriesFile, "categories", len(def.Categories))
	return def, nil
}

// ciOutputPath prefers the CI runner's step output file over the configured one.
func ciOutputPath(cfg config.Config) string {
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		return path
	}
	return cfg.CI.OutputFile
}

// appendCIOutput appends the lines produced by write to path.
func appendCIOutput(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open CI output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write CI output: %w", err)
	}
	return nil
}

// resolveAPIKey falls back to the provider's conventional environment variable.
func resolveAPIKey(provider, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	env := "ANTHROPIC_API_KEY"
	if provider == "openai" {
		env = "OPENAI_API_KEY"
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	return "", common.NewUserError("set llm.api_key or "+env, fmt.Errorf("%w: LLM API key", common.ErrMissingConfig))
}

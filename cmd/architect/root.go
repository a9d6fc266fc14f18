package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/config"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
)

var (
	configPath       string
	requirementsPath string
)

var rootCmd = &cobra.Command{
	Use:   "architect",
	Short: "Architect - LLM-driven software architecture pipeline",
	Long: `Architect turns plain-language requirements into specialist reviews, an integrated
folder structure with a dependency tree, dependency-ordered code and an implementation book.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults to $ARCHITECT_CONFIG)")
}

// requirementsFile is the YAML shape accepted by --requirements.
type requirementsFile struct {
	Requirements models.Requirements `yaml:"requirements"`
}

// readRequirements merges the requirements file, if any, with positional args.
func readRequirements(path string, args []string) ([]string, error) {
	var reqs []string
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading requirements: %w", err)
		}
		var file requirementsFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing requirements: %w", err)
		}
		reqs = append(reqs, file.Requirements...)
	}
	reqs = append(reqs, args...)
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no requirements given (use --requirements or positional arguments)")
	}
	return reqs, nil
}

// newPipeline builds the LLM client and pipeline from configuration.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*orchestration.Pipeline, error) {
	client, err := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		RetryBaseDelay:    cfg.LLM.RetryBaseDelay,
		RetryMaxDelay:     cfg.LLM.RetryMaxDelay,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		BurstSize:         cfg.LLM.BurstSize,
		CacheSize:         cfg.LLM.CacheSize,
	}, llm.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return orchestration.NewPipeline(client, orchestration.PipelineConfig{
		SpecialistConcurrency: cfg.Pipeline.SpecialistConcurrency,
		FileConcurrency:       cfg.Pipeline.FileConcurrency,
		MaxContinuations:      cfg.Pipeline.MaxContinuations,
		ContinuationTailChars: cfg.Pipeline.ContinuationTailChars,
	}, logger, nil), nil
}

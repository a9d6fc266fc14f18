package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/config"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
)

var (
	runLevel   int
	runBook    bool
	outputPath string
	outputFmt  string
)

var runCmd = &cobra.Command{
	Use:   "run [requirement...]",
	Short: "Run the architect pipeline up to a level",
	Long: `Runs levels 1 through --level against the requirements and writes the final pipeline
state. With --book the implementation book is generated after level 2.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&requirementsPath, "requirements", "r", "", "YAML file with a requirements list")
	runCmd.Flags().IntVarP(&runLevel, "level", "l", 3, "Last level to run (1-3)")
	runCmd.Flags().BoolVar(&runBook, "book", false, "Generate the implementation book after level 2")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (defaults to stdout)")
	runCmd.Flags().StringVarP(&outputFmt, "format", "f", "yaml", "Output format: yaml or json")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	last := models.Stage(runLevel)
	if !last.Valid() {
		return fmt.Errorf("invalid level %d (valid: 1, 2, 3)", runLevel)
	}
	if runBook && last < models.StageIntegration {
		return fmt.Errorf("--book needs --level 2 or higher")
	}
	if outputFmt != "yaml" && outputFmt != "json" {
		return fmt.Errorf("invalid format: %s (valid: yaml, json)", outputFmt)
	}

	reqs, err := readRequirements(requirementsPath, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := orchestration.NewDriver(pipeline, reqs)
	var runErr error
	for stage := models.StageSpecialists; stage <= last; stage++ {
		logger.Info("running level", "level", int(stage))
		if _, runErr = driver.RunStage(ctx, stage); runErr != nil {
			break
		}
		if stage == models.StageIntegration && runBook {
			logger.Info("generating implementation book")
			if _, runErr = driver.RunBook(ctx); runErr != nil {
				break
			}
		}
	}

	// the state is written even on failure so the error slot is visible
	if err := writeState(driver.State(), outputPath, outputFmt, cmd.OutOrStdout()); err != nil {
		return err
	}
	return runErr
}

func writeState(state models.PipelineState, path, format string, stdout io.Writer) error {
	out := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if format == "json" {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	// JSON is valid YAML; re-encoding the node tree keeps the JSON field names and order
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("converting state: %w", err)
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow style inherited from JSON and prints multi-line
// strings, such as generated code, as literal blocks.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}

package orchestration

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/architecture"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Integrator merges specialist visions into one architecture.
type Integrator struct {
	llm    llm.Invoker
	tracer trace.Tracer
	logger *slog.Logger
}

// NewIntegrator creates the integrator stage.
func NewIntegrator(inv llm.Invoker, logger *slog.Logger) *Integrator {
	return &Integrator{
		llm:    inv,
		tracer: otel.Tracer("orchestration"),
		logger: logger.With("component", "integrator"),
	}
}

// Integrate issues the single integrator call and ingests the result. The
// returned architecture has its file list in implementation order.
func (i *Integrator) Integrate(ctx context.Context, requirements []string, visionText string, specialists []models.SpecialistVision) (*models.Architecture, *architecture.Model, error) {
	ctx, span := i.tracer.Start(ctx, "integrator.integrate")
	defer span.End()

	user, err := integratorUserMessage(requirements, visionText, specialists)
	if err != nil {
		return nil, nil, err
	}

	var arch models.Architecture
	if err := llm.InvokeInto(ctx, i.llm, integratorSystemPrompt, user, &arch); err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("integrator: %w", err)
	}

	model, err := architecture.Ingest(&arch)
	if err == nil {
		err = checkSchema("architecture", arch)
	}
	if err != nil {
		llm.Forget(i.llm, integratorSystemPrompt, user)
		span.RecordError(err)
		return nil, nil, err
	}
	arch.RootFolder = model.Tree.FolderTree()

	span.SetAttributes(
		attribute.Int("architecture.files", model.Graph.Len()),
		attribute.Int("architecture.tree_nodes", model.Tree.Len()),
		attribute.Bool("architecture.orders_repaired", model.Graph.Repaired()),
	)
	if model.Graph.Repaired() {
		i.logger.Warn("implementation orders violated dependencies and were recomputed", "files", model.Graph.Len())
	}
	for _, f := range arch.DependencyTree.Files {
		if ext := model.Graph.External(f.FullPath()); len(ext) > 0 {
			i.logger.Debug("external dependencies ignored for ordering", "file", f.FullPath(), "dependencies", ext)
		}
	}
	i.logger.Info("architecture integrated",
		"files", model.Graph.Len(),
		"conflict_resolutions", len(arch.ConflictResolutions))

	return &arch, model, nil
}

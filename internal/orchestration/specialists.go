package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// ProgressFunc receives (completed, total) after each unit of work.
type ProgressFunc func(index, total int)

// SpecialistGenerator runs one LLM call per specialist role.
type SpecialistGenerator struct {
	llm         llm.Invoker
	concurrency int
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewSpecialistGenerator creates a generator. concurrency <= 1 runs roles one
// at a time.
func NewSpecialistGenerator(inv llm.Invoker, concurrency int, logger *slog.Logger) *SpecialistGenerator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SpecialistGenerator{
		llm:         inv,
		concurrency: concurrency,
		tracer:      otel.Tracer("orchestration"),
		logger:      logger.With("component", "specialists"),
	}
}

// Generate returns one vision per specialist role, in role order. Any failure
// discards every result.
func (g *SpecialistGenerator) Generate(ctx context.Context, roles, requirements []string, onProgress ProgressFunc) ([]models.SpecialistVision, error) {
	roles = SpecialistRoles(roles)
	ctx, span := g.tracer.Start(ctx, "specialists.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("specialists.count", len(roles)), attribute.Int("specialists.concurrency", g.concurrency))

	visions := make([]models.SpecialistVision, len(roles))
	if g.concurrency == 1 {
		for i, role := range roles {
			v, err := g.generateOne(ctx, role, requirements)
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			visions[i] = v
			if onProgress != nil {
				onProgress(i+1, len(roles))
			}
		}
		return visions, nil
	}

	var (
		mu   sync.Mutex
		done int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, role := range roles {
		eg.Go(func() error {
			v, err := g.generateOne(egCtx, role, requirements)
			if err != nil {
				return err
			}
			visions[i] = v
			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(done, len(roles))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return visions, nil
}

func (g *SpecialistGenerator) generateOne(ctx context.Context, role string, requirements []string) (models.SpecialistVision, error) {
	g.logger.Info("generating specialist vision", "role", role)

	system, user := specialistSystemPrompt(role), specialistUserMessage(requirements)
	var v models.SpecialistVision
	if err := llm.InvokeInto(ctx, g.llm, system, user, &v); err != nil {
		return models.SpecialistVision{}, fmt.Errorf("specialist %s: %w", role, err)
	}
	if strings.TrimSpace(v.Role) == "" {
		v.Role = role
	}
	if err := checkSchema("specialist "+role, v); err != nil {
		llm.Forget(g.llm, system, user)
		return models.SpecialistVision{}, err
	}
	return v, nil
}

// CombinedVision joins specialist visions into the text handed to later stages.
func CombinedVision(visions []models.SpecialistVision) string {
	var b strings.Builder
	for _, v := range visions {
		text := strings.TrimSpace(v.VisionText)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n%s", v.Role, text)
	}
	return b.String()
}

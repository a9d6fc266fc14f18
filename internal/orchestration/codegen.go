package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/architecture"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// CodeGenerator produces one implementation per dependency file, never before
// the implementations of its dependencies.
type CodeGenerator struct {
	llm         llm.Invoker
	concurrency int
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewCodeGenerator creates the code generation stage. concurrency > 1 lets
// files of the same dependency level run together.
func NewCodeGenerator(inv llm.Invoker, concurrency int, logger *slog.Logger) *CodeGenerator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CodeGenerator{
		llm:         inv,
		concurrency: concurrency,
		tracer:      otel.Tracer("orchestration"),
		logger:      logger.With("component", "codegen"),
	}
}

type codeReply struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	TestCode string `json:"testCode"`
}

// Generate returns implementations in generation order. The first failure
// stops the stage and nothing is returned.
func (g *CodeGenerator) Generate(ctx context.Context, arch *models.Architecture, requirements []string, onProgress ProgressFunc) ([]models.FileImplementation, error) {
	ctx, span := g.tracer.Start(ctx, "codegen.generate")
	defer span.End()

	graph, err := architecture.NewGraph(arch.DependencyTree.Files)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("codegen.files", graph.Len()), attribute.Int("codegen.concurrency", g.concurrency))

	run := &codegenRun{
		gen:          g,
		graph:        graph,
		requirements: requirements,
		vision:       arch.IntegratedVision,
		produced:     make(map[string]models.FileImplementation, graph.Len()),
		total:        graph.Len(),
		onProgress:   onProgress,
	}

	if g.concurrency == 1 {
		err = run.sequential(ctx)
	} else {
		err = run.byLevel(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return run.out, nil
}

type codegenRun struct {
	gen          *CodeGenerator
	graph        *architecture.Graph
	requirements []string
	vision       string
	onProgress   ProgressFunc
	total        int

	mu       sync.Mutex
	produced map[string]models.FileImplementation
	out      []models.FileImplementation
}

func (r *codegenRun) sequential(ctx context.Context) error {
	for _, f := range r.graph.Ordered() {
		impl, err := r.generateFile(ctx, f)
		if err != nil {
			return err
		}
		r.record(impl)
	}
	return nil
}

func (r *codegenRun) byLevel(ctx context.Context) error {
	for _, level := range r.graph.Levels() {
		results := make([]models.FileImplementation, len(level))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(r.gen.concurrency)
		for i, f := range level {
			eg.Go(func() error {
				impl, err := r.generateFile(egCtx, f)
				if err != nil {
					return err
				}
				results[i] = impl
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		// append in Ordered order so output does not depend on scheduling
		for _, impl := range results {
			r.record(impl)
		}
	}
	return nil
}

func (r *codegenRun) record(impl models.FileImplementation) {
	r.mu.Lock()
	r.produced[impl.FullPath()] = impl
	r.out = append(r.out, impl)
	n := len(r.out)
	r.mu.Unlock()
	if r.onProgress != nil {
		r.onProgress(n, r.total)
	}
}

// dependencyContext returns the already produced implementations f depends on.
func (r *codegenRun) dependencyContext(f models.DependencyFile) ([]models.FileImplementation, error) {
	key := f.FullPath()
	r.mu.Lock()
	defer r.mu.Unlock()
	var deps []models.FileImplementation
	for _, dep := range r.graph.Dependencies(key) {
		impl, ok := r.produced[dep]
		if !ok {
			return nil, fmt.Errorf("dependency %s of %s has not been generated", dep, key)
		}
		deps = append(deps, impl)
	}
	return deps, nil
}

func (r *codegenRun) generateFile(ctx context.Context, f models.DependencyFile) (models.FileImplementation, error) {
	key := f.FullPath()
	deps, err := r.dependencyContext(f)
	if err != nil {
		return models.FileImplementation{}, err
	}

	r.gen.logger.Info("generating file",
		"file", key,
		"order", f.ImplementationOrder,
		"kind", detectFileKind(f),
		"dependency_context", len(deps))

	var reply codeReply
	user := codeUserMessage(r.requirements, r.vision, f, deps)
	if err := llm.InvokeInto(ctx, r.gen.llm, codeSystemPrompt, user, &reply); err != nil {
		return models.FileImplementation{}, fmt.Errorf("file %s: %w", key, err)
	}

	impl := models.FileImplementation{
		Name:         f.Name,
		Path:         f.Path,
		Type:         f.Type,
		Description:  f.Description,
		Purpose:      f.Purpose,
		Dependencies: f.Dependencies,
		Language:     reply.Language,
		Code:         reply.Code,
		TestCode:     reply.TestCode,
	}
	if err := checkSchema("implementation of "+key, impl); err != nil {
		llm.Forget(r.gen.llm, codeSystemPrompt, user)
		return models.FileImplementation{}, err
	}
	return impl, nil
}

package orchestration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// PipelineConfig tunes the stages.
type PipelineConfig struct {
	SpecialistConcurrency int
	FileConcurrency       int
	MaxContinuations      int
	ContinuationTailChars int
}

// StageRecorder receives one observation per stage run.
type StageRecorder interface {
	RecordStage(ctx context.Context, stage int, outcome string, duration time.Duration)
	RecordContinuation(ctx context.Context)
}

// Pipeline runs individual stages as pure functions of a PipelineState.
type Pipeline struct {
	Specialists *SpecialistGenerator
	Integrator  *Integrator
	Code        *CodeGenerator
	Book        *BookGenerator

	recorder StageRecorder
	logger   *slog.Logger
}

// NewPipeline wires every stage to one LLM invoker.
func NewPipeline(inv llm.Invoker, cfg PipelineConfig, logger *slog.Logger, recorder StageRecorder) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		Specialists: NewSpecialistGenerator(inv, cfg.SpecialistConcurrency, logger),
		Integrator:  NewIntegrator(inv, logger),
		Code:        NewCodeGenerator(inv, cfg.FileConcurrency, logger),
		Book:        NewBookGenerator(inv, cfg.MaxContinuations, cfg.ContinuationTailChars, logger),
		recorder:    recorder,
		logger:      logger.With("component", "pipeline"),
	}
	if recorder != nil {
		p.Book.WithRecorder(recorder)
	}
	return p
}

// Prerequisites lists, in readable form, the inputs stage needs that state lacks.
func Prerequisites(stage models.Stage, state models.PipelineState) []string {
	var missing []string
	if len(nonEmpty(state.Requirements)) == 0 {
		missing = append(missing, "at least one requirement")
	}
	switch stage {
	case models.StageSpecialists:
	case models.StageIntegration:
		if state.Level1 == nil || len(state.Level1.Specialists) == 0 {
			missing = append(missing, "specialist visions from level 1")
		}
		if state.Level1 == nil || strings.TrimSpace(state.Level1.VisionText) == "" {
			missing = append(missing, "vision text from level 1")
		}
	case models.StageCode:
		if state.Level2 == nil {
			missing = append(missing, "architecture from level 2")
			break
		}
		if strings.TrimSpace(state.Level2.RootFolder.Name) == "" {
			missing = append(missing, "root folder from level 2")
		}
		if len(state.Level2.DependencyTree.Files) == 0 {
			missing = append(missing, "dependency tree from level 2")
		}
	default:
		missing = append(missing, "a valid level (1, 2 or 3)")
	}
	return missing
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Run executes one stage against state and returns the next state. On failure
// the returned state carries the error, the stage does not advance and no
// partial output of the failed stage is kept.
func (p *Pipeline) Run(ctx context.Context, stage models.Stage, state models.PipelineState, onProgress func(models.Progress)) (models.PipelineState, error) {
	if missing := Prerequisites(stage, state); len(missing) > 0 {
		err := &models.MissingPrerequisiteError{Stage: int(stage), Missing: missing}
		state.Error = models.NewPipelineError(err)
		p.record(ctx, stage, err, 0)
		return state, err
	}

	start := time.Now()
	state.Error = nil
	state.InFlight = true
	next, err := p.runStage(ctx, stage, state, onProgress)
	duration := time.Since(start)
	p.record(ctx, stage, err, duration)

	if err != nil {
		state.InFlight = false
		state.Error = models.NewPipelineError(err)
		p.logger.Error("stage failed", "stage", int(stage), "error", err, "duration_ms", duration.Milliseconds())
		return state, err
	}
	next.InFlight = false
	p.logger.Info("stage completed", "stage", int(stage), "duration_ms", duration.Milliseconds())
	return next, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage models.Stage, state models.PipelineState, onProgress func(models.Progress)) (models.PipelineState, error) {
	requirements := nonEmpty(state.Requirements)
	progress := state.Progress
	report := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}

	switch stage {
	case models.StageSpecialists:
		roles := SelectRoles(requirements)
		progress.SpecialistIndex, progress.SpecialistTotal = 0, len(SpecialistRoles(roles))
		report()
		visions, err := p.Specialists.Generate(ctx, roles, requirements, func(i, total int) {
			progress.SpecialistIndex, progress.SpecialistTotal = i, total
			report()
		})
		if err != nil {
			return state, err
		}
		state.Level1 = &models.Level1Output{Roles: roles, Specialists: visions, VisionText: CombinedVision(visions)}
		state.Level2, state.Level3, state.Book = nil, nil, nil
		state.Stage = models.StageIntegration

	case models.StageIntegration:
		arch, _, err := p.Integrator.Integrate(ctx, requirements, state.Level1.VisionText, state.Level1.Specialists)
		if err != nil {
			return state, err
		}
		state.Level2 = &models.Level2Output{Architecture: *arch}
		state.Level3, state.Book = nil, nil
		state.Stage = models.StageCode

	case models.StageCode:
		arch := state.Level2.Architecture
		progress.FileIndex, progress.FileTotal = 0, len(arch.DependencyTree.Files)
		report()
		impls, err := p.Code.Generate(ctx, &arch, requirements, func(i, total int) {
			progress.FileIndex, progress.FileTotal = i, total
			report()
		})
		if err != nil {
			return state, err
		}
		state.Level3 = &models.Level3Output{Implementations: impls}
	}

	state.Progress = progress
	return state, nil
}

// RunBook generates the implementation book from the level 2 architecture.
func (p *Pipeline) RunBook(ctx context.Context, state models.PipelineState, onProgress BookProgressFunc) (models.PipelineState, error) {
	if missing := Prerequisites(models.StageCode, state); len(missing) > 0 {
		err := &models.MissingPrerequisiteError{Stage: int(models.StageCode), Missing: missing}
		state.Error = models.NewPipelineError(err)
		return state, err
	}
	arch := state.Level2.Architecture
	book, err := p.Book.Generate(ctx, &arch, nonEmpty(state.Requirements), func(bp models.BookProgress) {
		state.Progress.Book = bp
		if onProgress != nil {
			onProgress(bp)
		}
	})
	if err != nil {
		state.Error = models.NewPipelineError(err)
		return state, err
	}
	state.Error = nil
	state.Book = book
	return state, nil
}

func (p *Pipeline) record(ctx context.Context, stage models.Stage, err error, d time.Duration) {
	if p.recorder == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(models.KindOf(err))
	}
	p.recorder.RecordStage(ctx, int(stage), outcome, d)
}

// ErrStageInFlight is returned when a stage is requested while another runs.
var ErrStageInFlight = errors.New("a stage is already running")

// Driver owns one PipelineState and advances it on explicit request.
type Driver struct {
	pipeline        *Pipeline
	resetOnComplete bool

	mu       sync.Mutex
	state    models.PipelineState
	onChange func(models.PipelineState)
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithResetOnComplete clears the state after level 3 succeeds.
func WithResetOnComplete() DriverOption {
	return func(d *Driver) { d.resetOnComplete = true }
}

// WithStateListener is called with a copy of the state whenever it changes.
func WithStateListener(fn func(models.PipelineState)) DriverOption {
	return func(d *Driver) { d.onChange = fn }
}

// NewDriver creates a driver for the given requirements.
func NewDriver(p *Pipeline, requirements []string, opts ...DriverOption) *Driver {
	d := &Driver{pipeline: p, state: models.NewPipelineState(requirements)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns a copy of the current state.
func (d *Driver) State() models.PipelineState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// AddRequirements appends requirements; earlier ones are never modified.
func (d *Driver) AddRequirements(reqs ...string) {
	d.mu.Lock()
	d.state.Requirements = append(d.state.Requirements, reqs...)
	d.mu.Unlock()
	d.notify()
}

// Reset discards every output and starts again at level 1.
func (d *Driver) Reset() {
	d.mu.Lock()
	d.state = models.NewPipelineState(d.state.Requirements)
	d.mu.Unlock()
	d.notify()
}

// RunStage runs stage on the current state. The returned state is the one
// reached before any reset.
func (d *Driver) RunStage(ctx context.Context, stage models.Stage) (models.PipelineState, error) {
	current, ok := d.begin()
	if !ok {
		return current, ErrStageInFlight
	}

	next, err := d.pipeline.Run(ctx, stage, current, func(p models.Progress) {
		d.mu.Lock()
		d.state.Progress = p
		d.mu.Unlock()
		d.notify()
	})
	next.InFlight = false

	d.mu.Lock()
	d.state = next
	if err == nil && stage == models.StageCode && d.resetOnComplete {
		d.state = models.NewPipelineState(next.Requirements)
	}
	d.mu.Unlock()
	d.notify()
	return next, err
}

// RunBook generates the implementation book for the current architecture.
func (d *Driver) RunBook(ctx context.Context) (models.PipelineState, error) {
	current, ok := d.begin()
	if !ok {
		return current, ErrStageInFlight
	}

	next, err := d.pipeline.RunBook(ctx, current, func(bp models.BookProgress) {
		d.mu.Lock()
		d.state.Progress.Book = bp
		d.mu.Unlock()
		d.notify()
	})
	next.InFlight = false

	d.mu.Lock()
	d.state = next
	d.mu.Unlock()
	d.notify()
	return next, err
}

// begin marks the state in flight and returns a snapshot of it.
func (d *Driver) begin() (models.PipelineState, bool) {
	d.mu.Lock()
	if d.state.InFlight {
		snapshot := d.state
		d.mu.Unlock()
		return snapshot, false
	}
	d.state.InFlight = true
	snapshot := d.state
	d.mu.Unlock()
	d.notify()
	return snapshot, true
}

func (d *Driver) notify() {
	if d.onChange != nil {
		d.onChange(d.State())
	}
}

// StateFromRequest rebuilds the pipeline state a stateless client carries
// between levels.
func StateFromRequest(req models.StageRequest) models.PipelineState {
	state := models.NewPipelineState(req.Requirements)
	state.Stage = req.Level

	if req.Level1Output != nil {
		l1 := *req.Level1Output
		if strings.TrimSpace(l1.VisionText) == "" {
			if req.VisionText != "" {
				l1.VisionText = req.VisionText
			} else {
				l1.VisionText = CombinedVision(l1.Specialists)
			}
		}
		state.Level1 = &l1
	}

	if req.Level2Output != nil {
		l2 := *req.Level2Output
		if strings.TrimSpace(l2.RootFolder.Name) == "" && req.FolderStructure != nil {
			l2.RootFolder = *req.FolderStructure
		}
		if strings.TrimSpace(l2.IntegratedVision) == "" {
			l2.IntegratedVision = req.VisionText
		}
		state.Level2 = &l2
	}
	return state
}

// StageOutput returns the part of state produced by stage.
func StageOutput(stage models.Stage, state models.PipelineState) any {
	switch stage {
	case models.StageSpecialists:
		return state.Level1
	case models.StageIntegration:
		return state.Level2
	case models.StageCode:
		return state.Level3
	}
	return nil
}

package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// GenerationRecorder receives book generation lifecycle metrics.
type GenerationRecorder interface {
	RecordGenerationCreated(ctx context.Context)
	RecordGenerationFinished(ctx context.Context, status, errorKind string, duration time.Duration)
}

// Service runs asynchronous book generations and tracks them in a JobStore
type Service struct {
	store    JobStore
	pipeline *Pipeline
	recorder GenerationRecorder
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	subscribers map[string][]chan models.ProgressEvent
}

// NewService creates a new book generation service
func NewService(store JobStore, pipeline *Pipeline, logger *slog.Logger, recorder GenerationRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:       store,
		pipeline:    pipeline,
		recorder:    recorder,
		logger:      logger.With("component", "book_service"),
		baseCtx:     ctx,
		cancel:      cancel,
		subscribers: make(map[string][]chan models.ProgressEvent),
	}
}

// Pipeline exposes the stage runner used by the service.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// StartBookGeneration validates the inputs, records a pending generation and
// runs it in the background. It returns the generation id.
func (s *Service) StartBookGeneration(ctx context.Context, requirements []string, arch *models.Architecture) (string, error) {
	state := models.NewPipelineState(requirements)
	if arch != nil {
		state.Level2 = &models.Level2Output{Architecture: *arch}
	}
	if missing := Prerequisites(models.StageCode, state); len(missing) > 0 {
		return "", &models.MissingPrerequisiteError{Stage: int(models.StageCode), Missing: missing}
	}

	now := time.Now().UTC()
	gen := &models.BookGeneration{
		ID:        uuid.New().String(),
		Status:    models.GenerationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, gen); err != nil {
		return "", err
	}
	if s.recorder != nil {
		s.recorder.RecordGenerationCreated(ctx)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(gen.ID, state)
	}()

	return gen.ID, nil
}

// GetBookGeneration returns the current record of a generation
func (s *Service) GetBookGeneration(ctx context.Context, id string) (*models.BookGeneration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrGenerationNotFound
	}
	return s.store.Get(ctx, id)
}

// Subscribe returns a channel of progress events for id. The channel is
// closed when the generation reaches a terminal status or cancel is called.
func (s *Service) Subscribe(id string) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, 32)
	s.mu.Lock()
	s.subscribers[id] = append(s.subscribers[id], ch)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := s.subscribers[id]
			for i, c := range subs {
				if c == ch {
					s.subscribers[id] = append(subs[:i], subs[i+1:]...)
					close(ch)
					break
				}
			}
			if len(s.subscribers[id]) == 0 {
				delete(s.subscribers, id)
			}
		})
	}
	return ch, cancel
}

// Shutdown cancels running generations and waits for them to record their
// final status.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(id string, state models.PipelineState) {
	ctx := s.baseCtx
	start := time.Now()
	log := s.logger.With("generation_id", id)

	gen, err := s.transition(ctx, id, models.GenerationStatusRunning, func(g *models.BookGeneration) {})
	if err != nil {
		log.Error("failed to start book generation", "error", err)
		return
	}
	s.publish(gen, models.EventTypeGenerationStarted)
	log.Info("book generation started")

	final, runErr := s.pipeline.RunBook(ctx, state, func(bp models.BookProgress) {
		g, err := s.transition(ctx, id, models.GenerationStatusRunning, func(g *models.BookGeneration) {
			g.Progress = bp
		})
		if err != nil {
			log.Warn("failed to record progress", "error", err)
			return
		}
		s.publish(g, models.EventTypeChapterCompleted)
	})

	// the base context may be cancelled by now; terminal status must still be written
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if runErr != nil {
		pe := models.NewPipelineError(runErr)
		g, err := s.transition(finishCtx, id, models.GenerationStatusFailed, func(g *models.BookGeneration) {
			g.Error = pe
		})
		if err != nil {
			log.Error("failed to record book generation failure", "error", err, "cause", runErr)
			return
		}
		s.finish(finishCtx, g, string(pe.Kind), start)
		log.Error("book generation failed", "error", runErr, "duration_ms", time.Since(start).Milliseconds())
		return
	}

	g, err := s.transition(finishCtx, id, models.GenerationStatusCompleted, func(g *models.BookGeneration) {
		g.Book = final.Book
		g.Progress = final.Progress.Book
	})
	if err != nil {
		log.Error("failed to record book generation result", "error", err)
		return
	}
	s.finish(finishCtx, g, "", start)
	log.Info("book generation completed",
		"chapters", len(final.Book.Chapters),
		"complete", final.Book.IsComplete,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *Service) finish(ctx context.Context, gen *models.BookGeneration, errorKind string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordGenerationFinished(ctx, string(gen.Status), errorKind, time.Since(start))
	}
	eventType := models.EventTypeGenerationCompleted
	if gen.Status == models.GenerationStatusFailed {
		eventType = models.EventTypeGenerationFailed
	}
	s.publish(gen, eventType)
	s.closeSubscribers(gen.ID)
}

// transition loads the generation, checks the status change, applies mutate
// and stores the result.
func (s *Service) transition(ctx context.Context, id string, to models.GenerationStatus, mutate func(*models.BookGeneration)) (*models.BookGeneration, error) {
	gen, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := gen.Status
	if err := validateGenerationTransition(from, to); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	gen.Status = to
	gen.UpdatedAt = now
	if to.Terminal() {
		gen.CompletedAt = &now
	}
	mutate(gen)

	if err := s.store.Update(ctx, gen, from); err != nil {
		return nil, err
	}
	return gen, nil
}

// validateGenerationTransition validates if a status transition is allowed
func validateGenerationTransition(currentStatus, newStatus models.GenerationStatus) error {
	validTransitions := map[models.GenerationStatus][]models.GenerationStatus{
		models.GenerationStatusPending:   {models.GenerationStatusRunning, models.GenerationStatusFailed},
		models.GenerationStatusRunning:   {models.GenerationStatusRunning, models.GenerationStatusCompleted, models.GenerationStatusFailed},
		models.GenerationStatusCompleted: {}, // Terminal state
		models.GenerationStatusFailed:    {}, // Terminal state
	}

	allowedNext, exists := validTransitions[currentStatus]
	if !exists {
		return fmt.Errorf("invalid current status: %s", currentStatus)
	}

	for _, allowed := range allowedNext {
		if allowed == newStatus {
			return nil
		}
	}

	return fmt.Errorf("invalid status transition from %s to %s", currentStatus, newStatus)
}

func (s *Service) publish(gen *models.BookGeneration, eventType string) {
	event := models.ProgressEvent{
		EventType:    eventType,
		GenerationID: gen.ID,
		Status:       gen.Status,
		Progress:     gen.Progress,
		Error:        gen.Error,
		Timestamp:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers[gen.ID] {
		select {
		case ch <- event:
		default:
			s.logger.Warn("dropping progress event for slow subscriber", "generation_id", gen.ID, "event_type", eventType)
		}
	}
}

func (s *Service) closeSubscribers(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers[id] {
		close(ch)
	}
	delete(s.subscribers, id)
}

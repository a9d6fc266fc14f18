package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Sentinel protocol v1: a chapter reply ends with exactly one of these markers.
const (
	SentinelProtocolVersion = "v1"
	SentinelComplete        = "[COMPLETE]"
	SentinelIncomplete      = "[INCOMPLETE]"
)

var sentinelPattern = regexp.MustCompile(`(?i)\[\s*(in)?complete\s*\]$`)

// sentinel is the completion signal found in a chapter reply.
type sentinel int

const (
	sentinelNone sentinel = iota
	sentinelIncomplete
	sentinelComplete
)

// parseSentinel reports the marker that ends the final non-blank line of
// text and strips it. Markers anywhere else are chapter content.
func parseSentinel(text string) (string, sentinel) {
	body := strings.TrimRightFunc(text, unicode.IsSpace)
	loc := sentinelPattern.FindStringSubmatchIndex(body)
	if loc == nil {
		return strings.TrimSpace(text), sentinelNone
	}
	signal := sentinelComplete
	// group 1 matched means the "in" prefix was present
	if loc[2] >= 0 {
		signal = sentinelIncomplete
	}
	return strings.TrimSpace(body[:loc[0]]), signal
}

// remainingSections returns section titles that do not yet appear in content.
func remainingSections(sections []string, content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, s := range sections {
		title := strings.TrimSpace(s)
		if title == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(title)) {
			out = append(out, title)
		}
	}
	return out
}

// tail returns at most n trailing bytes of s, cut on a rune boundary.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// BookProgressFunc receives book progress after each chapter.
type BookProgressFunc func(models.BookProgress)

// ContinuationRecorder counts continuation calls.
type ContinuationRecorder interface {
	RecordContinuation(ctx context.Context)
}

// BookGenerator writes the long-form implementation book.
type BookGenerator struct {
	llm              llm.Invoker
	maxContinuations int
	tailChars        int
	recorder         ContinuationRecorder
	tracer           trace.Tracer
	logger           *slog.Logger
}

// NewBookGenerator creates the book stage. maxContinuations bounds the
// continuation calls per chapter.
func NewBookGenerator(inv llm.Invoker, maxContinuations, tailChars int, logger *slog.Logger) *BookGenerator {
	if maxContinuations < 0 {
		maxContinuations = 0
	}
	if tailChars <= 0 {
		tailChars = 2000
	}
	return &BookGenerator{
		llm:              inv,
		maxContinuations: maxContinuations,
		tailChars:        tailChars,
		tracer:           otel.Tracer("orchestration"),
		logger:           logger.With("component", "book"),
	}
}

// WithRecorder attaches a continuation counter.
func (g *BookGenerator) WithRecorder(r ContinuationRecorder) *BookGenerator {
	g.recorder = r
	return g
}

type outlineReply struct {
	Title        string `json:"title"`
	Introduction string `json:"introduction"`
	Chapters     []struct {
		Title    string   `json:"title"`
		Sections []string `json:"sections"`
	} `json:"chapters"`
}

// Outline requests and validates the chapter outline.
func (g *BookGenerator) Outline(ctx context.Context, arch *models.Architecture, requirements []string) (*models.Book, error) {
	user := outlineUserMessage(requirements, arch)
	var reply outlineReply
	if err := llm.InvokeInto(ctx, g.llm, outlineSystemPrompt, user, &reply); err != nil {
		return nil, fmt.Errorf("book outline: %w", err)
	}

	book := &models.Book{Title: reply.Title, Introduction: reply.Introduction}
	for _, ch := range reply.Chapters {
		book.Chapters = append(book.Chapters, models.Chapter{
			Title:    strings.TrimSpace(ch.Title),
			Sections: ch.Sections,
			State:    models.ChapterPending,
		})
	}
	if err := checkSchema("book outline", book); err != nil {
		llm.Forget(g.llm, outlineSystemPrompt, user)
		return nil, err
	}
	return book, nil
}

// Generate writes the outline and then every chapter in order. A chapter that
// never signals completion within the continuation bound is kept as
// incomplete and the book is marked incomplete.
func (g *BookGenerator) Generate(ctx context.Context, arch *models.Architecture, requirements []string, onProgress BookProgressFunc) (*models.Book, error) {
	ctx, span := g.tracer.Start(ctx, "book.generate")
	defer span.End()

	book, err := g.Outline(ctx, arch, requirements)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("book.chapters", len(book.Chapters)))
	g.logger.Info("book outline ready", "title", book.Title, "chapters", len(book.Chapters))

	total, completed := len(book.Chapters), 0
	for i := range book.Chapters {
		if err := g.GenerateChapter(ctx, book, i, arch); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if book.Chapters[i].IsComplete {
			completed++
		}
		if onProgress != nil {
			onProgress(models.BookProgress{
				TotalChapters:     total,
				CompletedChapters: completed,
				CurrentChapter:    i + 1,
				Progress:          float64(i+1) * 100 / float64(total),
			})
		}
	}

	book.RefreshCompletion()
	span.SetAttributes(attribute.Bool("book.complete", book.IsComplete))
	return book, nil
}

// GenerateChapter fills book.Chapters[index], issuing continuation calls while
// the model signals the chapter is unfinished.
func (g *BookGenerator) GenerateChapter(ctx context.Context, book *models.Book, index int, arch *models.Architecture) error {
	ch := &book.Chapters[index]
	log := g.logger.With("chapter", index+1, "title", ch.Title)

	if err := ch.Advance(models.ChapterGenerating); err != nil {
		return err
	}
	text, err := g.llm.Complete(ctx, chapterSystemPrompt(), chapterUserMessage(book, index, arch))
	if err != nil {
		return fmt.Errorf("chapter %d: %w", index+1, err)
	}
	content, signal := parseSentinel(text)
	ch.Content = content

	for {
		if signal == sentinelComplete {
			return ch.Advance(models.ChapterComplete)
		}
		if err := ch.Advance(models.ChapterIncomplete); err != nil {
			return err
		}
		if ch.Continuations >= g.maxContinuations {
			log.Warn("chapter left incomplete, continuation limit reached",
				"continuations", ch.Continuations, "sentinel_seen", signal != sentinelNone)
			return nil
		}

		if err := ch.Advance(models.ChapterGenerating); err != nil {
			return err
		}
		remaining := remainingSections(ch.Sections, ch.Content)
		ch.Continuations++
		if g.recorder != nil {
			g.recorder.RecordContinuation(ctx)
		}
		log.Info("continuing chapter", "continuation", ch.Continuations, "remaining_sections", len(remaining))

		text, err := g.llm.Complete(ctx, chapterSystemPrompt(), continuationUserMessage(*ch, tail(ch.Content, g.tailChars), remaining))
		if err != nil {
			return fmt.Errorf("chapter %d continuation %d: %w", index+1, ch.Continuations, err)
		}
		var addition string
		addition, signal = parseSentinel(text)
		if addition == "" && signal != sentinelComplete {
			// no progress
			if err := ch.Advance(models.ChapterIncomplete); err != nil {
				return err
			}
			log.Warn("chapter left incomplete, continuation added nothing", "continuations", ch.Continuations)
			return nil
		}
		if addition != "" {
			ch.Content = strings.TrimRight(ch.Content, "\n") + "\n\n" + addition
		}
	}
}

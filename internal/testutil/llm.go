package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
)

// StubLLM is an llm.Invoker whose replies come from Reply.
type StubLLM struct {
	Reply func(system, user string) (string, error)

	mu    sync.Mutex
	calls int
}

func (s *StubLLM) Invoke(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	text, err := s.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}
	return llm.ExtractJSON(text)
}

func (s *StubLLM) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Reply(systemPrompt, userMessage)
}

// Calls returns the number of calls made so far.
func (s *StubLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errUnexpectedPrompt = errors.New("stub llm: unexpected prompt")

// PipelineLLM answers every pipeline prompt with a minimal valid reply for
// the CSV uploader project.
func PipelineLLM() *StubLLM {
	return &StubLLM{Reply: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "You are an expert"):
			return SpecialistVisionJSON(""), nil
		case strings.Contains(system, "Chief Technology Officer"):
			return ABCArchitectureJSON, nil
		case strings.Contains(system, "implementing one file"):
			return CodeReplyJSON(promptLine(user, "File: ")), nil
		case strings.Contains(system, "planning an implementation book"):
			return BookOutlineJSON, nil
		case strings.Contains(system, "writing one chapter"):
			return "Chapter body.\n[COMPLETE]", nil
		}
		return "", errUnexpectedPrompt
	}}
}

func promptLine(text, prefix string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return ""
}

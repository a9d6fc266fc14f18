package orchestration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/testutil"
)

type llmCall struct {
	System string
	User   string
}

// scriptedLLM answers every call through reply and records what it was asked.
type scriptedLLM struct {
	mu    sync.Mutex
	calls []llmCall
	reply func(system, user string) (string, error)
}

func (s *scriptedLLM) Invoke(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	text, err := s.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}
	return llm.ExtractJSON(text)
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, llmCall{System: systemPrompt, User: userMessage})
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.reply(systemPrompt, userMessage)
}

func (s *scriptedLLM) Calls() []llmCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llmCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// callsWith returns the recorded calls whose system prompt contains marker.
func (s *scriptedLLM) callsWith(marker string) []llmCall {
	var out []llmCall
	for _, c := range s.Calls() {
		if strings.Contains(c.System, marker) {
			out = append(out, c)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// roleFromPrompt extracts X from "You are an expert X reviewing ...".
func roleFromPrompt(system string) string {
	const prefix = "You are an expert "
	i := strings.Index(system, prefix)
	if i < 0 {
		return ""
	}
	rest := system[i+len(prefix):]
	if j := strings.Index(rest, " reviewing"); j >= 0 {
		return rest[:j]
	}
	return rest
}

func specialistReply(role string) string {
	return "```json\n" + testutil.SpecialistVisionJSON(role) + "\n```"
}

const abcArchitecture = testutil.ABCArchitectureJSON

// fileFromPrompt extracts the "File: <path>" line of a code generation prompt.
func fileFromPrompt(user string) string {
	for _, line := range strings.Split(user, "\n") {
		if strings.HasPrefix(line, "File: ") {
			return strings.TrimPrefix(line, "File: ")
		}
	}
	return ""
}

func codeReplyFor(file string) string {
	return testutil.CodeReplyJSON(file)
}

// pipelineLLM answers each stage of the pipeline with minimal valid output.
func pipelineLLM() *scriptedLLM {
	return &scriptedLLM{reply: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "You are an expert"):
			return specialistReply(roleFromPrompt(system)), nil
		case strings.Contains(system, "Chief Technology Officer"):
			return abcArchitecture, nil
		case strings.Contains(system, "implementing one file"):
			return codeReplyFor(fileFromPrompt(user)), nil
		case strings.Contains(system, "planning an implementation book"):
			return testutil.BookOutlineJSON, nil
		case strings.Contains(system, "writing one chapter"):
			return "Chapter body.\n" + SentinelComplete, nil
		}
		return "", io.ErrUnexpectedEOF
	}}
}

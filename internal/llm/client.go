package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Invoker is the contract every pipeline stage depends on.
type Invoker interface {
	// Invoke returns the JSON object found in the model's reply.
	Invoke(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error)
	// Complete returns the model's raw text reply.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Invalidator is implemented by invokers that cache replies. Stages call it
// when a reply parsed but failed their own checks, so a retry reaches the model.
type Invalidator interface {
	Invalidate(systemPrompt, userMessage string)
}

// Forget drops the cached reply for the prompts when inv caches replies.
func Forget(inv Invoker, systemPrompt, userMessage string) {
	if c, ok := inv.(Invalidator); ok {
		c.Invalidate(systemPrompt, userMessage)
	}
}

// CallRecorder receives one observation per client call.
type CallRecorder interface {
	RecordLLMCall(ctx context.Context, operation, outcome string, attempts int, duration time.Duration)
}

// Config holds the fixed model parameters shared by all stages.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RequestsPerMinute int
	BurstSize         int
	CacheSize         int
}

// Client talks to the Anthropic messages API.
type Client struct {
	api         anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	cache       *ResponseCache
	tracer      trace.Tracer
	logger      *slog.Logger
	recorder    CallRecorder
	reqOpts     []option.RequestOption
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "llm_client")
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r CallRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		opts := append(append([]option.RequestOption{}, c.reqOpts...), option.WithHTTPClient(hc))
		c.api = anthropic.NewClient(opts...)
	}
}

// NewClient creates a new LLM client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	cache, err := NewResponseCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	logger := slog.Default().With("component", "llm_client")

	// Initialize circuit breaker
	settings := gobreaker.Settings{
		Name:        "llm-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	c := &Client{
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		breaker:     gobreaker.NewCircuitBreaker(settings),
		cache:       cache,
		tracer:      otel.Tracer("llm-client"),
		logger:      logger,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 8192
	}
	if c.baseDelay <= 0 {
		c.baseDelay = time.Second
	}
	if c.maxDelay < c.baseDelay {
		c.maxDelay = c.baseDelay
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by the client loop below
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	c.reqOpts = reqOpts
	c.api = anthropic.NewClient(reqOpts...)

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("llm client initialized",
		"model", c.model,
		"max_tokens", c.maxTokens,
		"max_retries", c.maxRetries,
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()))

	return c, nil
}

// Invoke sends the prompts and returns the JSON object found in the reply.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(ctx, "invoke", systemPrompt, userMessage, func(text string) error {
		raw, err := ExtractJSON(text)
		if err != nil {
			return err
		}
		out = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete sends the prompts and returns the raw reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	var out string
	err := c.call(ctx, "complete", systemPrompt, userMessage, func(text string) error {
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// InvokeInto decodes the JSON reply of inv into target.
func InvokeInto(ctx context.Context, inv Invoker, systemPrompt, userMessage string, target any) error {
	raw, err := inv.Invoke(ctx, systemPrompt, userMessage)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		Forget(inv, systemPrompt, userMessage)
		return &models.JSONParseError{Excerpt: models.Excerpt(string(raw), excerptLen), Err: err}
	}
	return nil
}

// call runs one logical invocation with rate limiting, retries and caching.
func (c *Client) call(ctx context.Context, operation, systemPrompt, userMessage string, accept func(string) error) error {
	ctx, span := c.tracer.Start(ctx, "llm.messages."+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.system_prompt_length", len(systemPrompt)),
		attribute.Int("llm.user_message_length", len(userMessage)),
	)

	start := time.Now()
	key := cacheKey(c.model, systemPrompt, userMessage)
	if text, ok := c.cache.get(key); ok {
		if err := accept(text); err == nil {
			span.SetAttributes(attribute.Bool("llm.cache_hit", true))
			c.record(ctx, operation, "cache_hit", 0, time.Since(start))
			return nil
		}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retry backoff", "operation", operation, "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			if err := sleepCtx(ctx, backoff); err != nil {
				lastErr = err
				break
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("rate limit wait failed: %w", err)
			break
		}

		attempts++
		attemptStart := time.Now()
		text, err := c.fetch(ctx, systemPrompt, userMessage)
		if err == nil {
			err = accept(text)
		}
		if err == nil {
			c.cache.put(key, text)
			span.SetAttributes(attribute.Int("llm.attempts", attempts))
			c.logger.Info("llm request successful",
				"operation", operation,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(text))
			c.record(ctx, operation, "success", attempts, time.Since(start))
			return nil
		}

		lastErr = err
		if !isRetryable(err) {
			c.logger.Error("llm request failed with non-retryable error", "operation", operation, "attempt", attempt, "error", err)
			break
		}
		c.logger.Warn("llm request failed, will retry", "operation", operation, "attempt", attempt, "error", err)
	}

	span.RecordError(lastErr)
	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	c.record(ctx, operation, string(models.KindOf(lastErr)), attempts, time.Since(start))
	return lastErr
}

// fetch performs one request through the circuit breaker.
func (c *Client) fetch(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchInternal(ctx, systemPrompt, userMessage)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) fetchInternal(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
		Temperature: anthropic.Float(c.temperature),
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Error()
			}
			return "", &models.UpstreamError{Status: apiErr.StatusCode, Body: body}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to call llm api: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &models.MalformedResponseError{Reason: fmt.Sprintf("no text block in %d content blocks", len(msg.Content))}
	}
	return b.String(), nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay << (attempt - 1)
	if d <= 0 || d > c.maxDelay {
		return c.maxDelay
	}
	return d
}

func (c *Client) record(ctx context.Context, operation, outcome string, attempts int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordLLMCall(ctx, operation, outcome, attempts, d)
	}
}

// Invalidate removes the cached reply for the prompts, if any.
func (c *Client) Invalidate(systemPrompt, userMessage string) {
	c.cache.remove(cacheKey(c.model, systemPrompt, userMessage))
}

// CacheLen reports how many responses are cached.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retryable()
	}
	return true
}

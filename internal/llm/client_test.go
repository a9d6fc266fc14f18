package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

type fakeReply struct {
	status int
	text   string
	body   string
}

// newFakeAnthropic serves /v1/messages, answering with replies in order and
// repeating the last one once they run out.
func newFakeAnthropic(t *testing.T, replies ...fakeReply) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))

		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		reply := replies[n]

		w.Header().Set("Content-Type", "application/json")
		if reply.status != 0 && reply.status != http.StatusOK {
			w.WriteHeader(reply.status)
			w.Write([]byte(reply.body))
			return
		}
		if reply.body != "" {
			w.Write([]byte(reply.body))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content": []map[string]interface{}{
				{"type": "text", "text": reply.text},
			},
			"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		APIKey:            "sk-test",
		BaseURL:           baseURL + "/",
		Model:             "claude-test",
		MaxTokens:         1024,
		Temperature:       0.7,
		Timeout:           5 * time.Second,
		MaxRetries:        2,
		RetryBaseDelay:    time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
		RequestsPerMinute: 60000,
		BurstSize:         10,
		CacheSize:         0,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{APIKey: "sk-test", Model: "claude-test"})
	require.NoError(t, err)
	assert.NotNil(t, client.tracer)
	assert.NotNil(t, client.breaker)
	assert.NotNil(t, client.limiter)
	assert.Equal(t, int64(8192), client.maxTokens)

	_, err = NewClient(Config{Model: "claude-test"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "sk-test"})
	assert.Error(t, err)
}

func TestClient_Invoke(t *testing.T) {
	tests := []struct {
		name         string
		reply        fakeReply
		expectedKind models.ErrorKind
		expectedJSON string
	}{
		{
			name:         "bare_object",
			reply:        fakeReply{text: `{"role":"Backend Developer"}`},
			expectedJSON: `{"role":"Backend Developer"}`,
		},
		{
			name:         "fenced_object",
			reply:        fakeReply{text: "Here you go:\n```json\n{\"role\":\"Backend Developer\"}\n```\nDone."},
			expectedJSON: `{"role":"Backend Developer"}`,
		},
		{
			name:         "no_json",
			reply:        fakeReply{text: "I cannot help with that."},
			expectedKind: models.KindNoJSONFound,
		},
		{
			name:         "bad_request",
			reply:        fakeReply{status: http.StatusBadRequest, body: `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`},
			expectedKind: models.KindUpstream,
		},
		{
			name:         "empty_content",
			reply:        fakeReply{body: `{"id":"msg_test","type":"message","role":"assistant","model":"claude-test","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`},
			expectedKind: models.KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newFakeAnthropic(t, tt.reply)
			client := newTestClient(t, server.URL, func(c *Config) { c.MaxRetries = 0 })

			raw, err := client.Invoke(context.Background(), "system", "user")

			if tt.expectedKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedKind, models.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expectedJSON, string(raw))
		})
	}
}

func TestClient_Invoke_UpstreamErrorCarriesStatus(t *testing.T) {
	server, calls := newFakeAnthropic(t, fakeReply{
		status: http.StatusInternalServerError,
		body:   `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`,
	})
	client := newTestClient(t, server.URL)

	_, err := client.Invoke(context.Background(), "system", "user")
	require.Error(t, err)

	var upstream *models.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Contains(t, upstream.Body, "overloaded")
	// initial attempt plus two retries
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClient_Invoke_RetriesThenSucceeds(t *testing.T) {
	server, calls := newFakeAnthropic(t,
		fakeReply{status: http.StatusTooManyRequests, body: `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`},
		fakeReply{text: "not json at all"},
		fakeReply{text: `{"ok":true}`},
	)
	client := newTestClient(t, server.URL)

	raw, err := client.Invoke(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClient_Invoke_DoesNotRetryClientErrors(t *testing.T) {
	server, calls := newFakeAnthropic(t, fakeReply{
		status: http.StatusUnauthorized,
		body:   `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
	})
	client := newTestClient(t, server.URL)

	_, err := client.Invoke(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_Invoke_CacheHit(t *testing.T) {
	server, calls := newFakeAnthropic(t, fakeReply{text: `{"cached":true}`})
	client := newTestClient(t, server.URL, func(c *Config) { c.CacheSize = 8 })

	first, err := client.Invoke(context.Background(), "system", "user")
	require.NoError(t, err)
	second, err := client.Invoke(context.Background(), "system", "user")
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, client.CacheLen())

	_, err = client.Invoke(context.Background(), "system", "another user message")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestClient_Invalidate(t *testing.T) {
	server, calls := newFakeAnthropic(t,
		fakeReply{text: `{"rootFolder":{},"dependencyTree":{"files":[]}}`},
		fakeReply{text: `{"rootFolder":{"name":"app"}}`},
	)
	client := newTestClient(t, server.URL, func(c *Config) { c.CacheSize = 8 })
	ctx := context.Background()

	_, err := client.Invoke(ctx, "system", "user")
	require.NoError(t, err)
	require.Equal(t, 1, client.CacheLen())

	Forget(client, "system", "other user")
	assert.Equal(t, 1, client.CacheLen())

	Forget(client, "system", "user")
	assert.Equal(t, 0, client.CacheLen())

	raw, err := client.Invoke(ctx, "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"rootFolder":{"name":"app"}}`, string(raw))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	// a client without a cache and a plain invoker are both no-ops
	newTestClient(t, server.URL).Invalidate("system", "user")
	Forget(stubInvoker{}, "system", "user")
}

func TestInvokeInto_DecodeFailureEvictsReply(t *testing.T) {
	server, calls := newFakeAnthropic(t,
		fakeReply{text: `{"role": 42}`},
		fakeReply{text: `{"role": "CTO"}`},
	)
	client := newTestClient(t, server.URL, func(c *Config) { c.CacheSize = 8 })

	var target struct {
		Role string `json:"role"`
	}
	err := InvokeInto(context.Background(), client, "system", "user", &target)
	require.Error(t, err)
	assert.Equal(t, models.KindJSONParse, models.KindOf(err))
	assert.Equal(t, 0, client.CacheLen())

	require.NoError(t, InvokeInto(context.Background(), client, "system", "user", &target))
	assert.Equal(t, "CTO", target.Role)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestClient_Invoke_ContextCancelled(t *testing.T) {
	server, calls := newFakeAnthropic(t, fakeReply{status: http.StatusServiceUnavailable, body: `{"type":"error","error":{"type":"api_error","message":"down"}}`})
	client := newTestClient(t, server.URL, func(c *Config) {
		c.RetryBaseDelay = time.Second
		c.RetryMaxDelay = time.Second
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Invoke(ctx, "system", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_Complete(t *testing.T) {
	server, _ := newFakeAnthropic(t, fakeReply{text: "Chapter text.\n[COMPLETE]"})
	client := newTestClient(t, server.URL)

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Chapter text.\n[COMPLETE]", text)
}

type stubInvoker struct {
	raw json.RawMessage
	err error
}

func (s stubInvoker) Invoke(ctx context.Context, systemPrompt, userMessage string) (json.RawMessage, error) {
	return s.raw, s.err
}

func (s stubInvoker) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return string(s.raw), s.err
}

func TestInvokeInto(t *testing.T) {
	var target struct {
		Role string `json:"role"`
	}
	err := InvokeInto(context.Background(), stubInvoker{raw: json.RawMessage(`{"role":"CTO"}`)}, "s", "u", &target)
	require.NoError(t, err)
	assert.Equal(t, "CTO", target.Role)

	var wrong struct {
		Role int `json:"role"`
	}
	err = InvokeInto(context.Background(), stubInvoker{raw: json.RawMessage(`{"role":"CTO"}`)}, "s", "u", &wrong)
	require.Error(t, err)
	assert.Equal(t, models.KindJSONParse, models.KindOf(err))

	upstream := &models.UpstreamError{Status: 500, Body: "boom"}
	err = InvokeInto(context.Background(), stubInvoker{err: upstream}, "s", "u", &target)
	assert.ErrorIs(t, err, upstream)
}

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/testutil"
)

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

// readUntilClosed collects events until the server closes the stream.
func readUntilClosed(t *testing.T, conn *websocket.Conn) []models.ProgressEvent {
	t.Helper()
	var events []models.ProgressEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev models.ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return events
		}
		events = append(events, ev)
	}
}

func TestStreamBookGeneration_LiveEvents(t *testing.T) {
	release := make(chan struct{})
	stub := testutil.PipelineLLM()
	reply := stub.Reply
	stub.Reply = func(system, user string) (string, error) {
		<-release
		return reply(system, user)
	}
	s := newTestServer(t, stub, nil)
	server := httptest.NewServer(s.router)
	defer server.Close()

	id, err := s.service.StartBookGeneration(context.Background(), testutil.CSVRequirements, testutil.ABCArchitecture(t))
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/book-generations/"+id), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var snapshot models.ProgressEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, models.EventTypeGenerationSnapshot, snapshot.EventType)
	assert.Equal(t, id, snapshot.GenerationID)
	assert.False(t, snapshot.Status.Terminal())

	close(release)

	events := readUntilClosed(t, conn)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, models.EventTypeGenerationCompleted, last.EventType)
	assert.Equal(t, models.GenerationStatusCompleted, last.Status)
	assert.Equal(t, 2, last.Progress.CompletedChapters)
}

func TestStreamBookGeneration_FinishedGeneration(t *testing.T) {
	s := newTestServer(t, testutil.PipelineLLM(), nil)
	server := httptest.NewServer(s.router)
	defer server.Close()

	id, err := s.service.StartBookGeneration(context.Background(), testutil.CSVRequirements, testutil.ABCArchitecture(t))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		gen, err := s.service.GetBookGeneration(context.Background(), id)
		return err == nil && gen.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/book-generations/"+id), nil)
	require.NoError(t, err)
	defer conn.Close()

	events := readUntilClosed(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeGenerationSnapshot, events[0].EventType)
	assert.Equal(t, models.GenerationStatusCompleted, events[0].Status)
}

func TestStreamBookGeneration_UnknownGeneration(t *testing.T) {
	s := newTestServer(t, testutil.PipelineLLM(), nil)
	server := httptest.NewServer(s.router)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/api/ws/book-generations/0d9c7f7e-3b1a-4d2e-8f6a-5c4b3a291807"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

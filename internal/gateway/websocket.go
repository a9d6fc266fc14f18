package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// ProgressStream pushes book generation progress events over websockets
type ProgressStream struct {
	service  *orchestration.Service
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewProgressStream creates a websocket progress stream. allowedOrigins empty
// accepts every origin.
func NewProgressStream(service *orchestration.Service, allowedOrigins []string, logger *slog.Logger) *ProgressStream {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ProgressStream{
		service: service,
		tracer:  otel.Tracer("progress-stream"),
		logger:  logger.With("component", "progress_stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamBookGeneration handles WebSocket /api/ws/book-generations/:id
// @Summary Stream book generation progress
// @Description WebSocket endpoint that sends the current generation snapshot followed by progress events until the generation completes or fails.
// @Tags book
// @Param id path string true "Generation ID"
// @Param token query string false "JWT, for clients that cannot set headers"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/book-generations/{id} [get]
func (p *ProgressStream) StreamBookGeneration(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "progress_stream.stream_book_generation")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("generation.id", id))
	log := p.logger.With("generation_id", id)

	// subscribe before the lookup so a transition in between is not lost
	events, unsubscribe := p.service.Subscribe(id)
	defer unsubscribe()

	gen, err := p.service.GetBookGeneration(ctx, id)
	if err != nil {
		span.RecordError(err)
		status, code := statusForError(err)
		c.JSON(status, models.ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Warn("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log.Info("progress stream opened", "status", gen.Status)

	if err := writeEvent(conn, snapshotEvent(gen)); err != nil {
		log.Warn("failed to send snapshot", "error", err)
		return
	}
	if gen.Status.Terminal() {
		closeNormally(conn, string(gen.Status))
		return
	}

	// Client -> ignore (one-way stream); reading detects disconnects
	clientGone := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientGone <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				closeNormally(conn, "generation finished")
				log.Info("progress stream closed")
				return
			}
			if err := writeEvent(conn, event); err != nil {
				span.RecordError(err)
				log.Warn("client connection write error", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn("ping failed", "error", err)
				return
			}
		case err := <-clientGone:
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("client connection read error", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func snapshotEvent(gen *models.BookGeneration) models.ProgressEvent {
	return models.ProgressEvent{
		EventType:    models.EventTypeGenerationSnapshot,
		GenerationID: gen.ID,
		Status:       gen.Status,
		Progress:     gen.Progress,
		Error:        gen.Error,
		Timestamp:    time.Now().UTC(),
	}
}

func writeEvent(conn *websocket.Conn, event models.ProgressEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

func closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service *orchestration.Service
	logger  *slog.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(service *orchestration.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger.With("component", "gateway"),
	}
}

// RunStage godoc
// @Summary Run one architect level
// @Description Runs level 1 (specialists), 2 (integration) or 3 (dependency-ordered code) against the supplied state and returns that level's output.
// @Tags architect
// @Accept json
// @Produce json
// @Param request body models.StageRequest true "Level and the outputs of earlier levels"
// @Success 200 {object} object "Level1Output, Level2Output or Level3Output"
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architect [post]
func (h *Handler) RunStage(c *gin.Context) {
	var req models.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request",
			Code:  models.ErrCodeInvalidRequest,
			Details: map[string]string{
				"body": err.Error(),
			},
		})
		return
	}
	if !req.Level.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "level must be 1, 2 or 3",
			Code:  models.ErrCodeInvalidRequest,
		})
		return
	}

	state := orchestration.StateFromRequest(req)
	next, err := h.service.Pipeline().Run(c.Request.Context(), req.Level, state, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orchestration.StageOutput(req.Level, next))
}

// RolesRequest is the body of the role preview endpoint
type RolesRequest struct {
	Requirements models.Requirements `json:"requirements" binding:"required,min=1"`
}

// RolesResponse lists the selected roles, integrator last
type RolesResponse struct {
	Roles []string `json:"roles"`
}

// SelectRoles godoc
// @Summary Preview role selection
// @Description Returns the specialist roles level 1 would consult for the requirements.
// @Tags architect
// @Accept json
// @Produce json
// @Param request body RolesRequest true "Requirements"
// @Success 200 {object} RolesResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roles [post]
func (h *Handler) SelectRoles(c *gin.Context) {
	var req RolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}
	c.JSON(http.StatusOK, RolesResponse{Roles: orchestration.SelectRoles(req.Requirements)})
}

// StartBookRequest is the body of the book generation endpoint
type StartBookRequest struct {
	Requirements models.Requirements  `json:"requirements"`
	Level2Output *models.Level2Output `json:"level2Output"`
}

// StartBookResponse identifies the started generation
type StartBookResponse struct {
	GenerationID string                  `json:"generationId"`
	Status       models.GenerationStatus `json:"status"`
}

// StartBookGeneration godoc
// @Summary Start book generation
// @Description Starts asynchronous generation of the implementation book for a level 2 architecture. Poll the returned id for progress.
// @Tags book
// @Accept json
// @Produce json
// @Param request body StartBookRequest true "Requirements and level 2 output"
// @Success 202 {object} StartBookResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /book-generations [post]
func (h *Handler) StartBookGeneration(c *gin.Context) {
	var req StartBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	var arch *models.Architecture
	if req.Level2Output != nil {
		arch = &req.Level2Output.Architecture
	}

	id, err := h.service.StartBookGeneration(c.Request.Context(), req.Requirements, arch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, StartBookResponse{
		GenerationID: id,
		Status:       models.GenerationStatusPending,
	})
}

// GetBookGeneration godoc
// @Summary Get book generation
// @Description Returns status, progress and, once completed, the book.
// @Tags book
// @Produce json
// @Param id path string true "Generation ID"
// @Success 200 {object} models.BookGeneration
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /book-generations/{id} [get]
func (h *Handler) GetBookGeneration(c *gin.Context) {
	gen, err := h.service.GetBookGeneration(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gen)
}

// statusForError maps a pipeline or service error to an HTTP status and API code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, orchestration.ErrGenerationNotFound):
		return http.StatusNotFound, models.ErrCodeGenerationNotFound
	case errors.Is(err, orchestration.ErrStageInFlight):
		return http.StatusConflict, models.ErrCodeConflict
	}

	kind := models.KindOf(err)
	switch kind {
	case models.KindMissingPrerequisite:
		return http.StatusBadRequest, models.ErrorCode(kind)
	case models.KindUpstream, models.KindMalformedResponse, models.KindNoJSONFound,
		models.KindJSONParse, models.KindInvalidArchitecture:
		return http.StatusBadGateway, models.ErrorCode(kind)
	}
	return http.StatusInternalServerError, models.ErrCodeInternalError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := statusForError(err)
	resp := models.ErrorResponse{Error: err.Error(), Code: code}

	var missing *models.MissingPrerequisiteError
	if errors.As(err, &missing) {
		resp.Details = map[string]string{"missing": strings.Join(missing.Missing, "; ")}
	}

	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "kind", string(models.KindOf(err)), "error", err)
	} else {
		h.logger.Warn("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

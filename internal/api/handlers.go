// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AgenticVideoStudio/internal/catalog"
	apperrors "github.com/Corphon/AgenticVideoStudio/internal/errors"
	"github.com/Corphon/AgenticVideoStudio/internal/models"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

// sseHeartbeat keeps idle progress streams open through proxies
var sseHeartbeat = 15 * time.Second

// Handler serves the studio API
type Handler struct {
	Studio           *services.StudioService
	Exports          *services.ExportService
	Progress         *services.ProgressService
	Metrics          *utils.WorkflowMetrics
	Catalog          *catalog.Catalog
	WebSocketHandler *WebSocketHandler
	Response         *ResponseHelper
	logger           *utils.Logger
}

// RunStartedResponse is returned when a run is accepted
type RunStartedResponse struct {
	RunID       string `json:"run_id"`
	Generation  uint64 `json:"generation"`
	ProgressURL string `json:"progress_url"`
}

// NewHandler creates the API handler
func NewHandler(studio *services.StudioService, exports *services.ExportService, metrics *utils.WorkflowMetrics, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Handler{
		Studio:           studio,
		Exports:          exports,
		Progress:         studio.Progress(),
		Metrics:          metrics,
		Catalog:          studio.Catalog(),
		WebSocketHandler: NewWebSocketHandler(studio, logger),
		Response:         NewResponseHelper(),
		logger:           logger,
	}
}

// IndexPage renders the studio page
func (h *Handler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":   "Estúdio de Vídeo Agêntico",
		"catalog": h.Catalog,
	})
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":   "ok",
		"sessions": h.Studio.SessionCount(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

// GetCatalog returns the form choices and step definitions
func (h *Handler) GetCatalog(c *gin.Context) {
	h.Response.Success(c, h.Catalog)
}

// CreateSession opens a studio session with the default briefing
func (h *Handler) CreateSession(c *gin.Context) {
	snap := h.Studio.CreateSession()
	h.Response.Created(c, snap, "session created")
}

// GetSession returns the session snapshot
func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.Studio.GetSession(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, snap)
}

// UpdateBriefing replaces the briefing fields
func (h *Handler) UpdateBriefing(c *gin.Context) {
	var input models.BriefingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.Response.BadRequest(c, "invalid briefing payload", err.Error())
		return
	}

	snap, err := h.Studio.UpdateBriefing(c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, snap)
}

// StartRun launches the agent steps for the current briefing
func (h *Handler) StartRun(c *gin.Context) {
	ticket, err := h.Studio.StartRun(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	started := RunStartedResponse{
		RunID:       ticket.RunID,
		Generation:  ticket.Generation,
		ProgressURL: "/api/progress/" + ticket.RunID,
	}
	h.WebSocketHandler.Notify(c.Param("id"), MessageTypeRunStarted, started)
	h.Response.Accepted(c, started, "run started")
}

// Reset stops any run and restores the pending steps
func (h *Handler) Reset(c *gin.Context) {
	snap, err := h.Studio.Reset(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, snap, "session reset")
}

// Export downloads the finished video plan
func (h *Handler) Export(c *gin.Context) {
	result, err := h.Exports.ExportBlueprint(c.Param("id"), c.Query("format"))
	if err != nil {
		if apperrors.IsValidationError(err) {
			h.Response.Error(c, http.StatusBadRequest, ErrorExportFormatInvalid, err.Error())
			return
		}
		if apperrors.IsConflictError(err) {
			h.Response.Conflict(c, ErrorResultNotReady, err.Error())
			return
		}
		if apperrors.IsNotFoundError(err) {
			h.Response.NotFound(c, ErrorSessionNotFound, err.Error())
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, "export failed", err.Error())
		return
	}

	h.Response.DownloadResponse(c, result.Content, result.FileName, result.ContentType)
}

// SubscribeProgress streams run progress as server-sent events
func (h *Handler) SubscribeProgress(c *gin.Context) {
	runID := c.Param("runID")

	tracker, exists := h.Progress.GetTracker(runID)
	if !exists {
		h.Response.NotFound(c, ErrorRunNotFound, "run not found: "+runID)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"run_id\":%q}\n\n", runID)
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			if update.Status == services.ProgressCompleted || update.Status == services.ProgressFailed {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// GetMetrics returns the metrics snapshot
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.Collector().GetMetrics())
}

// GetWebSocketStatus reports the open WebSocket connections
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.WebSocketHandler.Status())
}

// respondError maps service errors onto the envelope
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	errors.As(err, &appErr)

	switch {
	case apperrors.IsNotFoundError(err):
		h.Response.NotFound(c, ErrorSessionNotFound, err.Error())
	case apperrors.IsValidationError(err):
		details := ""
		if appErr != nil {
			details = appErr.Details()
		}
		h.Response.Error(c, http.StatusBadRequest, ErrorBriefingInvalid, err.Error(), details)
	case apperrors.IsConflictError(err):
		h.Response.Conflict(c, ErrorRunInProgress, err.Error())
	default:
		h.logger.Error("Request failed", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		h.Response.InternalError(c, "internal error", err.Error())
	}
}

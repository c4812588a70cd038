// Package httpapi exposes the pipeline driver over HTTP so runs can be
// triggered remotely, one at a time.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mlpipe/internal/pipeline"
)

// Trigger starts a pipeline run for a steps selection. An empty selection
// means the config decides.
type Trigger interface {
	Run(ctx context.Context, selection string) error
}

// Handler serves the run API. Runs execute synchronously in the request
// and one at a time; a request arriving while a run is in flight gets a
// conflict response.
type Handler struct {
	driver Trigger
	busy   sync.Mutex
}

func NewHandler(driver Trigger) *Handler {
	return &Handler{driver: driver}
}

// Register installs the API routes on the engine.
func (h *Handler) Register(g *gin.Engine) {
	g.GET("/healthz", h.health)
	g.POST("/api/v1/runs", h.startRun)
}

type runRequest struct {
	Steps string `json:"steps"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"steps":  pipeline.StepNames(),
	})
}

func (h *Handler) startRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "invalid request body: " + err.Error(),
			})
			return
		}
	}

	if !h.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{
			"message": "a pipeline run is already in progress",
		})
		return
	}
	defer h.busy.Unlock()

	runID := uuid.New().String()
	slog.Info("Pipeline run requested",
		"run_id", runID,
		"steps", req.Steps,
		"remote", c.ClientIP())

	if err := h.driver.Run(c.Request.Context(), req.Steps); err != nil {
		slog.Error("Pipeline run failed",
			"run_id", runID,
			"error", err.Error())

		resp := gin.H{
			"run_id":  runID,
			"message": "Error in pipeline execution: " + err.Error(),
		}
		var stepErr *pipeline.StepError
		if errors.As(err, &stepErr) {
			resp["step"] = stepErr.Step
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"status": "completed",
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kurihiro0119/orgsync/internal/errors"
	"github.com/kurihiro0119/orgsync/internal/storage"
)

// Handler handles API requests
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new API handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		storage: store,
	}
}

// HealthCheck returns the API health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetRuns returns recent sync runs for an organization
// GET /api/v1/orgs/:org/runs?limit=20
func (h *Handler) GetRuns(c *gin.Context) {
	org := c.Param("org")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	runs, err := h.storage.GetRuns(c.Request.Context(), org, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
	})
}

// GetRun returns one sync run with its per-repository outcomes
// GET /api/v1/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.storage.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.storage.GetRepoResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"run":   run,
			"repos": results,
		},
	})
}

// respondError maps application errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if apperrors.IsNotFound(err) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}

package snapshot

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boatcatalog/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects a group that already enforces admin auth.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	snapshots := r.Group("/snapshots")
	{
		snapshots.GET("", h.History)          // GET /api/v1/admin/snapshots?limit=
		snapshots.POST("", h.Export)          // POST /api/v1/admin/snapshots
		snapshots.POST("/restore", h.Restore) // POST /api/v1/admin/snapshots/restore?dry_run=true
	}
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	history, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list snapshots")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshots": history})
}

// Export records a snapshot of the live catalog without writing a file.
func (h *Handler) Export(c *gin.Context) {
	snap, err := h.service.Export(c.Request.Context(), "")
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to read catalog")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"snapshot": snap})
}

// Restore rewrites the catalog from the latest recorded export.
func (h *Handler) Restore(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
	report, err := h.service.RestoreLatest(c.Request.Context(), Options{DryRun: dryRun})
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, ErrSnapshotNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "No snapshot recorded")
			return
		}
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Restore failed")
		return
	}
	response.Success(c, http.StatusOK, report)
}

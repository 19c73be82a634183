package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"boatcatalog/internal/backend"
	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/pkg/response"
	"boatcatalog/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	models := r.Group("/models")
	{
		models.GET("", h.ListModels)     // GET /api/v1/models?category=...
		models.GET("/:name", h.GetModel) // GET /api/v1/models/:name (short code or id)
	}

	categories := r.Group("/categories")
	{
		categories.GET("", h.ListCategories)  // GET /api/v1/categories?group=...
		categories.GET("/:id", h.GetCategory) // GET /api/v1/categories/:id
	}

	r.GET("/events", h.ListEvents)
	r.GET("/dealers", h.ListDealers)
	r.POST("/contact", h.SubmitContact)
}

// RegisterAdminRoutes expects a group that already enforces admin auth.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/models/:id/payload", h.GetModelPayload)
	r.PUT("/models/:id", h.UpdateModel)
	r.PUT("/categories/:id", h.UpdateCategory)
}

/* ---------- PUBLIC ---------- */

// ListModels handles GET /api/v1/models
func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.service.ListModels(c.Request.Context(), domain.EntityID(strings.TrimSpace(c.Query("category"))))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"models": models})
}

// GetModel handles GET /api/v1/models/:name
func (h *Handler) GetModel(c *gin.Context) {
	model, err := h.service.GetModel(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"model": model})
}

// ListCategories handles GET /api/v1/categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context(), c.Query("group"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"categories": categories})
}

// GetCategory handles GET /api/v1/categories/:id
func (h *Handler) GetCategory(c *gin.Context) {
	category, err := h.service.GetCategory(c.Request.Context(), domain.EntityID(c.Param("id")))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"category": category})
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.service.ListEvents(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": nonNil(events)})
}

func (h *Handler) ListDealers(c *gin.Context) {
	dealers, err := h.service.ListDealers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"dealers": nonNil(dealers)})
}

// SubmitContact handles POST /api/v1/contact
func (h *Handler) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationFailed(c, errs)
		return
	}

	if err := h.service.SubmitContact(c.Request.Context(), req); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"message": "Message sent"})
}

/* ---------- ADMIN ---------- */

// GetModelPayload handles GET /api/v1/admin/models/:id/payload
func (h *Handler) GetModelPayload(c *gin.Context) {
	payload, err := h.service.ModelPayload(c.Request.Context(), domain.EntityID(c.Param("id")))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"model": payload})
}

// UpdateModel handles PUT /api/v1/admin/models/:id
func (h *Handler) UpdateModel(c *gin.Context) {
	var edits domain.ModelView
	if err := c.ShouldBindJSON(&edits); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if strings.TrimSpace(edits.Name) == "" {
		response.ValidationFailed(c, map[string]string{"name": "required"})
		return
	}

	model, err := h.service.UpdateModel(c.Request.Context(), domain.EntityID(c.Param("id")), edits)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"model": model})
}

// UpdateCategory handles PUT /api/v1/admin/categories/:id
func (h *Handler) UpdateCategory(c *gin.Context) {
	var req domain.Category
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.ValidationFailed(c, map[string]string{"name": "required"})
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), domain.EntityID(c.Param("id")), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"category": category})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	switch {
	case errors.Is(err, ErrModelNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Model not found")
	case errors.Is(err, ErrCategoryNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
	case errors.Is(err, ErrIDMismatch):
		response.Error(c, http.StatusBadRequest, "ID_MISMATCH", err.Error())
	case errors.Is(err, domain.ErrUnknownMediaField):
		response.Error(c, http.StatusBadRequest, "UNKNOWN_MEDIA_FIELD", err.Error())
	case errors.Is(err, backend.ErrNoCredentials):
		response.Error(c, http.StatusServiceUnavailable, "BACKEND_NOT_CONFIGURED", "Backend credentials are not configured")
	case backend.StatusOf(err) != 0:
		response.ErrorWithDetails(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Catalog backend request failed",
			gin.H{"status": backend.StatusOf(err)})
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

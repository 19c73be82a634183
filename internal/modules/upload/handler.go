package upload

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/modules/catalog"
	"boatcatalog/internal/pkg/response"
)

// Handler serves the admin upload endpoints. Routes are registered on a
// group that already enforces admin auth.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	uploads := r.Group("/uploads")
	{
		uploads.POST("", h.Upload)     // POST /api/v1/admin/uploads (multipart: file, model, field)
		uploads.GET("", h.ListRecent)  // GET /api/v1/admin/uploads?model=&limit=
		uploads.GET("/:id", h.GetByID) // GET /api/v1/admin/uploads/:id
	}
}

// Upload handles POST /api/v1/admin/uploads
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "NO_FILE", "No file provided")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "NO_FILE", "Failed to read file")
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Request.Context(), Request{
		Filename:   fileHeader.Filename,
		Size:       fileHeader.Size,
		Body:       file,
		ModelID:    c.PostForm("model"),
		Field:      c.PostForm("field"),
		UploadedBy: c.GetString("subject"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// ListRecent handles GET /api/v1/admin/uploads
func (h *Handler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	uploads, err := h.service.ListRecent(c.Request.Context(), c.Query("model"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"uploads": uploads})
}

// GetByID handles GET /api/v1/admin/uploads/:id
func (h *Handler) GetByID(c *gin.Context) {
	up, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"upload": up})
}

func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "EMPTY_FILE", err.Error())
	case errors.Is(err, ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, ErrInvalidMimeType):
		response.Error(c, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", err.Error())
	case errors.Is(err, ErrFieldWithoutModel):
		response.Error(c, http.StatusBadRequest, "MODEL_REQUIRED", err.Error())
	case errors.Is(err, domain.ErrUnknownMediaField):
		response.Error(c, http.StatusBadRequest, "UNKNOWN_MEDIA_FIELD", err.Error())
	case errors.Is(err, catalog.ErrModelNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Model not found")
	case errors.Is(err, ErrUploadNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Upload not found")
	default:
		response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Upload failed")
	}
}

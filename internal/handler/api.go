package handler

import (
	"errors"
	"net/http"

	"annotation-review/internal/models"
	"annotation-review/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FingerprintHeader carries the annotator's browser fingerprint
const FingerprintHeader = "X-Browser-Fingerprint"

// Options configures routing
type Options struct {
	APIPrefix string // e.g. "/api"
	StaticDir string // SPA build output; ignored when missing
}

// Handler handles HTTP requests
type Handler struct {
	annotator *service.Annotator
	uploader  *service.Uploader
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(annotator *service.Annotator, uploader *service.Uploader, opts Options, logger *zap.Logger) *Handler {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	return &Handler{
		annotator: annotator,
		uploader:  uploader,
		opts:      opts,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group(h.opts.APIPrefix)
	{
		api.POST("/upload", h.Upload)
		api.POST("/projects/:project_id/annotations", h.SubmitAnnotation)

		api.GET("/analytics/dimensions", h.GetDimensions)
		api.GET("/analytics/stats", h.GetStats)
		api.GET("/progress", h.GetProgress)

		api.GET("/export", h.Export)
	}

	r.GET("/health", h.HealthCheck)

	h.registerStatic(r)
}

type taskQuery struct {
	FileHash    string `form:"file_hash" binding:"required"`
	Dimension   string `form:"dimension"`
	Fingerprint string `form:"fingerprint"`
	Format      string `form:"format"`
}

// Upload validates an uploaded spreadsheet and returns its file id
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	result, err := h.uploader.Inspect(c.Request.Context(), file.Filename, file.Size, file, c.PostForm("annotationType"))
	if err != nil {
		h.respondError(c, err, "upload failed")
		return
	}

	succeed(c, result)
}

// SubmitAnnotation stores or replaces one annotator's judgement on a row
func (h *Handler) SubmitAnnotation(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.annotator.Submit(c.Request.Context(), c.Param("project_id"), c.GetHeader(FingerprintHeader), &req)
	if err != nil {
		h.respondError(c, err, "failed to submit annotation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"message": "Annotation submitted",
	})
}

// GetDimensions lists the dimensions annotated for a file
func (h *Handler) GetDimensions(c *gin.Context) {
	q, ok := bindTask(c)
	if !ok {
		return
	}

	dims, err := h.annotator.Dimensions(c.Request.Context(), q.FileHash)
	if err != nil {
		h.respondError(c, err, "failed to get dimensions")
		return
	}

	succeed(c, dims)
}

// GetStats returns annotation statistics for a file or one of its dimensions
func (h *Handler) GetStats(c *gin.Context) {
	q, ok := bindTask(c)
	if !ok {
		return
	}

	stats, err := h.annotator.Stats(c.Request.Context(), q.FileHash, q.Dimension)
	if err != nil {
		h.respondError(c, err, "failed to get stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetProgress returns progress for a task, optionally for one annotator
func (h *Handler) GetProgress(c *gin.Context) {
	q, ok := bindTask(c)
	if !ok {
		return
	}

	progress, err := h.annotator.Progress(c.Request.Context(), q.FileHash, q.Dimension, q.Fingerprint)
	if err != nil {
		h.respondError(c, err, "failed to get progress")
		return
	}

	c.JSON(http.StatusOK, progress)
}

// Export sends every annotation of a task as a CSV attachment
func (h *Handler) Export(c *gin.Context) {
	q, ok := bindTask(c)
	if !ok {
		return
	}

	switch q.Format {
	case "", "csv":
	case "excel":
		fail(c, http.StatusBadRequest, "only CSV format is supported")
		return
	default:
		fail(c, http.StatusBadRequest, "unsupported export format: "+q.Format)
		return
	}

	file, err := h.annotator.ExportCSV(c.Request.Context(), q.FileHash, q.Dimension)
	if err != nil {
		h.respondError(c, err, "export failed")
		return
	}

	c.Header("Content-Disposition", file.ContentDisposition)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	// headers are sent by now, so a failure can only be logged
	if err := file.Stream(c.Writer); err != nil {
		h.logger.Error("export interrupted",
			zap.String("file_hash", q.FileHash),
			zap.Error(err))
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func bindTask(c *gin.Context) (*taskQuery, bool) {
	var q taskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, "file_hash is required")
		return nil, false
	}
	return &q, true
}

// respondError maps service errors onto status codes. Server faults are
// logged with detail and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(msg,
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, msg)
	}
}

func succeed(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

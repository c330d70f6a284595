package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-photo-sharpness/internal/config"
	apperrors "go-photo-sharpness/internal/errors"
	"go-photo-sharpness/internal/logger"
	"go-photo-sharpness/internal/service"
	"go-photo-sharpness/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// MetricsProvider supplies classification counters for the health endpoint
type MetricsProvider interface {
	GetMetrics() models.ClassificationMetrics
}

type handler struct {
	svc     service.SharpnessService
	metrics MetricsProvider
	cfg     *config.Config
}

// NewHandler builds the HTTP API. metrics may be nil.
func NewHandler(svc service.SharpnessService, metrics MetricsProvider, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, cfg: cfg}

	r := gin.New()

	// Add middleware
	r.Use(
		requestID(),
		requestLogger(),
		gin.Recovery(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)

	api := r.Group("/api/v1")
	api.GET("/model", h.modelInfo)
	api.POST("/classify", h.classify)
	api.POST("/classify/batch", h.classifyBatch)
	api.GET("/results/:id", h.getResult)

	return r
}

func (h *handler) classify(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var req models.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	logger.WithRequestID(c.GetString(logger.RequestIDKey)).WithFields(logrus.Fields{
		"photo":           req.URL,
		"af_point_index":  req.AFPointIndex,
		"last_good_index": req.LastGoodIndex,
	}).Debug("Classifying photo")

	resp, err := h.svc.Classify(ctx, req)
	if err != nil {
		respondError(c, err, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) classifyBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var req models.BatchClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.ClassifyBatch(ctx, req)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) getResult(c *gin.Context) {
	resp, err := h.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) modelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ModelInfo())
}

func (h *handler) healthCheck(c *gin.Context) {
	resp := models.HealthResponse{
		Status:   "available",
		Version:  Version,
		Time:     time.Now().UTC().Format(time.RFC3339),
		Degraded: h.svc.ModelInfo().Degraded,
	}
	if h.metrics != nil {
		resp.Metrics = h.metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, resp)
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = logger.NewRequestID()
		}
		c.Set(logger.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithRequestID(c.GetString(logger.RequestIDKey)).WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"processing_time_ms": time.Since(start).Milliseconds(),
			"ip":                 c.ClientIP(),
			"user_agent":         c.Request.UserAgent(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err, nil)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return apperrors.StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respondStatus(c, http.StatusRequestEntityTooLarge, "request body too large", err, nil)
		return
	}
	respondError(c, apperrors.NewValidationError("invalid request format", err), nil)
}

func respondError(c *gin.Context, err error, partial *models.ClassificationResponse) {
	respondStatus(c, determineStatusCode(err), "request processing failed", err, partial)
}

func respondStatus(c *gin.Context, code int, message string, err error, partial *models.ClassificationResponse) {
	requestID := c.GetString(logger.RequestIDKey)

	resp := models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   message,
		RequestID: requestID,
		Partial:   partial,
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Type = string(appErr.Type)
		resp.Message = appErr.Error()
	}

	// Log the error with context
	entry := logger.WithRequestID(requestID).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, resp)
}

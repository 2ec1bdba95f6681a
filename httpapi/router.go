// Package httpapi exposes the single proxy route. Handler outcomes, success
// or failure, travel back as HTTP 200 envelopes; only malformed requests and
// infrastructure faults surface as non-200 statuses.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req core.DispatchRequest) (core.OperationResult, error)
}

type Handler struct {
	dispatcher Dispatcher
	logger     core.Logger
}

func NewHandler(dispatcher Dispatcher, logger core.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

func (h *Handler) Proxy(c *gin.Context) {
	if h == nil || h.dispatcher == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "dispatcher is not configured"})
		return
	}
	var req core.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request payload: " + err.Error()})
		return
	}
	result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		status, message := statusFor(err)
		if h.logger != nil && status >= http.StatusInternalServerError {
			h.logger.Error("dispatch failed", "error", err.Error(), "action", req.Action)
		}
		c.JSON(status, gin.H{"success": false, "error": message})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter mounts the proxy route with permissive CORS, JSON panic
// recovery, and explicit 405 handling.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
		})
	}))
	router.Use(corsMiddleware())

	router.POST("/", handler.Proxy)
	router.GET("/healthz", handler.Health)

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"error":   "method not allowed",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "route not found",
		})
	})
	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func statusFor(err error) (int, string) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return status, richErr.Message
	}
	return http.StatusInternalServerError, err.Error()
}

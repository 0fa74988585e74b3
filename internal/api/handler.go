package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reservation-service/internal/service"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	reservations *service.ReservationService
	catalog      *service.CatalogClient
}

// NewHandler creates a new HTTP handler
func NewHandler(reservations *service.ReservationService, catalog *service.CatalogClient) *Handler {
	return &Handler{
		reservations: reservations,
		catalog:      catalog,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/reservations", h.submitReservation)
		v1.GET("/reservations/status/:request_id", h.getStatus)
		v1.POST("/reservations/quote", h.quote)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// submitReservation accepts a reservation request for asynchronous
// resolution. 202: the outcome arrives via status polling, never on this
// connection.
func (h *Handler) submitReservation(c *gin.Context) {
	var req service.SubmitRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.reservations.Submit(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "InvalidRange",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to accept reservation request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// getStatus handles status polling by request_id
func (h *Handler) getStatus(c *gin.Context) {
	requestID := c.Param("request_id")

	status, err := h.reservations.GetStatus(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, store.ErrStatusNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Request not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// quoteRequest is the payload for price quoting
type quoteRequest struct {
	CarID     int64  `json:"car_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// quote calculates the price of a prospective reservation from catalog data
func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.catalog.Quote(c.Request.Context(), req.CarID, req.StartDate, req.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRange):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "InvalidRange",
				"details": err.Error(),
			})
		case errors.Is(err, store.ErrCarNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Car not found",
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Catalog unavailable",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

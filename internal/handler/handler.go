package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	"github.com/DhruvAgrawal511/xeno-backend/internal/metrics"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
)

// Services bundles the service layer behind the HTTP API
type Services struct {
	Ingest    service.IngestServicer
	Segments  service.SegmentServicer
	Campaigns service.CampaignServicer
	Receipts  service.ReceiptServicer
	Vendor    service.VendorServicer
}

type Handler struct {
	services Services
	router   *gin.Engine
	log      *zap.Logger
}

func NewHandler(services Services, log *zap.Logger) *Handler {
	h := &Handler{
		services: services,
		router:   gin.Default(),
		log:      log,
	}

	h.router.Use(countRequests())
	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := h.router.Group("/api")

	api.POST("/customers", h.createCustomer)
	api.GET("/customers", h.listCustomers)
	api.POST("/orders", h.createOrder)

	api.POST("/segments", h.createSegment)
	api.GET("/segments", h.listSegments)
	api.POST("/segments/preview", h.previewSegment)

	api.POST("/campaigns", h.createCampaign)
	api.GET("/campaigns", h.listCampaigns)
	api.GET("/campaigns/history", h.listCampaigns)
	api.POST("/campaigns/:id/send", h.sendCampaign)
	api.GET("/campaigns/:id/delivery-metrics", h.deliveryMetrics)

	api.POST("/vendor/send", h.vendorSend)
	api.POST("/delivery-receipt", h.deliveryReceipt)
}

// countRequests records every request by route pattern, method and status
func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.Get().HTTPRequests.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Inc()
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// bindJSON decodes the body and writes a 400 when it is not valid JSON.
// Field constraints are checked by the services.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Warn("Invalid request body",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return false
	}
	return true
}

// writeError maps service errors to status codes
func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &validationErr):
		h.log.Warn(msg, zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
		})
	case errors.Is(err, service.ErrSegmentNotFound), errors.Is(err, service.ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrCampaignCompleted):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "unavailable",
			Message: err.Error(),
		})
	default:
		h.log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// createCustomer handles POST /api/customers
func (h *Handler) createCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id, err := h.services.Ingest.SubmitCustomer(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to queue customer")
		return
	}

	h.log.Info("Customer queued", zap.String("customer_id", id))

	c.JSON(http.StatusAccepted, dto.QueuedResponse{ID: id, Status: "queued"})
}

// listCustomers handles GET /api/customers
func (h *Handler) listCustomers(c *gin.Context) {
	var req dto.ListCustomersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.services.Ingest.ListCustomers(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to list customers")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// createOrder handles POST /api/orders
func (h *Handler) createOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id, err := h.services.Ingest.SubmitOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to queue order")
		return
	}

	h.log.Info("Order queued",
		zap.String("order_id", id),
		zap.String("customer_id", req.CustomerID))

	c.JSON(http.StatusAccepted, dto.QueuedResponse{ID: id, Status: "queued"})
}

// createSegment handles POST /api/segments
func (h *Handler) createSegment(c *gin.Context) {
	var req dto.CreateSegmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	segment, err := h.services.Segments.CreateSegment(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to create segment")
		return
	}

	c.JSON(http.StatusCreated, dto.SegmentResponse{Segment: segment})
}

// previewSegment handles POST /api/segments/preview
func (h *Handler) previewSegment(c *gin.Context) {
	var req dto.PreviewSegmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	size, err := h.services.Segments.PreviewSegment(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to preview segment")
		return
	}

	c.JSON(http.StatusOK, dto.PreviewSegmentResponse{AudienceSize: size})
}

// listSegments handles GET /api/segments
func (h *Handler) listSegments(c *gin.Context) {
	segments, err := h.services.Segments.ListSegments(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to list segments")
		return
	}

	c.JSON(http.StatusOK, segments)
}

// createCampaign handles POST /api/campaigns
func (h *Handler) createCampaign(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	campaign, err := h.services.Campaigns.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, dto.CampaignResponse{Campaign: campaign})
}

// listCampaigns handles GET /api/campaigns and GET /api/campaigns/history
func (h *Handler) listCampaigns(c *gin.Context) {
	campaigns, err := h.services.Campaigns.ListCampaigns(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to list campaigns")
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

// sendCampaign handles POST /api/campaigns/:id/send
func (h *Handler) sendCampaign(c *gin.Context) {
	campaignID := c.Param("id")

	start := time.Now()
	resp, err := h.services.Campaigns.SendCampaign(c.Request.Context(), campaignID)
	if err != nil {
		h.writeError(c, err, "Failed to send campaign")
		return
	}

	h.log.Info("Campaign send requested",
		zap.String("campaign_id", campaignID),
		zap.Int64("audience_size", resp.AudienceSize),
		zap.Int("enqueued", resp.Enqueued),
		zap.Duration("duration", time.Since(start)))

	c.JSON(http.StatusOK, resp)
}

// deliveryMetrics handles GET /api/campaigns/:id/delivery-metrics
func (h *Handler) deliveryMetrics(c *gin.Context) {
	var req dto.DeliveryMetricsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid delivery metrics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.services.Campaigns.DeliveryMetrics(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, err, "Failed to get delivery metrics")
		return
	}

	h.log.Info("Delivery metrics retrieved",
		zap.String("campaign_id", resp.CampaignID),
		zap.Uint64("total_count", resp.TotalCount))

	c.JSON(http.StatusOK, resp)
}

// vendorSend handles POST /api/vendor/send
func (h *Handler) vendorSend(c *gin.Context) {
	var req dto.VendorSendRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.services.Vendor.Send(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Vendor send failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// deliveryReceipt handles POST /api/delivery-receipt
func (h *Handler) deliveryReceipt(c *gin.Context) {
	var req dto.DeliveryReceiptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entryID, err := h.services.Receipts.SubmitReceipt(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to queue receipt")
		return
	}

	c.JSON(http.StatusAccepted, dto.QueuedResponse{ID: entryID, Status: "queued"})
}

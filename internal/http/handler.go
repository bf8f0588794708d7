package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-dashboard/internal/config"
	"parking-dashboard/internal/service"
)

type Handler struct {
	dashboardService *service.DashboardService
	config           *config.Config
	log              zerolog.Logger
}

func NewHandler(
	dashboardService *service.DashboardService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		dashboardService: dashboardService,
		config:           cfg,
		log:              log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/dashboard", h.getDashboard)
		protected.GET("/dashboard/traffic", h.getTraffic)
		protected.POST("/dashboard/refresh", h.refresh)
		protected.GET("/parked", h.listParked)
	}

	admin := protected.Group("/admin")
	admin.Use(RequireRole(h.config.Auth.AdminRole))
	{
		admin.GET("/statistics", h.getStatistics)
	}
}

// getDashboard always carries a dashboard in the result, zero-valued when
// the event list could not be fetched.
func (h *Handler) getDashboard(c *gin.Context) {
	d, err := h.dashboardService.Occupancy(c.Request.Context(), sessionFrom(c))
	if err != nil {
		status, body := h.classify(c, err)
		body.Result = d
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, successResponse(d))
}

func (h *Handler) getTraffic(c *gin.Context) {
	vehicleType := strings.TrimSpace(c.Query("vehicle_type"))
	direction := strings.TrimSpace(c.Query("direction"))
	if vehicleType == "" || direction == "" {
		c.JSON(http.StatusBadRequest, errorResponse(CodeInvalidInput, "vehicle_type and direction parameters are required"))
		return
	}

	count, err := h.dashboardService.Traffic(c.Request.Context(), sessionFrom(c), vehicleType, direction)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(count))
}

func (h *Handler) listParked(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	size := 0
	if s := c.Query("size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			size = parsed
		}
	}

	plate := strings.TrimSpace(c.Query("plate"))
	items, meta, err := h.dashboardService.Parked(c.Request.Context(), sessionFrom(c), plate, page, size)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"items": items,
		"meta":  meta,
	}))
}

func (h *Handler) refresh(c *gin.Context) {
	if err := h.dashboardService.Refresh(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"refreshed": true}))
}

func (h *Handler) getStatistics(c *gin.Context) {
	stats, err := h.dashboardService.Statistics(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status, body := h.classify(c, err)
	c.JSON(status, body)
}

func (h *Handler) classify(c *gin.Context, err error) (int, envelope) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ctxRequestID)).
			Msg("handler error")
	}
	return status, body
}

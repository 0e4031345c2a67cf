package handler

import (
	"net/http"

	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	metrics service.MetricsService
}

func NewMetricsHandler(metrics service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) Landing(c *gin.Context) {
	resp, err := h.metrics.Landing(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/gin-gonic/gin"
)

type WeatherHandler struct {
	weather service.WeatherService
}

func NewWeatherHandler(weather service.WeatherService) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

func (h *WeatherHandler) BranchesWeather(c *gin.Context) {
	resp, err := h.weather.BranchesWeather(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

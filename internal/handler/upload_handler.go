package handler

import (
	"net/http"
	"strings"

	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/citygallery/citygallery/pkg/storage"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 5 << 20

type UploadHandler struct {
	storage storage.ImageStorage
}

func NewUploadHandler(storage storage.ImageStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

func (h *UploadHandler) UploadImage(c *gin.Context) {
	if _, err := response.RequireViewer(c); err != nil {
		response.Error(c, err)
		return
	}

	if h.storage == nil {
		response.Error(c, apperror.New(http.StatusServiceUnavailable, "image storage is not configured", apperror.ErrInternal))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperror.BadRequest("file is required"))
		return
	}

	if file.Size > maxUploadBytes {
		response.Error(c, apperror.BadRequest("file exceeds the 5MB limit"))
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(c, apperror.BadRequest("only image uploads are accepted"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer src.Close()

	url, err := h.storage.UploadImage(c.Request.Context(), src, "posts", file.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

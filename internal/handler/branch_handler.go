package handler

import (
	"net/http"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/citygallery/citygallery/pkg/validator"
	"github.com/gin-gonic/gin"
)

type BranchHandler struct {
	branches service.BranchService
}

func NewBranchHandler(branches service.BranchService) *BranchHandler {
	return &BranchHandler{branches: branches}
}

func (h *BranchHandler) ListBranches(c *gin.Context) {
	var filter dto.BranchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	branches, err := h.branches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

func (h *BranchHandler) GetBranch(c *gin.Context) {
	branchID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	branch, err := h.branches.Get(c.Request.Context(), branchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (h *BranchHandler) CreateBranch(c *gin.Context) {
	var req dto.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	branch, err := h.branches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}

func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	branchID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	branch, err := h.branches.Update(c.Request.Context(), branchID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (h *BranchHandler) DeleteBranch(c *gin.Context) {
	branchID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	deletedID, err := h.branches.Delete(c.Request.Context(), branchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": deletedID})
}

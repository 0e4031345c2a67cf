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

type GroupHandler struct {
	groups service.GroupService
}

func NewGroupHandler(groups service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	group, err := h.groups.Create(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	var filter dto.GroupFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	groups, err := h.groups.List(c.Request.Context(), viewerPtr(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) MyGroups(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groups, err := h.groups.Mine(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) JoinableGroups(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter dto.GroupFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	groups, err := h.groups.Joinable(c.Request.Context(), viewer, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) JoinGroup(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	group, err := h.groups.Join(c.Request.Context(), viewer, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	group, err := h.groups.Leave(c.Request.Context(), viewer, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	group, err := h.groups.Update(c.Request.Context(), viewer, groupID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) GroupMembers(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	members, err := h.groups.Members(c.Request.Context(), viewer, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	memberID, err := pathID(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.groups.RemoveMember(c.Request.Context(), viewer, groupID, memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	deletedID, err := h.groups.Delete(c.Request.Context(), viewer, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": deletedID})
}

package handler

import (
	"net/http"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/citygallery/citygallery/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostHandler struct {
	feed        service.FeedService
	posts       service.PostService
	interaction service.InteractionService
}

func NewPostHandler(feed service.FeedService, posts service.PostService, interaction service.InteractionService) *PostHandler {
	return &PostHandler{
		feed:        feed,
		posts:       posts,
		interaction: interaction,
	}
}

// ListPosts serves both the flat feed and the grouped feed; a groupBy
// query parameter switches the shape of the response.
func (h *PostHandler) ListPosts(c *gin.Context) {
	var filter dto.FeedFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	viewer := viewerPtr(c)

	if filter.GroupBy != "" {
		grouped, err := h.feed.ListGrouped(c.Request.Context(), viewer, filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, grouped)
		return
	}

	page, err := h.feed.List(c.Request.Context(), viewer, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	post, err := h.posts.Create(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	post, err := h.posts.Get(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	post, err := h.posts.Update(c.Request.Context(), viewer, postID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	deletedID, err := h.posts.Delete(c.Request.Context(), viewer, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": deletedID})
}

func (h *PostHandler) ToggleLike(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.interaction.ToggleLike(c.Request.Context(), viewer, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PostHandler) AddComment(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	comment, err := h.interaction.AddComment(c.Request.Context(), viewer, postID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	comments, err := h.interaction.ListComments(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	viewer, err := response.RequireViewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.interaction.DeleteComment(c.Request.Context(), viewer, postID, commentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commentsCount": count})
}

func (h *PostHandler) PreviewPost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	preview, err := h.interaction.Preview(c.Request.Context(), viewerPtr(c), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// viewerPtr returns the viewer as a nilable pointer for endpoints that
// serve anonymous requests too.
func viewerPtr(c *gin.Context) *uuid.UUID {
	if viewer, ok := response.Viewer(c); ok {
		return &viewer
	}
	return nil
}

// pathID parses a UUID path parameter.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid " + name)
	}
	return id, nil
}

package dto

import (
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Title    string          `json:"title" binding:"required,max=120"`
	Content  string          `json:"content" binding:"required,max=4000"`
	Images   []string        `json:"images"`
	Group    *uuid.UUID      `json:"group"`
	Location *model.Location `json:"location"`
	Status   string          `json:"status"`
}

// UpdatePostRequest carries a partial update; nil fields are left untouched.
type UpdatePostRequest struct {
	Title    *string         `json:"title" binding:"omitempty,max=120"`
	Content  *string         `json:"content" binding:"omitempty,max=4000"`
	Images   *[]string       `json:"images"`
	Group    *uuid.UUID      `json:"group"`
	Location *model.Location `json:"location"`
	Status   *string         `json:"status"`
}

type PostResponse struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Images    []string       `json:"images"`
	Author    AuthorRef      `json:"author"`
	Group     *GroupRef      `json:"group"`
	Location  model.Location `json:"location"`
	Status    string         `json:"status,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

type CommentResponse struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Author    AuthorRef `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatedCommentResponse struct {
	CommentResponse
	CommentsCount int64 `json:"commentsCount"`
}

type LikeResponse struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

// PostPreview is the combined detail view: post body, counts, viewer like
// state and the full enriched comment list in one response.
type PostPreview struct {
	PostResponse
	LikesCount    int64             `json:"likesCount"`
	CommentsCount int64             `json:"commentsCount"`
	UserLiked     bool              `json:"userLiked"`
	Comments      []CommentResponse `json:"comments"`
}

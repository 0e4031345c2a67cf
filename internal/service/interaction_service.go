package service

import (
	"context"
	"errors"
	"strings"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionService covers the localized read-modify-writes on a single
// post: the like toggle, comment CRUD and the combined preview.
type InteractionService interface {
	ToggleLike(ctx context.Context, viewer uuid.UUID, postID uuid.UUID) (*dto.LikeResponse, error)
	AddComment(ctx context.Context, viewer uuid.UUID, postID uuid.UUID, req dto.CreateCommentRequest) (*dto.CreatedCommentResponse, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]dto.CommentResponse, error)
	DeleteComment(ctx context.Context, viewer uuid.UUID, postID, commentID uuid.UUID) (int64, error)
	Preview(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*dto.PostPreview, error)
}

type interactionService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
}

func NewInteractionService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, commentRepo repository.CommentRepository) InteractionService {
	return &interactionService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
	}
}

func (s *interactionService) ToggleLike(ctx context.Context, viewer uuid.UUID, postID uuid.UUID) (*dto.LikeResponse, error) {
	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		return nil, postNotFound(err)
	}

	liked, err := s.likeRepo.Toggle(ctx, postID, viewer)
	if err != nil {
		return nil, err
	}

	count, err := s.likeRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &dto.LikeResponse{Liked: liked, LikesCount: count}, nil
}

func (s *interactionService) AddComment(ctx context.Context, viewer uuid.UUID, postID uuid.UUID, req dto.CreateCommentRequest) (*dto.CreatedCommentResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperror.BadRequest("missing text")
	}

	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		return nil, postNotFound(err)
	}

	comment := &model.Comment{
		PostID:   postID,
		AuthorID: viewer,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	created, err := s.commentRepo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	count, err := s.commentRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &dto.CreatedCommentResponse{
		CommentResponse: commentResponse(created),
		CommentsCount:   count,
	}, nil
}

func (s *interactionService) ListComments(ctx context.Context, postID uuid.UUID) ([]dto.CommentResponse, error) {
	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		return nil, postNotFound(err)
	}

	comments, err := s.commentRepo.FindByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentResponse(c))
	}
	return out, nil
}

func (s *interactionService) DeleteComment(ctx context.Context, viewer uuid.UUID, postID, commentID uuid.UUID) (int64, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return 0, postNotFound(err)
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil || comment.PostID != postID {
		return 0, apperror.NotFound("comment not found")
	}

	// Two-party authorization: the comment's author or the post's author.
	if comment.AuthorID != viewer && post.AuthorID != viewer {
		return 0, apperror.ErrForbidden
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return 0, err
	}

	return s.commentRepo.CountByPost(ctx, postID)
}

func (s *interactionService) Preview(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*dto.PostPreview, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err)
	}

	likesCount, err := s.likeRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.FindByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	userLiked := false
	if viewer != nil {
		liked, err := s.likeRepo.LikedByUser(ctx, *viewer, []uuid.UUID{postID})
		if err != nil {
			return nil, err
		}
		userLiked = liked[postID]
	}

	commentsOut := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		commentsOut = append(commentsOut, commentResponse(c))
	}

	return &dto.PostPreview{
		PostResponse:  postResponse(post),
		LikesCount:    likesCount,
		CommentsCount: int64(len(comments)),
		UserLiked:     userLiked,
		Comments:      commentsOut,
	}, nil
}

func commentResponse(c *model.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		Text:      c.Text,
		Author:    dto.AuthorRef{ID: c.AuthorID, Username: c.Author.Username},
		CreatedAt: c.CreatedAt,
	}
}

func postResponse(p *model.Post) dto.PostResponse {
	return dto.PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Images:    p.Images,
		Author:    dto.AuthorRef{ID: p.AuthorID, Username: p.Author.Username},
		Group:     groupRefOf(p),
		Location:  p.Location,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func postNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("post not found")
	}
	return err
}

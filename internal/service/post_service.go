package service

import (
	"context"
	"errors"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostService interface {
	Create(ctx context.Context, author uuid.UUID, req dto.CreatePostRequest) (*dto.PostResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.PostResponse, error)
	Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req dto.UpdatePostRequest) (*dto.PostResponse, error)
	Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) (uuid.UUID, error)
}

type postService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	search    SearchService
}

func NewPostService(postRepo repository.PostRepository, groupRepo repository.GroupRepository, search SearchService) PostService {
	return &postService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		search:    search,
	}
}

func (s *postService) Create(ctx context.Context, author uuid.UUID, req dto.CreatePostRequest) (*dto.PostResponse, error) {
	if req.Group != nil {
		if _, err := s.groupRepo.FindByID(ctx, *req.Group); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.BadRequest("unknown group")
			}
			return nil, err
		}
	}

	post := &model.Post{
		Title:    req.Title,
		Content:  req.Content,
		Images:   imagesOrEmpty(req.Images),
		AuthorID: author,
		GroupID:  req.Group,
		Status:   req.Status,
	}
	if req.Location != nil {
		post.Location = *req.Location
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.postRepo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	s.search.IndexPost(created)

	resp := postResponse(created)
	return &resp, nil
}

func (s *postService) Get(ctx context.Context, id uuid.UUID) (*dto.PostResponse, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}
	resp := postResponse(post)
	return &resp, nil
}

func (s *postService) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, req dto.UpdatePostRequest) (*dto.PostResponse, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}

	if post.AuthorID != actor {
		return nil, apperror.Forbidden("only author can update")
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Images != nil {
		post.Images = imagesOrEmpty(*req.Images)
	}
	if req.Location != nil {
		post.Location = *req.Location
	}
	if req.Group != nil {
		if _, err := s.groupRepo.FindByID(ctx, *req.Group); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.BadRequest("unknown group")
			}
			return nil, err
		}
		post.GroupID = req.Group
	}
	if req.Status != nil {
		post.Status = *req.Status
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	updated, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.search.IndexPost(updated)

	resp := postResponse(updated)
	return &resp, nil
}

func (s *postService) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) (uuid.UUID, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return uuid.Nil, postNotFound(err)
	}

	if post.AuthorID != actor {
		return uuid.Nil, apperror.Forbidden("only author can delete")
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return uuid.Nil, err
	}

	s.search.DeletePost(id)

	return id, nil
}

func imagesOrEmpty(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

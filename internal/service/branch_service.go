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

type BranchService interface {
	Create(ctx context.Context, req dto.CreateBranchRequest) (*model.Branch, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	List(ctx context.Context, filter dto.BranchFilter) ([]*model.Branch, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateBranchRequest) (*model.Branch, error)
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type branchService struct {
	branchRepo repository.BranchRepository
}

func NewBranchService(branchRepo repository.BranchRepository) BranchService {
	return &branchService{branchRepo: branchRepo}
}

func (s *branchService) Create(ctx context.Context, req dto.CreateBranchRequest) (*model.Branch, error) {
	branch := &model.Branch{
		Name:    req.Name,
		Address: req.Address,
		Lat:     req.Coordinates.Lat,
		Lng:     req.Coordinates.Lng,
	}
	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *branchService) Get(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	branch, err := s.branchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, branchNotFound(err)
	}
	return branch, nil
}

func (s *branchService) List(ctx context.Context, filter dto.BranchFilter) ([]*model.Branch, error) {
	return s.branchRepo.FindAll(ctx, filter.Query)
}

func (s *branchService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateBranchRequest) (*model.Branch, error) {
	branch, err := s.branchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, branchNotFound(err)
	}

	if req.Name != nil {
		branch.Name = *req.Name
	}
	if req.Address != nil {
		branch.Address = *req.Address
	}
	if req.Coordinates != nil {
		branch.Lat = req.Coordinates.Lat
		branch.Lng = req.Coordinates.Lng
	}

	if err := s.branchRepo.Update(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *branchService) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if err := s.branchRepo.Delete(ctx, id); err != nil {
		return uuid.Nil, branchNotFound(err)
	}
	return id, nil
}

func branchNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("branch not found")
	}
	return err
}

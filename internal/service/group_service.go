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

const (
	defaultGroupLimit = 50
	maxGroupLimit     = 200
)

// GroupService keeps group records and the membership relation consistent:
// join, leave, remove and delete-cascade all go through here.
type GroupService interface {
	Create(ctx context.Context, owner uuid.UUID, req dto.CreateGroupRequest) (*dto.GroupResponse, error)
	List(ctx context.Context, viewer *uuid.UUID, filter dto.GroupFilter) ([]dto.GroupResponse, error)
	Mine(ctx context.Context, viewer uuid.UUID) ([]dto.GroupResponse, error)
	Joinable(ctx context.Context, viewer uuid.UUID, filter dto.GroupFilter) ([]dto.GroupResponse, error)
	Join(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupResponse, error)
	Leave(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupResponse, error)
	Update(ctx context.Context, actor uuid.UUID, groupID uuid.UUID, req dto.UpdateGroupRequest) (*dto.GroupResponse, error)
	Members(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupMembersResponse, error)
	RemoveMember(ctx context.Context, actor uuid.UUID, groupID, memberID uuid.UUID) (*dto.RemoveMemberResponse, error)
	Delete(ctx context.Context, actor uuid.UUID, groupID uuid.UUID) (uuid.UUID, error)
}

type groupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

func NewGroupService(groupRepo repository.GroupRepository, userRepo repository.UserRepository) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

func (s *groupService) Create(ctx context.Context, owner uuid.UUID, req dto.CreateGroupRequest) (*dto.GroupResponse, error) {
	group := &model.Group{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     owner,
	}

	if err := s.groupRepo.CreateWithOwner(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("name already in use")
		}
		return nil, err
	}

	return s.respond(ctx, group.ID, &owner)
}

func (s *groupService) List(ctx context.Context, viewer *uuid.UUID, filter dto.GroupFilter) ([]dto.GroupResponse, error) {
	if filter.Mine {
		if viewer == nil {
			return nil, apperror.ErrUnauthorized
		}
		return s.Mine(ctx, *viewer)
	}

	groups, err := s.groupRepo.FindAll(ctx, filter.Query, clamp(filter.Limit, 1, maxGroupLimit, defaultGroupLimit))
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, groups, viewer)
}

func (s *groupService) Mine(ctx context.Context, viewer uuid.UUID) ([]dto.GroupResponse, error) {
	groups, err := s.groupRepo.FindByMember(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, groups, &viewer)
}

func (s *groupService) Joinable(ctx context.Context, viewer uuid.UUID, filter dto.GroupFilter) ([]dto.GroupResponse, error) {
	limit := clamp(filter.Limit, 1, maxGroupLimit, defaultGroupLimit)
	groups, err := s.groupRepo.FindJoinable(ctx, viewer, filter.Query, limit)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, groups, &viewer)
}

func (s *groupService) Join(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupResponse, error) {
	if _, err := s.groupRepo.FindByID(ctx, groupID); err != nil {
		return nil, groupNotFound(err)
	}

	if err := s.groupRepo.AddMember(ctx, groupID, viewer); err != nil {
		return nil, err
	}

	return s.respond(ctx, groupID, &viewer)
}

func (s *groupService) Leave(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupResponse, error) {
	if _, err := s.groupRepo.FindByID(ctx, groupID); err != nil {
		return nil, groupNotFound(err)
	}

	// Idempotent: leaving a group you are not in is a no-op. Note the owner
	// is not stopped from leaving their own group here.
	if _, err := s.groupRepo.RemoveMember(ctx, groupID, viewer); err != nil {
		return nil, err
	}

	return s.respond(ctx, groupID, &viewer)
}

func (s *groupService) Update(ctx context.Context, actor uuid.UUID, groupID uuid.UUID, req dto.UpdateGroupRequest) (*dto.GroupResponse, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}

	if group.OwnerID != actor {
		return nil, apperror.Forbidden("only owner can update")
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := s.groupRepo.Update(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("name already in use")
		}
		return nil, err
	}

	return s.respond(ctx, groupID, &actor)
}

func (s *groupService) Members(ctx context.Context, viewer uuid.UUID, groupID uuid.UUID) (*dto.GroupMembersResponse, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}

	isOwner := group.OwnerID == viewer
	if !isOwner {
		isMember, err := s.groupRepo.IsMember(ctx, groupID, viewer)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperror.Forbidden("members only")
		}
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.GroupMemberResponse, 0, len(members))
	for _, m := range members {
		memberIsOwner := m.UserID == group.OwnerID
		out = append(out, dto.GroupMemberResponse{
			ID:       m.UserID,
			Username: m.User.Username,
			IsOwner:  memberIsOwner,
			JoinedAt: m.CreatedAt,
			// The owner can remove anyone but themselves.
			CanRemove: isOwner && !memberIsOwner,
		})
	}

	return &dto.GroupMembersResponse{Members: out, CanRemove: isOwner}, nil
}

func (s *groupService) RemoveMember(ctx context.Context, actor uuid.UUID, groupID, memberID uuid.UUID) (*dto.RemoveMemberResponse, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, groupNotFound(err)
	}

	if group.OwnerID != actor {
		return nil, apperror.Forbidden("only owner can remove members")
	}
	if memberID == group.OwnerID {
		return nil, apperror.Forbidden("owner cannot be removed")
	}

	removed, err := s.groupRepo.RemoveMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, apperror.NotFound("member not found")
	}

	count, err := s.groupRepo.MembersCount(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return &dto.RemoveMemberResponse{MembersCount: count}, nil
}

func (s *groupService) Delete(ctx context.Context, actor uuid.UUID, groupID uuid.UUID) (uuid.UUID, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return uuid.Nil, groupNotFound(err)
	}

	if group.OwnerID != actor {
		return uuid.Nil, apperror.Forbidden("only owner can delete")
	}

	if err := s.groupRepo.DeleteCascade(ctx, groupID); err != nil {
		return uuid.Nil, err
	}

	return groupID, nil
}

func (s *groupService) respond(ctx context.Context, groupID uuid.UUID, viewer *uuid.UUID) (*dto.GroupResponse, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out, err := s.respondMany(ctx, []*model.Group{group}, viewer)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *groupService) respondMany(ctx context.Context, groups []*model.Group, viewer *uuid.UUID) ([]dto.GroupResponse, error) {
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	counts, err := s.groupRepo.MemberCountsByGroups(ctx, ids)
	if err != nil {
		return nil, err
	}

	memberOf := map[uuid.UUID]bool{}
	if viewer != nil {
		for _, g := range groups {
			isMember, err := s.groupRepo.IsMember(ctx, g.ID, *viewer)
			if err != nil {
				return nil, err
			}
			memberOf[g.ID] = isMember
		}
	}

	out := make([]dto.GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp := dto.GroupResponse{
			ID:           g.ID,
			Name:         g.Name,
			Description:  g.Description,
			Owner:        dto.AuthorRef{ID: g.OwnerID, Username: g.Owner.Username},
			MembersCount: counts[g.ID],
			CreatedAt:    g.CreatedAt,
		}
		if viewer != nil {
			resp.IsMember = memberOf[g.ID]
			resp.IsOwner = g.OwnerID == *viewer
		}
		out = append(out, resp)
	}
	return out, nil
}

func groupNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("group not found")
	}
	return err
}

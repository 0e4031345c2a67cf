package repository

import (
	"context"
	"strings"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository interface {
	// CreateWithOwner creates the group and its owner membership row in one
	// transaction so a failure cannot leave an orphaned group.
	CreateWithOwner(ctx context.Context, group *model.Group) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	FindAll(ctx context.Context, search string, limit int) ([]*model.Group, error)
	FindByMember(ctx context.Context, userID uuid.UUID) ([]*model.Group, error)
	FindJoinable(ctx context.Context, userID uuid.UUID, search string, limit int) ([]*model.Group, error)
	Update(ctx context.Context, group *model.Group) error
	// DeleteCascade removes the membership rows, detaches posts and deletes
	// the group, all in one transaction.
	DeleteCascade(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*model.GroupMember, error)
	MembersCount(ctx context.Context, groupID uuid.UUID) (int64, error)
	MemberCountsByGroups(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) CreateWithOwner(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return tx.Create(&model.GroupMember{GroupID: group.ID, UserID: group.OwnerID}).Error
	})
}

func (r *groupRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).
		First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) FindAll(ctx context.Context, search string, limit int) ([]*model.Group, error) {
	var groups []*model.Group
	query := r.db.WithContext(ctx).Preload("Owner")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) FindByMember(ctx context.Context, userID uuid.UUID) ([]*model.Group, error) {
	var groups []*model.Group
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) FindJoinable(ctx context.Context, userID uuid.UUID, search string, limit int) ([]*model.Group, error) {
	var groups []*model.Group
	query := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id <> ?", userID).
		Where("id NOT IN (?)", r.db.Model(&model.GroupMember{}).Select("group_id").Where("user_id = ?", userID))
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *groupRepository) Update(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Save(group).Error
}

func (r *groupRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Post{}).
			Where("group_id = ?", id).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Group{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	// ON CONFLICT DO NOTHING makes repeated joins no-ops.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.GroupMember{GroupID: groupID, UserID: userID}).Error
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*model.GroupMember, error) {
	var members []*model.GroupMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *groupRepository) MembersCount(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

func (r *groupRepository) MemberCountsByGroups(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		GroupID uuid.UUID
		N       int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Select("group_id", "COUNT(*) AS n").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.GroupID] = row.N
	}
	return counts, nil
}
